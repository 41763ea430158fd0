package realtime_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/constants"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/models"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/realtime"
)

// MockSessionEventRepository is a mock implementation of repository.SessionEventRepository
type MockSessionEventRepository struct {
	mock.Mock
}

func (m *MockSessionEventRepository) Create(ctx context.Context, event *models.SessionEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockSessionEventRepository) ListByToken(ctx context.Context, token string, page, pageSize int) ([]*models.SessionEvent, error) {
	args := m.Called(ctx, token, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SessionEvent), args.Error(1)
}

func (m *MockSessionEventRepository) CountByToken(ctx context.Context, token string) (int64, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSessionEventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func TestAuditingPublisher_RecordsAndDelivers(t *testing.T) {
	repo := new(MockSessionEventRepository)
	hub := realtime.NewHub()
	sub := hub.Subscribe("tok")
	defer sub.Close()

	repo.On("Create", mock.Anything, mock.MatchedBy(func(e *models.SessionEvent) bool {
		return e.Token == "tok" &&
			e.EventType == constants.EventFileAdded &&
			string(e.Payload) == `{"filename":"a.txt","uploader":"alice"}`
	})).Return(nil)

	publisher := realtime.NewAuditingPublisher(hub, repo)
	require.NoError(t, publisher.Publish(context.Background(), realtime.FileAdded("tok", "a.txt", "alice")))

	assert.Len(t, sub.Events(), 1)
	repo.AssertExpectations(t)
}

func TestAuditingPublisher_DeliversWhenRecordingFails(t *testing.T) {
	repo := new(MockSessionEventRepository)
	hub := realtime.NewHub()
	sub := hub.Subscribe("tok")
	defer sub.Close()

	repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("database down"))

	publisher := realtime.NewAuditingPublisher(hub, repo)
	require.NoError(t, publisher.Publish(context.Background(), realtime.SessionEnded("tok")))

	assert.Len(t, sub.Events(), 1)
	repo.AssertExpectations(t)
}
