package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/models"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/utils"
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

func TestEventHistoryService_List(t *testing.T) {
	f := newOnlineFixture(t)
	ctx := context.Background()

	token, err := f.svc.CreateSession(ctx, alice, "", "", 0)
	require.NoError(t, err)

	repo := new(MockSessionEventRepository)
	events := []*models.SessionEvent{models.NewSessionEvent(token, "file_added", []byte(`{"filename":"a.txt","uploader":"alice"}`))}
	repo.On("ListByToken", mock.Anything, token, 1, 20).Return(events, nil)
	repo.On("CountByToken", mock.Anything, token).Return(int64(1), nil)

	svc := NewEventHistoryService(f.svc, repo)

	got, total, err := svc.List(ctx, alice, token, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, events, got)

	_, _, err = svc.List(ctx, bob, token, 1, 20)
	assert.ErrorIs(t, err, utils.ErrNotAMember)

	_, _, err = svc.List(ctx, alice, "missing1", 1, 20)
	assert.ErrorIs(t, err, utils.ErrSessionNotFound)

	repo.AssertExpectations(t)
}

func TestEventHistoryService_Prune(t *testing.T) {
	repo := new(MockSessionEventRepository)
	svc := NewEventHistoryService(nil, repo)

	before := time.Now().UTC()
	repo.On("DeleteOlderThan", mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
		return cutoff.Before(before.Add(-23*time.Hour)) && cutoff.After(before.Add(-25*time.Hour))
	})).Return(int64(3), nil).Once()

	removed, err := svc.Prune(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	removed, err = svc.Prune(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, removed)

	repo.On("DeleteOlderThan", mock.Anything, mock.Anything).Return(int64(0), errors.New("db gone")).Once()
	_, err = svc.Prune(context.Background(), time.Hour)
	assert.ErrorContains(t, err, "db gone")

	repo.AssertExpectations(t)
}
