package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/models"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/repository"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/utils"
)

// ParticipantChecker reports whether a user has joined a session
type ParticipantChecker interface {
	IsParticipant(ctx context.Context, user models.Identity, token string) (bool, error)
}

// EventHistoryService serves the recorded events of a session to its participants
type EventHistoryService struct {
	sessions ParticipantChecker
	events   repository.SessionEventRepository
}

// NewEventHistoryService creates a new EventHistoryService
func NewEventHistoryService(sessions ParticipantChecker, events repository.SessionEventRepository) *EventHistoryService {
	return &EventHistoryService{
		sessions: sessions,
		events:   events,
	}
}

// List returns one page of a session's events, oldest first, and the total number of events.
func (s *EventHistoryService) List(ctx context.Context, user models.Identity, token string, page, pageSize int) ([]*models.SessionEvent, int64, error) {
	ok, err := s.sessions.IsParticipant(ctx, user, token)
	if err != nil {
		return nil, 0, err
	}
	if !ok {
		return nil, 0, utils.NewNotAMemberError()
	}

	events, err := s.events.ListByToken(ctx, token, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.events.CountByToken(ctx, token)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// Prune removes events older than retention.
func (s *EventHistoryService) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}

	removed, err := s.events.DeleteOlderThan(ctx, time.Now().UTC().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("failed to prune session events: %w", err)
	}
	if removed > 0 {
		log.Info().Int64("removed", removed).Dur("retention", retention).Msg("Pruned session event history")
	}
	return removed, nil
}
