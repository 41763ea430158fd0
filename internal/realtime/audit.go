package realtime

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/models"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/repository"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/utils"
)

// AuditingPublisher records every event in the session event history before
// handing it to the next publisher. Failing to record never blocks delivery.
type AuditingPublisher struct {
	next   Publisher
	events repository.SessionEventRepository
}

// NewAuditingPublisher wraps next so its events are also recorded.
func NewAuditingPublisher(next Publisher, events repository.SessionEventRepository) *AuditingPublisher {
	return &AuditingPublisher{next: next, events: events}
}

// Publish records the event, then delivers it.
func (p *AuditingPublisher) Publish(ctx context.Context, event Event) error {
	record := models.NewSessionEvent(event.Token, event.Type, event.Data)
	if err := p.events.Create(ctx, record); err != nil {
		log.Warn().
			Err(err).
			Str("token", utils.RedactToken(event.Token)).
			Str("event", event.Type).
			Msg("Failed to record session event")
	}
	return p.next.Publish(ctx, event)
}
