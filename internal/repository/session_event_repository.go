package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/constants"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/database"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/models"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/utils"
)

// SessionEventRepository stores the history of realtime events per session.
type SessionEventRepository interface {
	// Create records an event.
	Create(ctx context.Context, event *models.SessionEvent) error

	// ListByToken returns the events of a session, oldest first, one page at a time.
	ListByToken(ctx context.Context, token string, page, pageSize int) ([]*models.SessionEvent, error)

	// CountByToken returns how many events a session has.
	CountByToken(ctx context.Context, token string) (int64, error)

	// DeleteOlderThan removes events recorded before cutoff and returns how many were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// SQLSessionEventRepository implements SessionEventRepository over the SQL pool.
type SQLSessionEventRepository struct {
	db   *database.Pool
	crud *database.CRUD
}

// NewSessionEventRepository creates a new event history repository.
func NewSessionEventRepository(db *database.Pool) SessionEventRepository {
	return &SQLSessionEventRepository{
		db:   db,
		crud: database.NewCRUD(db),
	}
}

// Create records an event.
func (r *SQLSessionEventRepository) Create(ctx context.Context, event *models.SessionEvent) error {
	start := time.Now()
	err := r.crud.Create(ctx, event)
	utils.LogDBQuery("INSERT INTO "+constants.TableSessionEvents, []interface{}{event.ID, event.Token, event.EventType}, time.Since(start), err)
	if err != nil {
		return utils.ParseError(err)
	}
	return nil
}

// ListByToken returns the events of a session, oldest first.
func (r *SQLSessionEventRepository) ListByToken(ctx context.Context, token string, page, pageSize int) ([]*models.SessionEvent, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = constants.DefaultPageSize
	}

	events := make([]*models.SessionEvent, 0)
	err := r.crud.List(ctx, &models.SessionEvent{}, &events,
		map[string]interface{}{constants.ColumnToken: token},
		database.ListOptions{
			OrderBy: constants.ColumnCreatedAt + " ASC",
			Limit:   pageSize,
			Offset:  (page - 1) * pageSize,
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list session events: %w", err)
	}
	return events, nil
}

// CountByToken returns how many events a session has.
func (r *SQLSessionEventRepository) CountByToken(ctx context.Context, token string) (int64, error) {
	count, err := r.crud.Count(ctx, &models.SessionEvent{}, map[string]interface{}{constants.ColumnToken: token})
	if err != nil {
		return 0, fmt.Errorf("failed to count session events: %w", err)
	}
	return count, nil
}

// DeleteOlderThan removes events recorded before cutoff.
func (r *SQLSessionEventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := r.db.Rebind(fmt.Sprintf("DELETE FROM %s WHERE %s < ?", constants.TableSessionEvents, constants.ColumnCreatedAt))

	start := time.Now()
	result, err := r.db.ExecContext(ctx, query, cutoff)
	utils.LogDBQuery(query, []interface{}{cutoff}, time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("failed to prune session events: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error getting rows affected: %w", err)
	}
	return removed, nil
}
