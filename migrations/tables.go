package migrations

import (
	"context"
	"database/sql"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/constants"
)

// createSessionEventsTable creates the session_events table holding the
// history of realtime events per session
func createSessionEventsTable() Migration {
	return Migration{
		Name:        "create_session_events_table",
		Description: "Creates the session_events table",
		TableName:   constants.TableSessionEvents,
		RunSQL: func(ctx context.Context, tx *sql.Tx, driver string) error {
			query := `
				CREATE TABLE IF NOT EXISTS session_events (
					event_id VARCHAR(36) PRIMARY KEY,
					token VARCHAR(64) NOT NULL,
					event_type VARCHAR(50) NOT NULL,
					payload TEXT NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
				)
			`
			if _, err := tx.ExecContext(ctx, query); err != nil {
				return err
			}

			// MySQL has no CREATE INDEX IF NOT EXISTS; the table is new there anyway
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_session_events_token ON session_events(token, created_at)`,
				`CREATE INDEX IF NOT EXISTS idx_session_events_created_at ON session_events(created_at)`,
			}
			if driver == constants.DriverMySQL {
				indexes = []string{
					`CREATE INDEX idx_session_events_token ON session_events(token, created_at)`,
					`CREATE INDEX idx_session_events_created_at ON session_events(created_at)`,
				}
			}

			for _, idx := range indexes {
				if _, err := tx.ExecContext(ctx, idx); err != nil {
					return err
				}
			}

			return nil
		},
	}
}
