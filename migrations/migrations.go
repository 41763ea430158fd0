// Package migrations manages the schema of the optional SQL event history.
//
// Applied migrations are listed in the schema_migrations table. A pending
// migration whose table already exists is only recorded, so the migrator can
// run on every startup.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/constants"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/database"
)

// Migration is one schema change. TableName is the table it creates and is
// used to detect schemas that predate the migrations table.
type Migration struct {
	Name        string
	Description string
	TableName   string
	RunSQL      func(ctx context.Context, tx *sql.Tx, driver string) error
}

// GetMigrations returns every migration in apply order.
func GetMigrations() []Migration {
	return []Migration{
		createSessionEventsTable(),
	}
}

type Migrator struct {
	db *database.Pool
}

func NewMigrator(db *database.Pool) *Migrator {
	return &Migrator{db: db}
}

// outcome of a single migration
type outcome int

const (
	skipped outcome = iota
	applied
	recorded
)

// RunMigrations applies every pending migration in order and stops at the
// first failure.
func (m *Migrator) RunMigrations(ctx context.Context) error {
	start := time.Now()
	log.Info().Str("driver", m.db.Driver).Msg("Running database migrations")

	if _, err := m.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			name VARCHAR(255) PRIMARY KEY,
			description TEXT,
			executed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`, constants.TableMigrations)); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	done, err := m.executed(ctx)
	if err != nil {
		return fmt.Errorf("failed to get executed migrations: %w", err)
	}

	all := GetMigrations()
	counts := map[outcome]int{}
	for _, mig := range all {
		if done[mig.Name] {
			counts[skipped]++
			continue
		}
		res, err := m.apply(ctx, mig)
		if err != nil {
			return err
		}
		counts[res]++
	}

	log.Info().
		Int("migrations_run", counts[applied]).
		Int("migrations_recorded", counts[recorded]).
		Int("total_migrations", len(all)).
		Dur("duration", time.Since(start)).
		Msg("Database migrations completed")
	return nil
}

// apply runs one pending migration, or only records it when its table is
// already there.
func (m *Migrator) apply(ctx context.Context, mig Migration) (outcome, error) {
	logger := log.With().Str("migration", mig.Name).Str("table", mig.TableName).Logger()

	exists, err := m.tableExists(ctx, mig.TableName)
	if err != nil {
		return skipped, fmt.Errorf("failed to check if table %s exists: %w", mig.TableName, err)
	}

	if exists {
		logger.Info().Msg("Table already exists, recording migration as completed")
		if _, err := m.db.ExecContext(ctx, m.insertQuery(), mig.Name, mig.Description); err != nil {
			return skipped, fmt.Errorf("failed to record migration: %w", err)
		}
		return recorded, nil
	}

	logger.Info().Msg("Running migration")
	err = m.db.Transaction(ctx, func(tx *sql.Tx) error {
		if err := mig.RunSQL(ctx, tx, m.db.Driver); err != nil {
			return fmt.Errorf("migration %s failed: %w", mig.Name, err)
		}
		if _, err := tx.ExecContext(ctx, m.insertQuery(), mig.Name, mig.Description); err != nil {
			return fmt.Errorf("failed to record migration: %w", err)
		}
		return nil
	})
	if err != nil {
		return skipped, err
	}
	return applied, nil
}

func (m *Migrator) executed(ctx context.Context) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT name FROM "+constants.TableMigrations)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names[name] = true
	}
	return names, rows.Err()
}

func (m *Migrator) insertQuery() string {
	return m.db.Rebind("INSERT INTO " + constants.TableMigrations + " (name, description) VALUES (?, ?)")
}

// tableExists looks the table up in the connection's current schema.
func (m *Migrator) tableExists(ctx context.Context, table string) (bool, error) {
	schema := "current_schema()"
	if m.db.Driver == constants.DriverMySQL {
		schema = "DATABASE()"
	}

	var count int
	err := m.db.QueryRowContext(ctx, m.db.Rebind(
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = "+schema+" AND table_name = ?",
	), table).Scan(&count)
	return count > 0, err
}
