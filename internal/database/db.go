// Package database provides access to the optional SQL store holding the
// session event history. MySQL and PostgreSQL are supported.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql" // Import MySQL driver
	_ "github.com/lib/pq"              // Import PostgreSQL driver
	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/config"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/constants"
)

// Pool is the connection pool of the event history. Driver decides the
// placeholder style, see Rebind.
type Pool struct {
	*sql.DB
	Driver string
}

// Connect opens and pings the configured database. For MySQL the schema is
// created first when missing.
func Connect(cfg *config.AppConfig) (*Pool, error) {
	dbc := cfg.Database
	ctx, cancel := context.WithTimeout(context.Background(), constants.DBConnectionTimeout)
	defer cancel()

	log.Info().
		Str("driver", dbc.Driver).
		Str("host", dbc.Host).
		Int("port", dbc.Port).
		Str("database", dbc.Name).
		Str("user", dbc.User).
		Msg("Connecting to database")

	if dbc.Driver == constants.DriverMySQL {
		if err := ensureMySQLDatabase(ctx, dbc); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(dbc.Driver, dbc.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(dbc.MaxConns)
	db.SetMaxIdleConns(dbc.MinConns)
	db.SetConnMaxLifetime(constants.DBConnMaxLifetime)
	db.SetConnMaxIdleTime(constants.DBConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Str("driver", dbc.Driver).Msg("Connected to database")
	return &Pool{DB: db, Driver: dbc.Driver}, nil
}

// ensureMySQLDatabase connects without a schema and creates dbc.Name.
func ensureMySQLDatabase(ctx context.Context, dbc config.DatabaseSettings) error {
	name := dbc.Name
	dbc.Name = ""

	server, err := sql.Open(constants.DriverMySQL, dbc.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to connect to root database: %w", err)
	}
	defer server.Close()

	if _, err := server.ExecContext(ctx, "CREATE DATABASE IF NOT EXISTS `"+strings.ReplaceAll(name, "`", "")+"`"); err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	log.Info().Str("database", name).Msg("Ensured database exists")
	return nil
}

// Close is safe on a nil pool.
func (p *Pool) Close() {
	if p == nil || p.DB == nil {
		return
	}
	log.Info().Msg("Closing database connection pool")
	if err := p.DB.Close(); err != nil {
		log.Warn().Err(err).Msg("Closing database connection pool failed")
	}
}

// Rebind rewrites ? placeholders to $n for PostgreSQL and returns query
// unchanged otherwise. Queries must not contain literal question marks.
func (p *Pool) Rebind(query string) string {
	if p == nil || p.Driver != constants.DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r != '?' {
			b.WriteRune(r)
			continue
		}
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}

// Transaction runs fn in a transaction. It commits when fn returns nil and
// rolls back when fn fails or panics. A panic is re-raised after rollback.
func (p *Pool) Transaction(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := p.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		rec := recover()
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("Failed to rollback transaction")
			if rec == nil && err != nil {
				err = fmt.Errorf("failed to rollback transaction: %w", rbErr)
			}
		}
		if rec != nil {
			panic(rec)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		committed = true
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

// HealthCheck pings the database and runs SELECT 1.
func (p *Pool) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DBHealthCheckTimeout)
	defer cancel()

	if err := p.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	var one int
	if err := p.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database query test failed: %w", err)
	}
	if one != 1 {
		return fmt.Errorf("database returned unexpected result: %d", one)
	}
	return nil
}
