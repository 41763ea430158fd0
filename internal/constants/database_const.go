// Package constants provides shared constant values used throughout the application.
//
// The database_const.go file defines the table and column names of the optional
// SQL event history, plus the supported driver names.
package constants

// Table Names
const (
	// TableSessionEvents stores the history of realtime events per session.
	TableSessionEvents = "session_events"

	// TableMigrations records which schema migrations have run.
	TableMigrations = "schema_migrations"
)

// Session Event Columns
const (
	ColumnEventID   = "event_id"
	ColumnToken     = "token"
	ColumnEventType = "event_type"
	ColumnPayload   = "payload"
	ColumnCreatedAt = "created_at"
)

// Database Drivers
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)
