package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/constants"
)

func newMockPool(t *testing.T, driver string) (*Pool, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &Pool{DB: db, Driver: driver}, mock
}

func TestClose(t *testing.T) {
	pool, mock := newMockPool(t, constants.DriverMySQL)
	mock.ExpectClose()

	pool.Close()
	assert.NoError(t, mock.ExpectationsWereMet())

	// Neither of these may panic
	(&Pool{}).Close()
	var nilPool *Pool
	nilPool.Close()
}

func TestRebind(t *testing.T) {
	query := "DELETE FROM session_events WHERE token = ? AND created_at < ?"

	tests := []struct {
		name string
		pool *Pool
		want string
	}{
		{"MySQL keeps question marks", &Pool{Driver: constants.DriverMySQL}, query},
		{"Postgres numbers placeholders", &Pool{Driver: constants.DriverPostgres},
			"DELETE FROM session_events WHERE token = $1 AND created_at < $2"},
		{"Nil pool", nil, query},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pool.Rebind(query))
		})
	}
}

func TestTransaction(t *testing.T) {
	errStep := errors.New("step failed")

	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		fn      func(tx *sql.Tx) error
		wantErr string
	}{
		{
			name: "Commit on success",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO schema_migrations").WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectCommit()
			},
			fn: func(tx *sql.Tx) error {
				_, err := tx.Exec("INSERT INTO schema_migrations (name) VALUES (?)", "001")
				return err
			},
		},
		{
			name: "Rollback when the function fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectRollback()
			},
			fn:      func(tx *sql.Tx) error { return errStep },
			wantErr: "step failed",
		},
		{
			name: "Begin fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(errors.New("no connection"))
			},
			fn:      func(tx *sql.Tx) error { return nil },
			wantErr: "failed to begin transaction",
		},
		{
			name: "Commit fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectCommit().WillReturnError(errors.New("lost connection"))
			},
			fn:      func(tx *sql.Tx) error { return nil },
			wantErr: "failed to commit transaction",
		},
		{
			name: "Rollback fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectRollback().WillReturnError(errors.New("lost connection"))
			},
			fn:      func(tx *sql.Tx) error { return errStep },
			wantErr: "failed to rollback transaction",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, mock := newMockPool(t, constants.DriverMySQL)
			tt.setup(mock)

			err := pool.Transaction(context.Background(), tt.fn)

			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTransaction_RollsBackOnPanic(t *testing.T) {
	pool, mock := newMockPool(t, constants.DriverMySQL)
	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.PanicsWithValue(t, "boom", func() {
		_ = pool.Transaction(context.Background(), func(tx *sql.Tx) error {
			panic("boom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		wantErr string
	}{
		{
			name: "Healthy",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectPing()
				mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
			},
		},
		{
			name: "Ping fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectPing().WillReturnError(errors.New("refused"))
			},
			wantErr: "database health check failed",
		},
		{
			name: "Query fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectPing()
				mock.ExpectQuery("SELECT 1").WillReturnError(errors.New("query error"))
			},
			wantErr: "database query test failed",
		},
		{
			name: "Unexpected result",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectPing()
				mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(2))
			},
			wantErr: "database returned unexpected result",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, mock := newMockPool(t, constants.DriverPostgres)
			tt.setup(mock)

			err := pool.HealthCheck(context.Background())

			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
