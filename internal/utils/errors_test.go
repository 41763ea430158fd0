package utils_test

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/utils"
)

func TestAppError(t *testing.T) {
	cause := errors.New("disk quota")
	appErr := utils.New(cause, http.StatusRequestEntityTooLarge, "Upload too large")

	assert.Equal(t, "Upload too large", appErr.Error())
	assert.ErrorIs(t, appErr, cause)

	field := utils.NewValidationError("username", "Username is required")
	assert.Equal(t, "username: Username is required", field.Error())
	assert.Equal(t, "General", utils.NewValidationError("", "General").Error())
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *utils.AppError
		sentinel error
		status   int
	}{
		{"validation", utils.NewValidationError("password", "required"), utils.ErrValidation, http.StatusBadRequest},
		{"bad request", utils.NewBadRequestError("minutes must be positive"), utils.ErrBadRequest, http.StatusBadRequest},
		{"not found", utils.NewNotFoundError("LAN session", "active"), utils.ErrNotFound, http.StatusNotFound},
		{"forbidden", utils.NewForbiddenError(""), utils.ErrForbidden, http.StatusForbidden},
		{"auth failed", utils.NewAuthFailedError(), utils.ErrAuthFailed, http.StatusUnauthorized},
		{"expired token", utils.NewExpiredTokenError(), utils.ErrExpiredToken, http.StatusUnauthorized},
		{"invalid token", utils.NewInvalidTokenError(), utils.ErrInvalidToken, http.StatusUnauthorized},
		{"session not found", utils.NewSessionNotFoundError("abc"), utils.ErrSessionNotFound, http.StatusNotFound},
		{"file not found", utils.NewFileNotFoundError("a.txt"), utils.ErrFileNotFound, http.StatusNotFound},
		{"not a member", utils.NewNotAMemberError(), utils.ErrNotAMember, http.StatusForbidden},
		{"no file", utils.NewNoFileError(), utils.ErrNoFile, http.StatusBadRequest},
		{"no active session", utils.NewNoActiveSessionError(), utils.ErrNoActiveSession, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.StatusCode)
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestConstructorDetails(t *testing.T) {
	assert.Equal(t, "LAN session with identifier 'active' not found", utils.NewNotFoundError("LAN session", "active").Message)
	assert.Equal(t, map[string]any{"token": "abc"}, utils.NewSessionNotFoundError("abc").Details)
	assert.Nil(t, utils.NewSessionNotFoundError("").Details)
	assert.Equal(t, map[string]any{"filename": "a.txt"}, utils.NewFileNotFoundError("a.txt").Details)
	assert.Equal(t, "file", utils.NewNoFileError().Field)
	assert.Equal(t, "Only the owner", utils.NewForbiddenError("Only the owner").Message)
}

func TestNewInternalServerError(t *testing.T) {
	appErr := utils.NewInternalServerError(errors.New("disk full"))
	assert.Equal(t, http.StatusInternalServerError, appErr.StatusCode)
	assert.Equal(t, "disk full", appErr.DevInfo)
	assert.NotContains(t, appErr.Message, "disk full")

	assert.Empty(t, utils.NewInternalServerError(nil).DevInfo)
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, utils.IsValidationError(utils.NewValidationError("password", "required")))
	assert.True(t, utils.IsValidationError(fmt.Errorf("create: %w", utils.ErrValidation)))
	assert.False(t, utils.IsValidationError(utils.NewNoFileError()))
	assert.False(t, utils.IsValidationError(errors.New("plain")))
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusConflict, utils.StatusCode(utils.NewNoActiveSessionError()))
	assert.Equal(t, http.StatusForbidden, utils.StatusCode(fmt.Errorf("end: %w", utils.NewNotAMemberError())))
	assert.Equal(t, http.StatusInternalServerError, utils.StatusCode(errors.New("plain")))
}

func TestParseError(t *testing.T) {
	member := utils.NewNotAMemberError()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantErr    error
	}{
		{"AppError passthrough", member, http.StatusForbidden, utils.ErrNotAMember},
		{"Wrapped AppError", fmt.Errorf("join: %w", member), http.StatusForbidden, utils.ErrNotAMember},
		{"session not found", fmt.Errorf("view: %w", utils.ErrSessionNotFound), http.StatusNotFound, utils.ErrSessionNotFound},
		{"file not found", utils.ErrFileNotFound, http.StatusNotFound, utils.ErrFileNotFound},
		{"no file", utils.ErrNoFile, http.StatusBadRequest, utils.ErrNoFile},
		{"no active session", utils.ErrNoActiveSession, http.StatusConflict, utils.ErrNoActiveSession},
		{"auth failed", utils.ErrAuthFailed, http.StatusUnauthorized, utils.ErrAuthFailed},
		{"unauthorized", utils.ErrUnauthorized, http.StatusUnauthorized, utils.ErrUnauthorized},
		{"forbidden", utils.ErrForbidden, http.StatusForbidden, utils.ErrForbidden},
		{"bad request", utils.ErrBadRequest, http.StatusBadRequest, utils.ErrBadRequest},
		{"validation", utils.ErrValidation, http.StatusBadRequest, utils.ErrValidation},
		{"duplicate", utils.ErrDuplicate, http.StatusConflict, utils.ErrDuplicate},
		{"expired token", utils.ErrExpiredToken, http.StatusUnauthorized, utils.ErrExpiredToken},
		{"invalid token", utils.ErrInvalidToken, http.StatusUnauthorized, utils.ErrInvalidToken},
		{"pq unique violation", &pq.Error{Code: "23505"}, http.StatusConflict, utils.ErrDuplicate},
		{"pq not null violation", &pq.Error{Code: "23502", Column: "token"}, http.StatusBadRequest, utils.ErrValidation},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, http.StatusConflict, utils.ErrDuplicate},
		{"duplicate key text", errors.New("ERROR: duplicate key value"), http.StatusConflict, utils.ErrDuplicate},
		{"no rows", sql.ErrNoRows, http.StatusNotFound, utils.ErrNotFound},
		{"unknown", errors.New("something odd"), http.StatusInternalServerError, utils.ErrInternalServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := utils.ParseError(tt.err)
			assert.Equal(t, tt.wantStatus, appErr.StatusCode)
			assert.ErrorIs(t, appErr, tt.wantErr)
		})
	}

	assert.Same(t, member, utils.ParseError(member))
	assert.Equal(t, "token", utils.ParseError(&pq.Error{Code: "23502", Column: "token"}).Field)
}
