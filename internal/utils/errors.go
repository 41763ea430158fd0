package utils

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// Sentinel errors. Every AppError wraps exactly one of these so callers can
// branch with errors.Is.
var (
	ErrNotFound        = errors.New("resource not found")
	ErrUnauthorized    = errors.New("unauthorized access")
	ErrForbidden       = errors.New("forbidden access")
	ErrBadRequest      = errors.New("invalid request")
	ErrInternalServer  = errors.New("internal server error")
	ErrValidation      = errors.New("validation error")
	ErrDuplicate       = errors.New("duplicate resource")
	ErrAuthFailed      = errors.New("invalid session credentials")
	ErrExpiredToken    = errors.New("expired token")
	ErrInvalidToken    = errors.New("invalid token")
	ErrSessionNotFound = errors.New("session not found")
	ErrFileNotFound    = errors.New("file not found")
	ErrNotAMember      = errors.New("not a session participant")
	ErrNoFile          = errors.New("no file provided")
	ErrNoActiveSession = errors.New("no active session")
)

// AppError is an error that knows how it should be rendered to a client.
type AppError struct {
	Err        error
	StatusCode int
	Message    string
	// DevInfo is logged but never sent to clients.
	DevInfo string
	Field   string
	Details map[string]any
}

func (e *AppError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// New wraps err with a status code and a client facing message.
func New(err error, statusCode int, message string) *AppError {
	return &AppError{Err: err, StatusCode: statusCode, Message: message}
}

func NewValidationError(field, message string) *AppError {
	appErr := New(ErrValidation, http.StatusBadRequest, message)
	appErr.Field = field
	return appErr
}

func NewBadRequestError(message string) *AppError {
	return New(ErrBadRequest, http.StatusBadRequest, message)
}

// NewNotFoundError names the missing resource in the message.
func NewNotFoundError(resourceType string, identifier any) *AppError {
	return New(ErrNotFound, http.StatusNotFound,
		fmt.Sprintf("%s with identifier '%v' not found", resourceType, identifier))
}

func NewForbiddenError(message string) *AppError {
	if message == "" {
		message = "You don't have permission to access this resource"
	}
	return New(ErrForbidden, http.StatusForbidden, message)
}

// NewInternalServerError hides err from the client and keeps it in DevInfo.
func NewInternalServerError(err error) *AppError {
	appErr := New(ErrInternalServer, http.StatusInternalServerError, "An internal server error occurred")
	if err != nil {
		appErr.DevInfo = err.Error()
	}
	return appErr
}

// NewAuthFailedError is returned when a join attempt presents credentials
// that do not match the session.
func NewAuthFailedError() *AppError {
	return New(ErrAuthFailed, http.StatusUnauthorized, "Invalid session credentials")
}

func NewExpiredTokenError() *AppError {
	return New(ErrExpiredToken, http.StatusUnauthorized, "Token has expired")
}

func NewInvalidTokenError() *AppError {
	return New(ErrInvalidToken, http.StatusUnauthorized, "Invalid token")
}

// NewSessionNotFoundError covers both missing and closed sessions.
func NewSessionNotFoundError(token string) *AppError {
	appErr := New(ErrSessionNotFound, http.StatusNotFound, "Session not found or no longer available")
	if token != "" {
		appErr.Details = map[string]any{"token": token}
	}
	return appErr
}

func NewFileNotFoundError(filename string) *AppError {
	appErr := New(ErrFileNotFound, http.StatusNotFound, "File not found")
	if filename != "" {
		appErr.Details = map[string]any{"filename": filename}
	}
	return appErr
}

func NewNotAMemberError() *AppError {
	return New(ErrNotAMember, http.StatusForbidden, "You must join this session first")
}

func NewNoFileError() *AppError {
	appErr := New(ErrNoFile, http.StatusBadRequest, "No file provided")
	appErr.Field = "file"
	return appErr
}

// NewNoActiveSessionError is returned by LAN operations while no session runs.
func NewNoActiveSessionError() *AppError {
	return New(ErrNoActiveSession, http.StatusConflict, "No active LAN session")
}

// sentinelErrors maps bare sentinels to the AppError they stand for.
var sentinelErrors = []struct {
	err  error
	make func(error) *AppError
}{
	{ErrSessionNotFound, func(error) *AppError { return NewSessionNotFoundError("") }},
	{ErrFileNotFound, func(error) *AppError { return NewFileNotFoundError("") }},
	{ErrNotAMember, func(error) *AppError { return NewNotAMemberError() }},
	{ErrNoFile, func(error) *AppError { return NewNoFileError() }},
	{ErrNoActiveSession, func(error) *AppError { return NewNoActiveSessionError() }},
	{ErrAuthFailed, func(error) *AppError { return NewAuthFailedError() }},
	{ErrExpiredToken, func(error) *AppError { return NewExpiredTokenError() }},
	{ErrInvalidToken, func(error) *AppError { return NewInvalidTokenError() }},
	{ErrNotFound, func(error) *AppError { return NewNotFoundError("Resource", "") }},
	{ErrUnauthorized, func(error) *AppError {
		return New(ErrUnauthorized, http.StatusUnauthorized, "Authentication required")
	}},
	{ErrForbidden, func(error) *AppError { return NewForbiddenError("") }},
	{ErrBadRequest, func(err error) *AppError { return NewBadRequestError(err.Error()) }},
	{ErrValidation, func(err error) *AppError { return NewValidationError("", err.Error()) }},
	{ErrDuplicate, func(err error) *AppError { return duplicateError(err, "") }},
}

func duplicateError(cause error, field string) *AppError {
	appErr := New(ErrDuplicate, http.StatusConflict, "A resource with the same unique identifier already exists")
	appErr.DevInfo = cause.Error()
	appErr.Field = field
	return appErr
}

// ParseError converts any error into an AppError. AppErrors pass through,
// known sentinels and driver errors are mapped, anything else becomes a 500.
func ParseError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	for _, s := range sentinelErrors {
		if errors.Is(err, s.err) {
			return s.make(err)
		}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return duplicateError(pqErr, pqErr.Column)
		case "23502": // not_null_violation
			appErr := NewValidationError(pqErr.Column, fmt.Sprintf("The %s field cannot be empty", pqErr.Column))
			appErr.DevInfo = pqErr.Error()
			return appErr
		}
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return duplicateError(myErr, "")
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "duplicate key"), strings.Contains(msg, "unique constraint"):
		return duplicateError(err, "")
	case strings.Contains(msg, "no rows"):
		appErr := New(ErrNotFound, http.StatusNotFound, "The requested resource could not be found")
		appErr.DevInfo = err.Error()
		return appErr
	}

	return NewInternalServerError(err)
}

// IsValidationError reports whether err is or wraps ErrValidation.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// StatusCode returns the HTTP status for err, 500 for anything that is not
// an AppError.
func StatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
