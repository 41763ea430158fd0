// Package utils holds the HTTP plumbing shared by every handler: the JSON
// envelope, application errors, request validation and logging helpers.
//
// Every JSON response has the same shape:
//
//	{"success": bool, "data": ..., "error": {"code", "message", "details"}, "meta": {...}}
//
// Clients branch on error.code; error.message is for humans.
package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/constants"
)

// Response is the envelope of every JSON response.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Meta    *MetaInfo   `json:"meta,omitempty"`
}

// ErrorInfo is the error part of a failed response.
type ErrorInfo struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// MetaInfo carries pagination for list responses.
type MetaInfo struct {
	Page       int `json:"page,omitempty"`
	PageSize   int `json:"page_size,omitempty"`
	TotalItems int `json:"total_items,omitempty"`
	TotalPages int `json:"total_pages,omitempty"`
}

// PaginationParams are the page and page_size query parameters after
// defaults and bounds have been applied.
type PaginationParams struct {
	Page     int
	PageSize int
}

// errorCodes maps sentinel errors to the code sent to clients. More specific
// sentinels come first.
var errorCodes = []struct {
	err  error
	code string
}{
	{ErrSessionNotFound, constants.CodeSessionNotFound},
	{ErrFileNotFound, constants.CodeFileNotFound},
	{ErrNotAMember, constants.CodeNotAMember},
	{ErrNoFile, constants.CodeNoFile},
	{ErrNoActiveSession, constants.CodeNoActiveSession},
	{ErrAuthFailed, constants.CodeAuthFailed},
	{ErrExpiredToken, constants.CodeTokenExpired},
	{ErrInvalidToken, constants.CodeTokenInvalid},
	{ErrNotFound, constants.CodeNotFound},
	{ErrBadRequest, constants.CodeBadRequest},
	{ErrUnauthorized, constants.CodeUnauthorized},
	{ErrForbidden, constants.CodeForbidden},
	{ErrValidation, constants.CodeValidationError},
	{ErrDuplicate, constants.CodeDuplicateResource},
}

// JSON writes data in a success envelope. Success follows the status code.
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	SendJSON(w, statusCode, Response{
		Success: statusCode >= 200 && statusCode < 300,
		Data:    data,
	})
}

// Paginated writes a list together with its pagination metadata.
func Paginated(w http.ResponseWriter, statusCode int, data interface{}, page, pageSize, totalItems int) {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (totalItems + pageSize - 1) / pageSize
	}

	SendJSON(w, statusCode, Response{
		Success: constants.ResponseSuccess,
		Data:    data,
		Meta: &MetaInfo{
			Page:       page,
			PageSize:   pageSize,
			TotalItems: totalItems,
			TotalPages: totalPages,
		},
	})
}

// Error writes an error envelope.
func Error(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	SendJSON(w, statusCode, Response{
		Success: constants.ResponseFailure,
		Error:   &ErrorInfo{Code: code, Message: message, Details: details},
	})
}

// ErrorFromAppError renders an AppError. A field error becomes a single
// detail keyed by the field, otherwise Details are stringified.
func ErrorFromAppError(w http.ResponseWriter, err *AppError) {
	code := constants.CodeInternalError
	for _, c := range errorCodes {
		if errors.Is(err.Err, c.err) {
			code = c.code
			break
		}
	}

	var details map[string]string
	switch {
	case err.Field != "":
		details = map[string]string{err.Field: err.Message}
	case len(err.Details) > 0:
		details = make(map[string]string, len(err.Details))
		for k, v := range err.Details {
			details[k] = fmt.Sprint(v)
		}
	}

	Error(w, err.StatusCode, code, err.Message, details)
}

// SendJSON marshals data before writing the header so a marshal failure can
// still be reported as a 500.
func SendJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	body, err := json.Marshal(data)
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		statusCode = http.StatusInternalServerError
		body = []byte(`{"success":false,"error":{"code":"` + constants.CodeInternalError + `","message":"Failed to generate response"}}`)
	}

	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// Attachment streams content as a download. The filename is sent plain and
// RFC 5987 encoded so non-ASCII names survive. A negative size omits
// Content-Length.
func Attachment(w http.ResponseWriter, content io.Reader, filename string, size int64) {
	h := w.Header()
	h.Set(constants.HeaderContentType, constants.ContentTypeOctetStream)
	if size >= 0 {
		h.Set(constants.HeaderContentLength, strconv.FormatInt(size, 10))
	}
	h.Set(constants.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`,
		strings.ReplaceAll(filename, `"`, ""), url.PathEscape(filename)))
	h.Set(constants.HeaderCacheControl, constants.CacheControlNoStore)
	h.Set(constants.HeaderPragma, constants.PragmaNoCache)
	h.Set(constants.HeaderExpires, constants.ExpiresZero)

	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, content); err != nil {
		log.Error().Err(err).Str("filename", filename).Msg("Failed to stream attachment")
	}
}

func BadRequest(w http.ResponseWriter, message string, details map[string]string) {
	Error(w, constants.StatusBadRequest, constants.CodeBadRequest, message, details)
}

func Unauthorized(w http.ResponseWriter, message string) {
	if message == "" {
		message = constants.MsgAuthRequired
	}
	Error(w, constants.StatusUnauthorized, constants.CodeUnauthorized, message, nil)
}

func NotFound(w http.ResponseWriter, message string) {
	if message == "" {
		message = constants.MsgResourceNotFound
	}
	Error(w, constants.StatusNotFound, constants.CodeNotFound, message, nil)
}

func MethodNotAllowed(w http.ResponseWriter) {
	Error(w, constants.StatusMethodNotAllowed, constants.CodeMethodNotAllowed, constants.MsgMethodNotAllowed, nil)
}

// TooManyRequests writes a 429 with a Retry-After of at least one second.
func TooManyRequests(w http.ResponseWriter, retryAfterSeconds int) {
	w.Header().Set(constants.HeaderRetryAfter, strconv.Itoa(max(retryAfterSeconds, 1)))
	Error(w, constants.StatusTooManyRequests, constants.CodeRateLimited, constants.MsgRateLimited, nil)
}

// GetPaginationParams reads page and page_size. Unparseable values fall back
// to the defaults, page is at least 1 and page_size is clamped to
// [MinPageSize, MaxPageSize].
func GetPaginationParams(r *http.Request) PaginationParams {
	q := r.URL.Query()
	return PaginationParams{
		Page:     max(queryInt(q, constants.QueryParamPage, constants.DefaultPage), 1),
		PageSize: min(max(queryInt(q, constants.QueryParamPageSize, constants.DefaultPageSize), constants.MinPageSize), constants.MaxPageSize),
	}
}

func queryInt(q url.Values, key string, fallback int) int {
	v, err := strconv.Atoi(q.Get(key))
	if err != nil {
		return fallback
	}
	return v
}
