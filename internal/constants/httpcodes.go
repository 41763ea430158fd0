// Package constants provides shared constant values used throughout the application.
//
// The httpcodes.go file defines the status codes, machine readable error
// codes, headers and content types of the JSON API.
package constants

// HTTP Status Codes
const (
	StatusOK               = 200
	StatusCreated          = 201
	StatusBadRequest       = 400
	StatusUnauthorized     = 401
	StatusNotFound         = 404
	StatusMethodNotAllowed = 405
	StatusTooManyRequests  = 429
)

// Response envelope success flags.
const (
	ResponseSuccess = true
	ResponseFailure = false
)

// Error Codes are sent in the "code" field of error responses. Clients
// branch on these, never on the message text.
const (
	CodeBadRequest       = "bad_request"
	CodeUnauthorized     = "unauthorized"
	CodeForbidden        = "forbidden"
	CodeNotFound         = "not_found"
	CodeMethodNotAllowed = "method_not_allowed"
	CodeInternalError    = "internal_error"
	CodeValidationError  = "validation_error"
	CodeRateLimited      = "rate_limited"

	// Access token problems
	CodeTokenExpired = "token_expired"
	CodeTokenInvalid = "token_invalid"

	// CodeAuthFailed means a session password or OTP did not match.
	CodeAuthFailed = "auth_failed"

	// CodeDuplicateResource maps unique key violations in the event history.
	CodeDuplicateResource = "duplicate_resource"

	// Session errors
	CodeSessionNotFound = "session_not_found"
	CodeFileNotFound    = "file_not_found"
	CodeNotAMember      = "not_a_member"
	CodeNoFile          = "no_file"

	// CodeNoActiveSession is returned by LAN routes while no LAN session runs.
	CodeNoActiveSession = "no_active_session"
)

// HTTP Header Names
const (
	HeaderContentType        = "Content-Type"
	HeaderContentLength      = "Content-Length"
	HeaderContentDisposition = "Content-Disposition"
	HeaderCacheControl       = "Cache-Control"
	HeaderPragma             = "Pragma"
	HeaderExpires            = "Expires"
	HeaderAuthorization      = "Authorization"
	HeaderXRequestID         = "X-Request-ID"
	HeaderRetryAfter         = "Retry-After"

	HeaderXContentTypeOptions   = "X-Content-Type-Options"
	HeaderXFrameOptions         = "X-Frame-Options"
	HeaderXXSSProtection        = "X-XSS-Protection"
	HeaderReferrerPolicy        = "Referrer-Policy"
	HeaderContentSecurityPolicy = "Content-Security-Policy"
)

// Content Types
const (
	ContentTypeJSON        = "application/json"
	ContentTypeOctetStream = "application/octet-stream"
)

// Header values set by the security middleware and on file downloads.
const (
	FrameOptionsDeny           = "DENY"
	XSSProtectionModeBlock     = "1; mode=block"
	ContentTypeOptionsNoSniff  = "nosniff"
	ReferrerPolicyStrictOrigin = "strict-origin-when-cross-origin"
	CSPDefaultSrc              = "default-src 'self'"
	CacheControlNoStore        = "no-cache, no-store, must-revalidate"
	PragmaNoCache              = "no-cache"
	ExpiresZero                = "0"
)
