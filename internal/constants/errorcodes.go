// Package constants provides shared constant values used throughout the application.
//
// The errorcodes.go file defines user-facing messages and log categories.
// Messages avoid revealing whether a session exists when credentials are wrong.
package constants

// User-Facing Error Messages
const (
	MsgAuthRequired        = "Authentication required"
	MsgInternalServerError = "An internal server error occurred"
	MsgTokenExpired        = "Authentication token has expired"
	MsgRequestBodyTooLarge = "Request body too large"
	MsgEmptyRequestBody    = "Request body must not be empty"
	MsgMalformedJSON       = "Request body contains malformed JSON"
	MsgResourceNotFound    = "The requested resource could not be found"
	MsgMethodNotAllowed    = "This method is not allowed for this resource"
	MsgRateLimited         = "Too many requests, please slow down"
	MsgSessionEnded        = "Session ended"
	MsgAutoExpireSet       = "Auto-expire updated"
	MsgJoinedSession       = "Joined session"
)

// Log Categories
const (
	LogCategorySession = "session"
	LogCategoryJanitor = "janitor"
	LogRedactedValue   = "[REDACTED]"
)
