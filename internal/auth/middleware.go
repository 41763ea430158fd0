// Package auth provides authentication for the SecureTransfer API: access token
// issuing and validation, the authentication middleware and secret hashing.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/constants"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/utils"
)

// ContextKey is a custom type for context keys to prevent collisions.
type ContextKey string

// Context keys for the authenticated caller and request metadata.
const (
	// UserIDContextKey holds the caller's user ID as int64.
	UserIDContextKey ContextKey = constants.UserIDContextKey

	// UsernameContextKey holds the caller's username.
	UsernameContextKey ContextKey = constants.UsernameContextKey

	// RequestIDContextKey holds the request ID used to correlate log lines.
	RequestIDContextKey ContextKey = constants.RequestIDContextKey
)

// AuthProvider authenticates a request from the credentials it carries.
type AuthProvider interface {
	// Authenticate returns the caller's user ID and username, or an error
	// when the request carries no valid credentials.
	Authenticate(r *http.Request) (int64, string, error)
}

// JWTAuthProvider authenticates requests carrying an access token.
type JWTAuthProvider struct {
	jwtService JWTValidator
}

// NewJWTAuthProvider creates a new JWTAuthProvider
func NewJWTAuthProvider(jwtService JWTValidator) *JWTAuthProvider {
	return &JWTAuthProvider{
		jwtService: jwtService,
	}
}

// Authenticate reads the bearer token from the Authorization header. On
// websocket upgrades, where browsers cannot set headers, the access_token
// query parameter is accepted instead.
//
// Parameters:
//   - r: The HTTP request to authenticate
//
// Returns:
//   - userID: The authenticated user's ID
//   - username: The authenticated user's username
//   - error: utils.ErrUnauthorized when no token is present, or the validation error
func (p *JWTAuthProvider) Authenticate(r *http.Request) (int64, string, error) {
	token, ok := bearerToken(r)
	if !ok {
		return 0, "", utils.ErrUnauthorized
	}

	claims, err := p.jwtService.ValidateToken(token, constants.TokenTypeAccess)
	if err != nil {
		return 0, "", err
	}

	return claims.UserID, claims.Username, nil
}

func bearerToken(r *http.Request) (string, bool) {
	if header := r.Header.Get(constants.HeaderAuthorization); header != "" {
		if !strings.HasPrefix(header, constants.BearerTokenPrefix) {
			return "", false
		}
		return strings.TrimPrefix(header, constants.BearerTokenPrefix), true
	}

	if !isWebSocketUpgrade(r) {
		return "", false
	}
	token := r.URL.Query().Get(constants.AccessTokenQueryParam)
	return token, token != ""
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// requestID reuses the ID assigned by the router's RequestID middleware,
// then the client's X-Request-ID header, and otherwise makes a new one.
func requestID(r *http.Request) string {
	if id := chimiddleware.GetReqID(r.Context()); id != "" {
		return id
	}
	if id := r.Header.Get(constants.HeaderXRequestID); id != "" {
		return id
	}
	return uuid.New().String()
}

// authenticate tries the providers in order and returns a context carrying
// the request ID and, on success, the caller's identity.
func authenticate(r *http.Request, providers []AuthProvider) (context.Context, string, error) {
	reqID := requestID(r)
	ctx := context.WithValue(r.Context(), RequestIDContextKey, reqID)

	lastErr := utils.ErrUnauthorized
	for _, provider := range providers {
		userID, username, err := provider.Authenticate(r)
		if err != nil {
			lastErr = err
			continue
		}

		ctx = context.WithValue(ctx, UserIDContextKey, userID)
		ctx = context.WithValue(ctx, UsernameContextKey, username)

		log.Debug().
			Int64(constants.UserIDContextKey, userID).
			Str(constants.RequestIDContextKey, reqID).
			Str("path", r.URL.Path).
			Msg("Request authenticated")
		return ctx, reqID, nil
	}
	return ctx, reqID, lastErr
}

// AuthMiddleware lets a request through only if one of the providers
// authenticates it. The caller's identity and the request ID are stored in
// the request context.
//
// Parameters:
//   - next: The HTTP handler to call if authentication succeeds
//   - providers: One or more authentication providers to try in order
//
// Returns:
//   - An HTTP handler that enforces authentication
func AuthMiddleware(next http.Handler, providers ...AuthProvider) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, reqID, err := authenticate(r, providers)
		if err == nil {
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		log.Info().
			Err(err).
			Str(constants.RequestIDContextKey, reqID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Authentication failed")

		writeAuthError(w, err)
	})
}

func writeAuthError(w http.ResponseWriter, err error) {
	var appErr *utils.AppError
	switch {
	case errors.As(err, &appErr):
		utils.ErrorFromAppError(w, appErr)
	case errors.Is(err, utils.ErrExpiredToken):
		utils.Error(w, constants.StatusUnauthorized, constants.CodeTokenExpired, constants.MsgTokenExpired, nil)
	default:
		utils.Unauthorized(w, constants.MsgAuthRequired)
	}
}

// RequireAuth returns a router middleware that requires authentication
func RequireAuth(providers ...AuthProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return AuthMiddleware(next, providers...)
	}
}

// OptionalAuth stores the caller's identity when a provider accepts the
// request and otherwise passes it on anonymously. Handlers decide what an
// anonymous caller may see.
func OptionalAuth(providers ...AuthProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, _, _ := authenticate(r, providers)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID returns the authenticated caller's user ID, if any.
func GetUserID(r *http.Request) (int64, bool) {
	userID, ok := r.Context().Value(UserIDContextKey).(int64)
	return userID, ok
}

// GetUsername returns the authenticated caller's username, if any.
func GetUsername(r *http.Request) (string, bool) {
	username, ok := r.Context().Value(UsernameContextKey).(string)
	return username, ok
}

// GetRequestID returns the request ID set by AuthMiddleware or, outside
// authenticated routes, by the router's RequestID middleware.
func GetRequestID(r *http.Request) (string, bool) {
	if id, ok := r.Context().Value(RequestIDContextKey).(string); ok {
		return id, true
	}
	if id := chimiddleware.GetReqID(r.Context()); id != "" {
		return id, true
	}
	return "", false
}
