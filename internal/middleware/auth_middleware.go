package middleware

import (
	"net/http"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/auth"
)

// JWTAuth requires a valid access token on every request it wraps.
func JWTAuth(jwtService auth.JWTValidator) func(http.Handler) http.Handler {
	return auth.RequireAuth(auth.NewJWTAuthProvider(jwtService))
}

// OptionalJWTAuth identifies callers holding a valid access token and lets
// everyone else through.
func OptionalJWTAuth(jwtService auth.JWTValidator) func(http.Handler) http.Handler {
	return auth.OptionalAuth(auth.NewJWTAuthProvider(jwtService))
}
