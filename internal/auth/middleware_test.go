package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/auth"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/utils"
)

// MockJWTValidator implements the JWTValidator interface for testing
type MockJWTValidator struct {
	ValidateFunc func(string, string) (*auth.CustomClaims, error)
}

func (m *MockJWTValidator) ValidateToken(tokenString, expectedType string) (*auth.CustomClaims, error) {
	return m.ValidateFunc(tokenString, expectedType)
}

// MockAuthProvider implements the AuthProvider interface for testing
type MockAuthProvider struct {
	AuthenticateFunc func(r *http.Request) (int64, string, error)
}

func (m *MockAuthProvider) Authenticate(r *http.Request) (int64, string, error) {
	return m.AuthenticateFunc(r)
}

func providerReturning(id int64, username string, err error) *MockAuthProvider {
	return &MockAuthProvider{AuthenticateFunc: func(*http.Request) (int64, string, error) {
		return id, username, err
	}}
}

func withValue(key, value interface{}) *http.Request {
	r := httptest.NewRequest("GET", "/", nil)
	return r.WithContext(context.WithValue(r.Context(), key, value))
}

func TestContextAccessors(t *testing.T) {
	userID, ok := auth.GetUserID(withValue(auth.UserIDContextKey, int64(123)))
	assert.True(t, ok)
	assert.Equal(t, int64(123), userID)

	username, ok := auth.GetUsername(withValue(auth.UsernameContextKey, "alice"))
	assert.True(t, ok)
	assert.Equal(t, "alice", username)

	requestID, ok := auth.GetRequestID(withValue(auth.RequestIDContextKey, "req123"))
	assert.True(t, ok)
	assert.Equal(t, "req123", requestID)

	// A plain string key is not ours
	_, ok = auth.GetUserID(withValue("user_id", int64(123)))
	assert.False(t, ok)

	empty := httptest.NewRequest("GET", "/", nil)
	_, ok = auth.GetUserID(empty)
	assert.False(t, ok)
	_, ok = auth.GetUsername(empty)
	assert.False(t, ok)
	_, ok = auth.GetRequestID(empty)
	assert.False(t, ok)
}

func TestGetRequestID_FromRouter(t *testing.T) {
	var got string
	handler := chimiddleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.GetRequestID(r)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/lan/panel", nil))
	assert.NotEmpty(t, got)
}

func TestJWTAuthProvider_Authenticate(t *testing.T) {
	validator := &MockJWTValidator{
		ValidateFunc: func(token, expectedType string) (*auth.CustomClaims, error) {
			if token != "good-token" || expectedType != "access" {
				return nil, utils.NewInvalidTokenError()
			}
			return &auth.CustomClaims{UserID: 42, Username: "alice", TokenType: expectedType}, nil
		},
	}
	provider := auth.NewJWTAuthProvider(validator)

	tests := []struct {
		name     string
		target   string
		header   string
		upgrade  bool
		wantID   int64
		wantUser string
		wantErr  bool
	}{
		{name: "Bearer header", target: "/", header: "Bearer good-token", wantID: 42, wantUser: "alice"},
		{name: "Missing header", target: "/", wantErr: true},
		{name: "Wrong scheme", target: "/", header: "Basic good-token", wantErr: true},
		{name: "Invalid token", target: "/", header: "Bearer bad-token", wantErr: true},
		{name: "Query token on websocket upgrade", target: "/ws?access_token=good-token", upgrade: true, wantID: 42, wantUser: "alice"},
		{name: "Query token ignored on plain request", target: "/api/lan/panel?access_token=good-token", wantErr: true},
		{name: "Header wins over query", target: "/ws?access_token=good-token", header: "Bearer bad-token", upgrade: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.target, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if tt.upgrade {
				r.Header.Set("Connection", "Upgrade")
				r.Header.Set("Upgrade", "websocket")
			}

			userID, username, err := provider.Authenticate(r)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, userID)
			assert.Equal(t, tt.wantUser, username)
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	ok := providerReturning(123, "testuser", nil)
	fail := providerReturning(0, "", errors.New("authentication failed"))
	expired := providerReturning(0, "", utils.NewExpiredTokenError())

	tests := []struct {
		name       string
		providers  []auth.AuthProvider
		wantStatus int
		wantCode   string
	}{
		{"First provider succeeds", []auth.AuthProvider{ok}, http.StatusOK, ""},
		{"Falls through to the second provider", []auth.AuthProvider{fail, ok}, http.StatusOK, ""},
		{"Plain error", []auth.AuthProvider{fail}, http.StatusUnauthorized, "unauthorized"},
		{"Expired token", []auth.AuthProvider{expired}, http.StatusUnauthorized, "token_expired"},
		{"No providers", nil, http.StatusUnauthorized, "unauthorized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				called    bool
				userID    int64
				username  string
				requestID string
			)
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				userID, _ = auth.GetUserID(r)
				username, _ = auth.GetUsername(r)
				requestID, _ = auth.GetRequestID(r)
				w.WriteHeader(http.StatusOK)
			})

			r := httptest.NewRequest("GET", "/api/online/sessions", nil)
			r.Header.Set("X-Request-ID", "req123")
			w := httptest.NewRecorder()
			auth.RequireAuth(tt.providers...)(next).ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				assert.False(t, called)
				assert.Contains(t, w.Body.String(), `"code":"`+tt.wantCode+`"`)
				return
			}

			require.True(t, called)
			assert.Equal(t, int64(123), userID)
			assert.Equal(t, "testuser", username)
			assert.Equal(t, "req123", requestID)
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	tests := []struct {
		name       string
		provider   *MockAuthProvider
		wantUserID int64
		wantAuthed bool
	}{
		{"Valid token", providerReturning(7, "alice", nil), 7, true},
		{"Invalid token", providerReturning(0, "", utils.ErrInvalidToken), 0, false},
		{"No token", providerReturning(0, "", utils.ErrUnauthorized), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := auth.OptionalAuth(tt.provider)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				userID, ok := auth.GetUserID(r)
				assert.Equal(t, tt.wantAuthed, ok)
				assert.Equal(t, tt.wantUserID, userID)
				_, hasReqID := auth.GetRequestID(r)
				assert.True(t, hasReqID)
				w.WriteHeader(http.StatusOK)
			}))

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/lan/panel", nil))

			assert.True(t, called, "request always reaches the handler")
			assert.Equal(t, http.StatusOK, rr.Code)
		})
	}
}
