package middleware_test

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/middleware"
)

func TestRecovery(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		wantCode  int
		wantBody  string
		wantPanic bool
	}{
		{
			name: "Handler returns normally",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte("123456"))
			},
			wantCode: http.StatusCreated,
			wantBody: "123456",
		},
		{
			name:      "Panic with error",
			handler:   func(http.ResponseWriter, *http.Request) { panic(errors.New("nil session record")) },
			wantCode:  http.StatusInternalServerError,
			wantBody:  `"code":"internal_error"`,
			wantPanic: true,
		},
		{
			name:      "Panic with string",
			handler:   func(http.ResponseWriter, *http.Request) { panic("index out of range") },
			wantCode:  http.StatusInternalServerError,
			wantBody:  `"success":false`,
			wantPanic: true,
		},
	}

	var buf bytes.Buffer
	orig := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = orig })

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()

			req := httptest.NewRequest("GET", "/api/lan/panel", nil)
			req.Header.Set("X-Request-Id", "req-recover")
			rr := httptest.NewRecorder()
			chimiddleware.RequestID(middleware.Recovery()(tt.handler)).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantCode, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.wantBody)

			if !tt.wantPanic {
				assert.Empty(t, buf.String())
				return
			}
			assert.Contains(t, buf.String(), "Panic recovered in request handler")
			assert.Contains(t, buf.String(), `"request_id":"req-recover"`)
			assert.Contains(t, buf.String(), `"stack"`)
		})
	}
}

func TestRecovery_RepanicsOnAbort(t *testing.T) {
	handler := middleware.Recovery()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/lan/files/big.iso", nil))
	})
}
