package middleware_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/middleware"
)

func TestRequestLogging(t *testing.T) {
	var buf bytes.Buffer
	origLogger := log.Logger
	origLevel := zerolog.GlobalLevel()
	log.Logger = zerolog.New(&buf)
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	defer func() {
		log.Logger = origLogger
		zerolog.SetGlobalLevel(origLevel)
	}()

	tests := []struct {
		name      string
		path      string
		status    int
		wantLevel string
	}{
		{"Success", "/api/lan/panel", http.StatusOK, `"level":"info"`},
		{"No session", "/api/lan/files", http.StatusConflict, `"level":"warn"`},
		{"Handler failure", "/api/online/sessions", http.StatusInternalServerError, `"level":"error"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()

			handler := chimiddleware.RequestID(middleware.RequestLogging()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})))

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest("GET", tt.path, nil))

			out := buf.String()
			assert.Equal(t, tt.status, rr.Code)
			assert.Contains(t, out, tt.wantLevel)
			assert.Contains(t, out, tt.path)
			assert.Contains(t, out, `"request_id":"`)
		})
	}
}
