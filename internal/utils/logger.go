package utils

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/config"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/constants"
)

// InitLogger replaces the global zerolog logger. Unknown levels fall back to
// info. The console writer is only used outside production.
func InitLogger(cfg *config.AppConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Logging.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = os.Stdout
	if strings.EqualFold(cfg.Logging.Format, "console") && !cfg.App.IsProduction() {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	log.Logger = zerolog.New(out).With().
		Timestamp().
		Str("app", cfg.App.Name).
		Str("version", cfg.App.Version).
		Str("env", cfg.App.Environment).
		Logger()

	log.Info().Str("level", level.String()).Msg("Logger initialized")
}

// RequestLogger returns a child logger tagged with the request. userID is
// omitted when empty.
func RequestLogger(requestID, userID, method, path string) zerolog.Logger {
	ctx := log.With().
		Str(constants.RequestIDContextKey, requestID).
		Str("method", method).
		Str("path", path)
	if userID != "" {
		ctx = ctx.Str(constants.UserIDContextKey, userID)
	}
	return ctx.Logger()
}

// LogHTTPRequest writes the access log line for a finished request. 4xx log
// at warn, 5xx at error, other API calls at info and everything else at
// debug. Health probes are dropped unless debugging.
func LogHTTPRequest(requestID, method, path, remoteAddr, userAgent string, statusCode int, latency time.Duration) {
	debugging := zerolog.GlobalLevel() <= zerolog.DebugLevel
	if path == constants.HealthPath && !debugging {
		return
	}

	var event *zerolog.Event
	switch {
	case statusCode >= 500:
		event = log.Error()
	case statusCode >= 400:
		event = log.Warn()
	case strings.HasPrefix(path, constants.APIBasePath):
		event = log.Info()
	default:
		event = log.Debug()
	}

	event.
		Str(constants.RequestIDContextKey, requestID).
		Str("method", method).
		Str("path", path).
		Str("remote_addr", remoteAddr).
		Str("user_agent", userAgent).
		Int("status", statusCode).
		Dur("latency", latency).
		Msg("HTTP Request")
}

// debugOrError picks the level of a timed backend call.
func debugOrError(err error) *zerolog.Event {
	if err != nil {
		return log.Error().Err(err)
	}
	return log.Debug()
}

// LogDBQuery records one event history statement.
func LogDBQuery(query string, args []interface{}, duration time.Duration, err error) {
	debugOrError(err).
		Str("query", query).
		Interface("args", args).
		Dur("duration", duration).
		Msg("Database query executed")
}

// LogStoreOp records one session store command. Only the key is logged,
// never the value, because records carry password hashes.
func LogStoreOp(op, key string, duration time.Duration, err error) {
	debugOrError(err).
		Str("op", op).
		Str("key", key).
		Dur("duration", duration).
		Msg("Session store command executed")
}

// LogSessionEvent records a session lifecycle step. Failures log at warn.
func LogSessionEvent(event, token, userID string, success bool, reason string) {
	e := log.Info()
	if !success {
		e = log.Warn()
	}
	if reason != "" {
		e = e.Str("reason", reason)
	}

	e.Str("category", constants.LogCategorySession).
		Str("event", event).
		Str(constants.ParamToken, RedactToken(token)).
		Str(constants.UserIDContextKey, userID).
		Bool("success", success).
		Msg("Session event")
}

// RedactToken keeps a three character prefix of a token or OTP so log lines
// can be correlated without leaking something joinable.
func RedactToken(token string) string {
	if len(token) <= 3 {
		return constants.LogRedactedValue
	}
	return token[:3] + "***"
}
