package constants

import "time"

// Server Timeouts
const (
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 5 * time.Minute
	DefaultShutdownTimeout = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
)

// Database Timeouts
const (
	DBConnectionTimeout   = 30 * time.Second
	DBHealthCheckTimeout  = 5 * time.Second
	DBConnMaxLifetime     = 1 * time.Hour
	DBConnMaxIdleTime     = 30 * time.Minute
	DBMaintenanceInterval = 1 * time.Hour
)

// Session Store Timeouts
const (
	RedisDialTimeout   = 5 * time.Second
	RedisReadTimeout   = 3 * time.Second
	RedisWriteTimeout  = 3 * time.Second
	StoreHealthTimeout = 2 * time.Second
)

// Janitor Intervals
const (
	DefaultJanitorInterval     = 30 * time.Second
	DefaultJanitorErrorBackoff = 5 * time.Second
)

// Authentication Timeouts
const (
	DefaultJWTExpiry        = 15 * time.Minute
	DefaultJWTRefreshExpiry = 7 * 24 * time.Hour // 7 days
)

// Realtime Timeouts
const (
	WSWriteWait  = 10 * time.Second
	WSPongWait   = 60 * time.Second
	WSPingPeriod = (WSPongWait * 9) / 10
)

// Rate Limiter Maintenance
const (
	RateLimitCleanupInterval = 10 * time.Minute
	DBMaintenanceTimeout     = 5 * time.Minute
	RelayRetryBackoff        = 2 * time.Second
)
