package constants

// Pagination of list endpoints.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MinPageSize     = 1
	MaxPageSize     = 100
)

// Fallbacks for unset configuration values.
const (
	DefaultServerPort       = 5000
	DefaultDBMaxConnections = 20
	DefaultDBMinConnections = 5
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	DefaultRedisAddress     = "localhost:6379"

	// DefaultUploadDir holds one folder per session.
	DefaultUploadDir = "uploads"

	DefaultEventRetentionDays = 30
)

// Session store backends.
const (
	StoreBackendRedis  = "redis"
	StoreBackendMemory = "memory"
)

// Environments. Anything else is treated as development.
const (
	EnvDevelopment = "development"
	EnvTesting     = "testing"
	EnvProduction  = "production"
)

// Size limits in bytes.
const (
	MaxRequestBodySize   = 1 << 20
	DefaultMaxUploadSize = 512 << 20

	// MultipartMemoryLimit is how much of a multipart form stays in memory
	// before spilling to disk.
	MultipartMemoryLimit = 32 << 20
)

// Argon2id parameters for session passwords. Non-production environments
// use the cheaper Dev values unless configured otherwise.
const (
	DefaultPasswordHashMemory      = 64 * 1024 // KiB
	DefaultPasswordHashIterations  = 3
	DefaultPasswordHashParallelism = 2
	DefaultPasswordHashSaltLength  = 16
	DefaultPasswordHashKeyLength   = 32

	DevPasswordHashMemory     = 16 * 1024
	DevPasswordHashIterations = 1
)

// Access tokens.
const (
	DefaultJWTIssuer  = "securetransfer-api"
	BearerTokenPrefix = "Bearer "

	// AccessTokenQueryParam carries the token on websocket upgrades, where
	// browsers cannot set an Authorization header.
	AccessTokenQueryParam = "access_token"
)

// Join endpoint throttling, one bucket per client IP and category.
const (
	DefaultJoinRateLimit = 1.0 // tokens per second
	DefaultJoinBurst     = 5

	RateCategoryLANJoin    = "lan_join"
	RateCategoryOnlineJoin = "online_join"
)
