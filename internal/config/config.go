// Package config loads the server configuration from an optional YAML file,
// overlays environment variables, fills defaults and validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/constants"
)

// AppConfig is the whole server configuration. Every leaf can be set from
// YAML (yaml tag) or the environment (env tag). The environment wins.
type AppConfig struct {
	App          AppSettings       `yaml:"app"`
	Server       ServerSettings    `yaml:"server"`
	Database     DatabaseSettings  `yaml:"database"`
	Redis        RedisSettings     `yaml:"redis"`
	Storage      StorageSettings   `yaml:"storage"`
	JWT          JWTSettings       `yaml:"jwt"`
	Logging      LoggingSettings   `yaml:"logging"`
	CORS         CORSSettings      `yaml:"cors"`
	PasswordHash HashSettings      `yaml:"password_hash"`
	Janitor      JanitorSettings   `yaml:"janitor"`
	LAN          LANSettings       `yaml:"lan"`
	RateLimit    RateLimitSettings `yaml:"rate_limit"`
}

type AppSettings struct {
	Environment string `yaml:"environment" env:"APP_ENV"`
	Name        string `yaml:"name" env:"APP_NAME"`
	Version     string `yaml:"version" env:"APP_VERSION"`
}

type ServerSettings struct {
	Host            string        `yaml:"host" env:"SERVER_HOST"`
	Port            int           `yaml:"port" env:"SERVER_PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`

	// TrustProxy takes the client address from X-Forwarded-For/X-Real-IP.
	// Enable it only behind a proxy that overwrites those headers.
	TrustProxy bool `yaml:"trust_proxy" env:"SERVER_TRUST_PROXY"`
}

// DatabaseSettings configures the optional SQL event history. An empty
// Driver disables it.
type DatabaseSettings struct {
	Driver         string        `yaml:"driver" env:"DB_DRIVER" validate:"omitempty,oneof=mysql postgres"`
	Host           string        `yaml:"host" env:"DB_HOST"`
	Port           int           `yaml:"port" env:"DB_PORT"`
	Name           string        `yaml:"name" env:"DB_NAME"`
	User           string        `yaml:"user" env:"DB_USER" validate:"required_with=Driver"`
	Password       string        `yaml:"password" env:"DB_PASSWORD"`
	SSLMode        string        `yaml:"ssl_mode" env:"DB_SSL_MODE"`
	MaxConns       int           `yaml:"max_conns" env:"DB_MAX_CONNS"`
	MinConns       int           `yaml:"min_conns" env:"DB_MIN_CONNS"`
	EventRetention time.Duration `yaml:"event_retention" env:"DB_EVENT_RETENTION"`
}

// RedisSettings selects the session store. Backend "memory" ignores the
// connection fields.
type RedisSettings struct {
	Backend  string `yaml:"backend" env:"STORE_BACKEND" validate:"oneof=redis memory"`
	Address  string `yaml:"address" env:"REDIS_ADDRESS"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" validate:"gte=0"`
}

type StorageSettings struct {
	UploadDir     string `yaml:"upload_dir" env:"UPLOAD_DIR"`
	MaxUploadSize int64  `yaml:"max_upload_size" env:"MAX_UPLOAD_SIZE" validate:"gte=0"`
}

type JWTSettings struct {
	Secret        string        `yaml:"secret" env:"JWT_SECRET"`
	Expiry        time.Duration `yaml:"expiry" env:"JWT_EXPIRY"`
	RefreshExpiry time.Duration `yaml:"refresh_expiry" env:"JWT_REFRESH_EXPIRY"`
	Issuer        string        `yaml:"issuer" env:"JWT_ISSUER"`
}

type LoggingSettings struct {
	Level      string `yaml:"level" env:"LOG_LEVEL" validate:"oneof=debug info warn error fatal panic"`
	Format     string `yaml:"format" env:"LOG_FORMAT" validate:"oneof=json console"`
	RequestLog bool   `yaml:"request_log" env:"LOG_REQUESTS"`
}

type CORSSettings struct {
	AllowedOrigins   []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS"`
	AllowCredentials bool     `yaml:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS"`
}

// HashSettings are the Argon2id parameters for session passwords.
type HashSettings struct {
	Memory      uint32 `yaml:"memory" env:"HASH_MEMORY"`
	Iterations  uint32 `yaml:"iterations" env:"HASH_ITERATIONS"`
	Parallelism uint8  `yaml:"parallelism" env:"HASH_PARALLELISM"`
	SaltLength  uint32 `yaml:"salt_length" env:"HASH_SALT_LENGTH"`
	KeyLength   uint32 `yaml:"key_length" env:"HASH_KEY_LENGTH"`
}

// JanitorSettings controls the expired-session sweep.
type JanitorSettings struct {
	Enabled      bool          `yaml:"enabled" env:"JANITOR_ENABLED"`
	Interval     time.Duration `yaml:"interval" env:"JANITOR_INTERVAL"`
	ErrorBackoff time.Duration `yaml:"error_backoff" env:"JANITOR_ERROR_BACKOFF" validate:"ltefield=Interval"`
}

// LANSettings shape the links handed out for LAN sessions.
type LANSettings struct {
	PublicPort int    `yaml:"public_port" env:"LAN_PUBLIC_PORT" validate:"min=1,max=65535"`
	Scheme     string `yaml:"scheme" env:"LAN_SCHEME" validate:"oneof=http https"`
}

// RateLimitSettings throttle the join endpoints per client IP.
type RateLimitSettings struct {
	JoinRate  float64 `yaml:"join_rate" env:"RATE_LIMIT_JOIN_RATE" validate:"gt=0"`
	JoinBurst int     `yaml:"join_burst" env:"RATE_LIMIT_JOIN_BURST" validate:"min=1"`
}

// Enabled reports whether an SQL database is configured.
func (dbs *DatabaseSettings) Enabled() bool {
	return dbs.Driver != ""
}

// ConnectionString is the DSN for the configured driver. Postgres defaults
// to sslmode=disable.
func (dbs *DatabaseSettings) ConnectionString() string {
	if dbs.Driver == constants.DriverPostgres {
		sslMode := dbs.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			dbs.Host, dbs.Port, dbs.User, dbs.Password, dbs.Name, sslMode)
	}

	userInfo := dbs.User
	if dbs.Password != "" {
		userInfo += ":" + dbs.Password
	}
	return fmt.Sprintf("%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&collation=utf8mb4_unicode_ci",
		userInfo, dbs.Host, dbs.Port, dbs.Name)
}

func (ss *ServerSettings) ServerAddress() string {
	return fmt.Sprintf("%s:%d", ss.Host, ss.Port)
}

func (as *AppSettings) IsDevelopment() bool {
	return strings.EqualFold(as.Environment, constants.EnvDevelopment)
}

func (as *AppSettings) IsProduction() bool {
	return strings.EqualFold(as.Environment, constants.EnvProduction)
}

func (as *AppSettings) IsTesting() bool {
	return strings.EqualFold(as.Environment, constants.EnvTesting)
}

// Load reads configPath if it exists, applies the environment, fills
// defaults and validates. A missing file is not an error.
func Load(configPath string) (*AppConfig, error) {
	cfg := &AppConfig{Janitor: JanitorSettings{Enabled: true}}

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := LoadEnv(cfg); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	setDefaults(cfg)

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logConfig(cfg)
	return cfg, nil
}

// orDefault sets *v to def when *v is the zero value.
func orDefault[T comparable](v *T, def T) {
	var zero T
	if *v == zero {
		*v = def
	}
}

func setDefaults(cfg *AppConfig) {
	cfg.App.Environment = strings.ToLower(cfg.App.Environment)
	orDefault(&cfg.App.Environment, constants.EnvDevelopment)
	orDefault(&cfg.App.Name, "SecureTransfer")
	orDefault(&cfg.App.Version, "1.0.0")

	orDefault(&cfg.Server.Port, constants.DefaultServerPort)
	orDefault(&cfg.Server.ReadTimeout, constants.DefaultReadTimeout)
	orDefault(&cfg.Server.WriteTimeout, constants.DefaultWriteTimeout)
	orDefault(&cfg.Server.ShutdownTimeout, constants.DefaultShutdownTimeout)

	cfg.Database.Driver = strings.ToLower(cfg.Database.Driver)
	orDefault(&cfg.Database.MaxConns, constants.DefaultDBMaxConnections)
	orDefault(&cfg.Database.MinConns, constants.DefaultDBMinConnections)
	orDefault(&cfg.Database.EventRetention, constants.DefaultEventRetentionDays*24*time.Hour)

	cfg.Redis.Backend = strings.ToLower(cfg.Redis.Backend)
	orDefault(&cfg.Redis.Backend, constants.StoreBackendRedis)
	orDefault(&cfg.Redis.Address, constants.DefaultRedisAddress)

	orDefault(&cfg.Storage.UploadDir, constants.DefaultUploadDir)
	orDefault(&cfg.Storage.MaxUploadSize, int64(constants.DefaultMaxUploadSize))

	orDefault(&cfg.JWT.Expiry, constants.DefaultJWTExpiry)
	orDefault(&cfg.JWT.RefreshExpiry, constants.DefaultJWTRefreshExpiry)
	orDefault(&cfg.JWT.Issuer, constants.DefaultJWTIssuer)

	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	cfg.Logging.Format = strings.ToLower(cfg.Logging.Format)
	orDefault(&cfg.Logging.Level, constants.DefaultLogLevel)
	orDefault(&cfg.Logging.Format, constants.DefaultLogFormat)

	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"*"}
	}

	// Development hashes cheaply so tests and local runs stay fast
	memory, iterations := uint32(constants.DevPasswordHashMemory), uint32(constants.DevPasswordHashIterations)
	if cfg.App.IsProduction() {
		memory, iterations = constants.DefaultPasswordHashMemory, constants.DefaultPasswordHashIterations
	}
	orDefault(&cfg.PasswordHash.Memory, memory)
	orDefault(&cfg.PasswordHash.Iterations, iterations)
	orDefault(&cfg.PasswordHash.Parallelism, uint8(constants.DefaultPasswordHashParallelism))
	orDefault(&cfg.PasswordHash.SaltLength, uint32(constants.DefaultPasswordHashSaltLength))
	orDefault(&cfg.PasswordHash.KeyLength, uint32(constants.DefaultPasswordHashKeyLength))

	orDefault(&cfg.Janitor.Interval, constants.DefaultJanitorInterval)
	orDefault(&cfg.Janitor.ErrorBackoff, constants.DefaultJanitorErrorBackoff)

	orDefault(&cfg.LAN.PublicPort, cfg.Server.Port)
	orDefault(&cfg.LAN.Scheme, "http")

	orDefault(&cfg.RateLimit.JoinRate, constants.DefaultJoinRateLimit)
	orDefault(&cfg.RateLimit.JoinBurst, constants.DefaultJoinBurst)
}

// validateConfig checks the validate tags plus the rules tags cannot express.
// An unknown environment is downgraded to development with a warning.
func validateConfig(cfg *AppConfig) error {
	switch cfg.App.Environment {
	case constants.EnvDevelopment, constants.EnvTesting, constants.EnvProduction:
	default:
		log.Warn().Str("environment", cfg.App.Environment).Msg("Invalid environment, defaulting to development")
		cfg.App.Environment = constants.EnvDevelopment
	}

	if cfg.App.IsProduction() && (cfg.JWT.Secret == "" || cfg.JWT.Secret == "changeme") {
		return errors.New("JWT secret must be set in production")
	}

	err := validator.New().Struct(cfg)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		msgs = append(msgs, fmt.Sprintf("%s=%v violates %s", strings.TrimPrefix(fe.Namespace(), "AppConfig."), fe.Value(), rule))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// logConfig logs where things live. Secrets are never included.
func logConfig(cfg *AppConfig) {
	log.Info().
		Str("environment", cfg.App.Environment).
		Str("version", cfg.App.Version).
		Str("server", cfg.Server.ServerAddress()).
		Bool("trust_proxy", cfg.Server.TrustProxy).
		Str("store_backend", cfg.Redis.Backend).
		Str("redis_address", cfg.Redis.Address).
		Str("upload_dir", cfg.Storage.UploadDir).
		Str("db_driver", cfg.Database.Driver).
		Str("db_host", cfg.Database.Host).
		Str("db_name", cfg.Database.Name).
		Bool("janitor", cfg.Janitor.Enabled).
		Dur("janitor_interval", cfg.Janitor.Interval).
		Str("log_level", cfg.Logging.Level).
		Msg("Configuration loaded")
}
