// Package server provides the HTTP server for the SecureTransfer application.
// It wires the session store, file store, realtime notifier and session
// engines together, exposes them through the HTTP routes and manages the
// server lifecycle including background maintenance and graceful shutdown.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/auth"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/config"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/constants"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/database"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/filestore"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/handlers"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/realtime"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/repository"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/service"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/utils/ratelimit"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/migrations"
)

// Handlers contains all HTTP handlers for the application.
type Handlers struct {
	// LANHandler serves the single in-process LAN session
	LANHandler *handlers.LANHandler

	// OnlineHandler serves the token-addressed online sessions
	OnlineHandler *handlers.OnlineHandler

	// RealtimeHandler upgrades clients to the websocket event stream
	RealtimeHandler *handlers.RealtimeHandler

	// HealthHandler reports backend reachability
	HealthHandler *handlers.HealthHandler
}

// AuthProviders contains all authentication providers for the application.
type AuthProviders struct {
	// JWTService validates the access tokens presented by callers
	JWTService *auth.JWTService

	// PasswordCfg contains the hashing parameters for session passwords
	PasswordCfg *auth.PasswordConfig
}

// services holds the session engines and background workers of one server.
type services struct {
	lan     *service.LANSessionService
	online  *service.OnlineSessionService
	janitor *service.Janitor
	history *service.EventHistoryService
}

// Server represents the API server for the SecureTransfer application.
// It owns every backend connection it opens and releases them on Shutdown.
type Server struct {
	// Config contains application configuration
	Config *config.AppConfig

	// Db provides access to the event history database; nil when none is configured
	Db *database.Pool

	// Store holds the online session records
	Store repository.SessionStore

	// Files holds the uploaded files of every session
	Files *filestore.Store

	// Hub delivers events to the websocket clients of this process
	Hub *realtime.Hub

	// router handles HTTP routing
	router chi.Router

	// Handlers contains all HTTP request handlers
	Handlers *Handlers

	// authProviders contains authentication services
	authProviders *AuthProviders

	// httpServer is the underlying HTTP server
	httpServer *http.Server

	redisClient *redis.Client
	broker      *realtime.RedisBroker
	publisher   realtime.Publisher
	eventRepo   repository.SessionEventRepository
	limiter     *ratelimit.Store
	services    services

	cancelTasks context.CancelFunc
	tasks       sync.WaitGroup
}

// connectDatabase opens the event history database. Tests replace it.
var connectDatabase = database.Connect

// NewServer creates a new server instance with all required components.
//
// Parameters:
//   - cfg: Application configuration
//
// Returns:
//   - A fully initialized Server instance ready to start
//   - An error if any backend cannot be reached or initialized
//
// Components are set up in dependency order:
// database → auth providers → session store → file store → realtime → services → handlers → routes.
func NewServer(cfg *config.AppConfig) (*Server, error) {
	s := &Server{
		Config: cfg,
	}

	if err := s.setupDatabase(); err != nil {
		s.closeBackends()
		return nil, fmt.Errorf("failed to set up database: %w", err)
	}

	if err := s.setupAuthProviders(); err != nil {
		s.closeBackends()
		return nil, fmt.Errorf("failed to set up auth providers: %w", err)
	}

	if err := s.setupSessionStore(); err != nil {
		s.closeBackends()
		return nil, fmt.Errorf("failed to set up session store: %w", err)
	}

	if err := s.setupFileStore(); err != nil {
		s.closeBackends()
		return nil, fmt.Errorf("failed to set up file store: %w", err)
	}

	s.setupRealtime()

	if err := s.setupServices(); err != nil {
		s.closeBackends()
		return nil, fmt.Errorf("failed to set up services: %w", err)
	}

	s.setupHandlers()

	s.SetupRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.Server.ServerAddress(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  constants.DefaultIdleTimeout,
	}

	return s, nil
}

// setupDatabase connects to the event history database and runs migrations.
// Without a configured driver the server runs without event history.
func (s *Server) setupDatabase() error {
	if !s.Config.Database.Enabled() {
		log.Info().Msg("No database configured, session event history is disabled")
		return nil
	}

	db, err := connectDatabase(s.Config)
	if err != nil {
		return err
	}

	s.Db = db

	migrator := migrations.NewMigrator(db)
	if err := migrator.RunMigrations(context.Background()); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	s.eventRepo = repository.NewSessionEventRepository(db)
	return nil
}

// setupAuthProviders initializes token validation and password hashing.
func (s *Server) setupAuthProviders() error {
	jwtService := auth.NewJWTService(&s.Config.JWT)
	passwordCfg := auth.ConfigFromAppConfig(s.Config)

	s.authProviders = &AuthProviders{
		JWTService:  jwtService,
		PasswordCfg: passwordCfg,
	}

	return nil
}

// setupSessionStore opens the configured session store backend.
func (s *Server) setupSessionStore() error {
	switch s.Config.Redis.Backend {
	case constants.StoreBackendMemory:
		log.Warn().Msg("Using the in-memory session store, sessions are not shared between processes")
		s.Store = repository.NewMemorySessionStore()
	case constants.StoreBackendRedis, "":
		client, err := repository.NewRedisClient(context.Background(), &s.Config.Redis)
		if err != nil {
			return err
		}
		s.redisClient = client
		s.Store = repository.NewRedisSessionStore(client)
	default:
		return fmt.Errorf("unknown session store backend %q", s.Config.Redis.Backend)
	}
	return nil
}

// setupFileStore prepares the upload directory.
func (s *Server) setupFileStore() error {
	files, err := filestore.NewOnDisk(s.Config.Storage.UploadDir)
	if err != nil {
		return err
	}
	s.Files = files
	return nil
}

// setupRealtime builds the event path. With Redis, events travel through
// pub/sub so every process delivers them; otherwise the local hub publishes
// directly. Events are recorded when a database is configured.
func (s *Server) setupRealtime() {
	s.Hub = realtime.NewHub()

	var publisher realtime.Publisher = s.Hub
	if s.redisClient != nil {
		s.broker = realtime.NewRedisBroker(s.redisClient, s.Hub)
		publisher = s.broker
	}

	if s.eventRepo != nil {
		publisher = realtime.NewAuditingPublisher(publisher, s.eventRepo)
	}
	s.publisher = publisher
}

// setupServices initializes the session engines and background workers.
func (s *Server) setupServices() error {
	if s.authProviders == nil || s.authProviders.PasswordCfg == nil {
		return fmt.Errorf("password config not initialized")
	}
	if s.Store == nil || s.Files == nil {
		return fmt.Errorf("storage not initialized")
	}

	s.services.lan = service.NewLANSessionService(s.Files, s.authProviders.PasswordCfg, &s.Config.LAN)
	s.services.online = service.NewOnlineSessionService(s.Store, s.Files, s.publisher, s.authProviders.PasswordCfg)
	s.services.janitor = service.NewJanitor(s.Store, s.Files, &s.Config.Janitor)

	if s.eventRepo != nil {
		s.services.history = service.NewEventHistoryService(s.services.online, s.eventRepo)
	}

	joinRate := ratelimit.Rate{
		RequestsPerSecond: s.Config.RateLimit.JoinRate,
		Burst:             s.Config.RateLimit.JoinBurst,
	}
	s.limiter = ratelimit.NewStore(joinRate, constants.RateLimitCleanupInterval)
	s.limiter.SetRate(constants.RateCategoryLANJoin, joinRate)
	s.limiter.SetRate(constants.RateCategoryOnlineJoin, joinRate)

	return nil
}

// setupHandlers initializes all HTTP request handlers.
func (s *Server) setupHandlers() {
	var history handlers.EventHistoryServiceInterface
	if s.services.history != nil {
		history = s.services.history
	}

	var db handlers.DatabaseHealthChecker
	if s.Db != nil {
		db = s.Db
	}

	maxUpload := s.Config.Storage.MaxUploadSize

	s.Handlers = &Handlers{
		LANHandler:      handlers.NewLANHandler(s.services.lan, maxUpload),
		OnlineHandler:   handlers.NewOnlineHandler(s.services.online, history, maxUpload),
		RealtimeHandler: handlers.NewRealtimeHandler(s.services.online, s.Hub, s.Config.CORS.AllowedOrigins),
		HealthHandler:   handlers.NewHealthHandler(s.Store, db),
	}
}

// Start starts the HTTP server and blocks until it fails or a shutdown
// signal (SIGINT, SIGTERM) arrives, then shuts down gracefully.
//
// Returns:
//   - An error if the server fails to start or cannot stop gracefully
func (s *Server) Start() error {
	serverErrors := make(chan error, 1)

	go func() {
		log.Info().
			Str("address", s.Config.Server.ServerAddress()).
			Str("store", s.Config.Redis.Backend).
			Bool("event_history", s.Db != nil).
			Msg("Starting server")

		serverErrors <- s.httpServer.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	s.SetupMaintenanceTasks()

	select {
	case err := <-serverErrors:
		s.stopTasks()
		s.closeBackends()
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info().
			Str("signal", sig.String()).
			Msg("Shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), s.Config.Server.ShutdownTimeout)
		defer cancel()

		if err := s.Shutdown(ctx); err != nil {
			if closeErr := s.httpServer.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones, stops the
// background tasks and closes the backend connections.
//
// Parameters:
//   - ctx: Context with timeout for the shutdown operation
//
// Returns:
//   - An error if in-flight requests do not finish before ctx expires
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	log.Info().Msg("Server stopped gracefully")

	s.stopTasks()
	s.closeBackends()

	return nil
}

func (s *Server) stopTasks() {
	if s.cancelTasks != nil {
		s.cancelTasks()
		s.tasks.Wait()
		s.cancelTasks = nil
	}
}

func (s *Server) closeBackends() {
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close session store connection")
		}
		s.redisClient = nil
		log.Info().Msg("Session store connection closed")
	}

	if s.Db != nil {
		s.Db.Close()
		s.Db = nil
		log.Info().Msg("Database connection closed")
	}
}

// SetupMaintenanceTasks starts the background workers:
// 1. The janitor, which removes what session expiry leaves behind
// 2. The Redis relay, which feeds events from other processes into the hub
// 3. Eviction of idle rate limiters
// 4. Pruning of old session events when a database is configured
//
// The workers run until Shutdown. Calling it again while they run is a no-op.
func (s *Server) SetupMaintenanceTasks() {
	if s.cancelTasks != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelTasks = cancel

	if s.Config.Janitor.Enabled {
		s.goTask(func() { s.services.janitor.Run(ctx) })
	}

	if s.broker != nil {
		s.goTask(func() { s.runRelay(ctx) })
	}

	s.goTask(func() { s.limiter.Run(ctx) })

	if s.services.history != nil {
		s.goTask(func() { s.pruneEvents(ctx) })
	}
}

func (s *Server) goTask(task func()) {
	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		task()
	}()
}

// runRelay keeps the Redis relay subscribed, resubscribing after failures.
func (s *Server) runRelay(ctx context.Context) {
	for {
		err := s.broker.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		log.Error().Err(err).Msg("Realtime relay failed, resubscribing")

		select {
		case <-ctx.Done():
			return
		case <-time.After(constants.RelayRetryBackoff):
		}
	}
}

// pruneEvents drops session events older than the configured retention.
func (s *Server) pruneEvents(ctx context.Context) {
	ticker := time.NewTicker(constants.DBMaintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pruneCtx, cancel := context.WithTimeout(ctx, constants.DBMaintenanceTimeout)
		count, err := s.services.history.Prune(pruneCtx, s.Config.Database.EventRetention)
		cancel()

		if err != nil {
			log.Error().Err(err).Msg("Failed to prune session events")
		} else if count > 0 {
			log.Info().Int64("count", count).Msg("Pruned old session events")
		}
	}
}
