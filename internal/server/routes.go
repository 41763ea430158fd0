// Package server provides the HTTP server for the SecureTransfer application.
//
// Routes are grouped by session kind. LAN routes are guarded by the presence
// of the running LAN session; online routes and the websocket endpoint
// require an access token. The join endpoints of both kinds are rate limited
// per client IP.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/constants"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/middleware"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/utils"
)

const (
	corsAllowMethods = "GET, POST, PUT, DELETE, OPTIONS"
	corsAllowHeaders = "Accept, Authorization, Content-Type, X-Request-ID"
	corsMaxAge       = "300"
)

// SetupRoutes configures the routes for the application.
//
// The configured routes include:
// - Health check, version and route listing (unprotected)
// - LAN session endpoints under /api/lan
// - Online session endpoints under /api/online (protected)
// - The realtime websocket at /ws (protected)
func (s *Server) SetupRoutes() {
	r := chi.NewRouter()

	allowedOrigins := s.Config.CORS.AllowedOrigins
	log.Info().Strs("allowed_origins", allowedOrigins).Msg("Using CORS allowed origins")

	r.Use(corsMiddleware(allowedOrigins, s.Config.CORS.AllowCredentials))

	// Base middleware
	r.Use(chimiddleware.RequestID)
	if s.Config.Server.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	if s.Config.Logging.RequestLog {
		r.Use(middleware.RequestLogging())
	}
	r.Use(middleware.Recovery())
	r.Use(middleware.SecurityHeaders())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.NotFound(w, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.MethodNotAllowed(w)
	})

	jwtAuth := middleware.JWTAuth(s.authProviders.JWTService)

	// Health check and version routes (unprotected)
	r.Group(func(r chi.Router) {
		r.Get(constants.HealthPath, s.Handlers.HealthHandler.Health)

		r.Get(constants.VersionPath, func(w http.ResponseWriter, r *http.Request) {
			utils.JSON(w, http.StatusOK, map[string]string{
				"version":     s.Config.App.Version,
				"environment": s.Config.App.Environment,
			})
		})

		r.Get(constants.RoutesPath, s.GetAPIRoutes)
	})

	// LAN session routes
	r.Route(constants.LANBasePath, func(r chi.Router) {
		lan := s.Handlers.LANHandler

		r.With(jwtAuth).Post(constants.LANSessionsPath, lan.CreateSession)
		r.With(middleware.RateLimit(s.limiter, constants.RateCategoryLANJoin)).Post(constants.LANJoinPath, lan.Join)

		// Routes that only make sense while a LAN session runs
		r.Group(func(r chi.Router) {
			r.Use(lan.RequireActiveSession)

			r.With(middleware.OptionalJWTAuth(s.authProviders.JWTService)).Get(constants.LANPanelPath, lan.Panel)
			r.Get(constants.LANFilesPath, lan.ListFiles)
			r.Post(constants.LANFilesPath, lan.Upload)
			r.Get(constants.LANFilePath, lan.Download)
			r.With(jwtAuth).Delete(constants.LANSessionsPath, lan.EndSession)
		})
	})

	// Online session routes (all protected)
	r.Route(constants.OnlineBasePath, func(r chi.Router) {
		r.Use(jwtAuth)
		online := s.Handlers.OnlineHandler

		r.Post(constants.OnlineSessionsPath, online.CreateSession)
		r.With(middleware.RateLimit(s.limiter, constants.RateCategoryOnlineJoin)).Post(constants.OnlineJoinPath, online.JoinSession)
		r.Get(constants.OnlineSessionPath, online.GetSession)
		r.Delete(constants.OnlineSessionPath, online.EndSession)
		r.Get(constants.OnlineFilesPath, online.ListFiles)
		r.Post(constants.OnlineFilesPath, online.UploadFile)
		r.Get(constants.OnlineFilePath, online.DownloadFile)
		r.Put(constants.OnlineExpiryPath, online.SetAutoExpire)
		r.Get(constants.OnlineEventsPath, online.ListEvents)
	})

	// Realtime websocket (protected; the token may ride in the query string)
	r.With(jwtAuth).Get(constants.WSPath, s.Handlers.RealtimeHandler.ServeWS)

	s.router = r
}

// GetRouter returns the configured router.
//
// Returns:
//   - The chi.Router implementation used by the server
//
// This method is primarily used for testing and for
// integrating the router with other components.
func (s *Server) GetRouter() chi.Router {
	return s.router
}

// originAllowed reports whether origin may access the API
func originAllowed(allowedOrigins []string, origin string) bool {
	for _, allowedOrigin := range allowedOrigins {
		if allowedOrigin == "*" || allowedOrigin == origin {
			return true
		}
	}
	return false
}

// corsMiddleware creates a CORS middleware with the specified allowed origins.
//
// Parameters:
//   - allowedOrigins: A list of origins that are allowed to access the API; "*" allows any
//   - allowCredentials: Whether browsers may send cookies and auth headers cross-origin
//
// Returns:
//   - A middleware function that adds CORS headers to responses
//
// Requests from allowed origins get the CORS headers; OPTIONS preflights
// from them are answered directly with 204. Other requests pass through
// untouched.
func corsMiddleware(allowedOrigins []string, allowCredentials bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin == "" || !originAllowed(allowedOrigins, origin) {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			if allowCredentials {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method != http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			// Handle OPTIONS preflight requests
			w.Header().Set("Access-Control-Allow-Methods", corsAllowMethods)
			w.Header().Set("Access-Control-Allow-Headers", corsAllowHeaders)
			w.Header().Set("Access-Control-Max-Age", corsMaxAge)
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

// routeDoc describes one endpoint in the route listing
type routeDoc struct {
	Description string            `json:"description"`
	Auth        string            `json:"auth"`
	Body        map[string]string `json:"body,omitempty"`
}

// GetAPIRoutes returns documentation about all API routes.
//
// Parameters:
//   - w: The HTTP response writer
//   - r: The HTTP request
//
// Routes are grouped by category and keyed by "METHOD path".
func (s *Server) GetAPIRoutes(w http.ResponseWriter, r *http.Request) {
	const (
		authNone  = "none"
		authJWT   = "bearer token"
		authGuard = "running LAN session"
	)

	lan := constants.LANBasePath
	online := constants.OnlineBasePath

	routes := map[string]map[string]routeDoc{
		"lan": {
			"POST " + lan + constants.LANSessionsPath: {
				Description: "Start the LAN session and get its join and panel links",
				Auth:        authJWT,
				Body:        map[string]string{"username": "string", "password": "string"},
			},
			"POST " + lan + constants.LANJoinPath: {
				Description: "Join the LAN session with its credentials and code (rate limited)",
				Auth:        authNone,
				Body:        map[string]string{"username": "string", "password": "string", "code": "string - six digit code"},
			},
			"GET " + lan + constants.LANPanelPath: {
				Description: "Show the LAN session and its files; username and code only for the owner's token",
				Auth:        authGuard,
			},
			"GET " + lan + constants.LANFilesPath: {
				Description: "List the shared files",
				Auth:        authGuard,
			},
			"POST " + lan + constants.LANFilesPath: {
				Description: "Upload a file as multipart field \"file\"",
				Auth:        authGuard,
			},
			"GET " + lan + constants.LANFilePath: {
				Description: "Download a shared file",
				Auth:        authGuard,
			},
			"DELETE " + lan + constants.LANSessionsPath: {
				Description: "End the LAN session and delete its files (owner only)",
				Auth:        authJWT,
			},
		},
		"online": {
			"POST " + online + constants.OnlineSessionsPath: {
				Description: "Create an online session",
				Auth:        authJWT,
				Body:        map[string]string{"session_name": "string", "password": "string - optional", "auto_expire": "int - optional, minutes"},
			},
			"POST " + online + constants.OnlineJoinPath: {
				Description: "Join an online session (rate limited)",
				Auth:        authJWT,
				Body:        map[string]string{"password": "string - required if the session has one"},
			},
			"GET " + online + constants.OnlineSessionPath: {
				Description: "Show a session to one of its participants",
				Auth:        authJWT,
			},
			"DELETE " + online + constants.OnlineSessionPath: {
				Description: "End a session and delete its files (owner only)",
				Auth:        authJWT,
			},
			"GET " + online + constants.OnlineFilesPath: {
				Description: "List the files of a session",
				Auth:        authJWT,
			},
			"POST " + online + constants.OnlineFilesPath: {
				Description: "Upload a file as multipart field \"file\"",
				Auth:        authJWT,
			},
			"GET " + online + constants.OnlineFilePath: {
				Description: "Download a file of a session",
				Auth:        authJWT,
			},
			"PUT " + online + constants.OnlineExpiryPath: {
				Description: "Expire the session after the given minutes (owner only)",
				Auth:        authJWT,
				Body:        map[string]string{"minutes": "int - positive"},
			},
			"GET " + online + constants.OnlineEventsPath: {
				Description: "Page through the recorded events of a session",
				Auth:        authJWT,
			},
		},
		"realtime": {
			"GET " + constants.WSPath: {
				Description: "Websocket event stream; send {\"action\":\"join_room\",\"token\":...} to subscribe",
				Auth:        authJWT + " or access_token query parameter",
			},
		},
		"system": {
			"GET " + constants.HealthPath:  {Description: "Report session store and database reachability", Auth: authNone},
			"GET " + constants.VersionPath: {Description: "Get application version", Auth: authNone},
			"GET " + constants.RoutesPath:  {Description: "List the API routes", Auth: authNone},
		},
	}

	utils.JSON(w, http.StatusOK, routes)
}
