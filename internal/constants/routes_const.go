// Package constants provides shared constant values used throughout the application.
//
// The routes_const.go file defines the URL structure of the API and the
// path and query parameter names extracted by handlers.
package constants

// Base Routes
const (
	APIBasePath = "/api"
	HealthPath  = "/health"
	VersionPath = "/version"
	WSPath      = "/ws"
	RoutesPath  = "/api/routes"
)

// LAN Routes
const (
	LANBasePath     = "/api/lan"
	LANSessionsPath = "/sessions"
	LANJoinPath     = "/join"
	LANPanelPath    = "/panel"
	LANFilesPath    = "/files"
	LANFilePath     = "/files/{filename}"
)

// Online Routes
const (
	OnlineBasePath     = "/api/online"
	OnlineSessionsPath = "/sessions"
	OnlineSessionPath  = "/sessions/{token}"
	OnlineJoinPath     = "/sessions/{token}/join"
	OnlineFilesPath    = "/sessions/{token}/files"
	OnlineFilePath     = "/sessions/{token}/files/{filename}"
	OnlineExpiryPath   = "/sessions/{token}/expiry"
	OnlineEventsPath   = "/sessions/{token}/events"
)

// URL Parameters
const (
	ParamToken    = "token"
	ParamFilename = "filename"
)

// Query Parameters
const (
	QueryParamPage     = "page"
	QueryParamPageSize = "page_size"
)

// Form Fields
const (
	FormFieldFile = "file"
)
