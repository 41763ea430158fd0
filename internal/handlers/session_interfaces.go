// Package handlers provides HTTP request handlers for the SecureTransfer API.
package handlers

import (
	"context"
	"io"

	"github.com/spf13/afero"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/models"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/realtime"
)

// LANSessionServiceInterface defines methods required from the LAN session service.
// This interface is used by the LAN handlers to drive the single LAN session slot
// without being tightly coupled to the implementation.
type LANSessionServiceInterface interface {
	// CreateSession replaces any running LAN session with a new one.
	//
	// Parameters:
	//   - ctx: Context for the operation
	//   - owner: The authenticated host creating the session
	//   - username: The username receivers must present
	//   - password: The password receivers must present
	//
	// Returns:
	//   - The new session with its one-time code and links
	//   - An error if the session could not be created
	CreateSession(ctx context.Context, owner models.Identity, username, password string) (*models.LANSessionInfo, error)

	// Join checks a receiver's credentials against the running session.
	//
	// Parameters:
	//   - ctx: Context for the operation
	//   - username: The presented username
	//   - password: The presented password
	//   - code: The presented one-time code
	//
	// Returns:
	//   - An error if there is no session or any credential does not match
	Join(ctx context.Context, username, password, code string) error

	// Active reports whether a LAN session is running.
	Active() bool

	// Info returns a copy of the running session, if any.
	Info() (*models.LANSessionInfo, bool)

	// ListFiles lists the files in the running session's folder.
	ListFiles(ctx context.Context) ([]string, error)

	// Upload stores a file in the running session's folder.
	//
	// Returns:
	//   - The sanitized name the file was stored under
	//   - An error if there is no session or no file was given
	Upload(ctx context.Context, name string, content io.Reader) (string, error)

	// Download opens a file of the running session. The caller closes it.
	//
	// Returns:
	//   - The open file
	//   - The sanitized name of the file
	//   - An error if the file does not exist
	Download(ctx context.Context, name string) (afero.File, string, error)

	// EndSession ends the running session and removes its folder.
	//
	// Parameters:
	//   - ctx: Context for the operation
	//   - callerID: The identity asking to end the session
	//
	// Returns:
	//   - An error if there is no session or the caller is not the owner
	EndSession(ctx context.Context, callerID string) error
}

// OnlineSessionServiceInterface defines methods required from the online session service.
type OnlineSessionServiceInterface interface {
	// CreateSession creates a tokenized session owned by the caller.
	//
	// Parameters:
	//   - ctx: Context for the operation
	//   - owner: The authenticated owner
	//   - sessionName: Display name, defaulting to the owner's username
	//   - password: Optional join password
	//   - autoExpireMinutes: Lifetime in minutes, zero for no expiry
	//
	// Returns:
	//   - The session token
	//   - An error if the session could not be created
	CreateSession(ctx context.Context, owner models.Identity, sessionName, password string, autoExpireMinutes int) (string, error)

	// JoinSession adds the caller to the session's participants.
	JoinSession(ctx context.Context, user models.Identity, token, password string) error

	// GetSessionView returns the session as seen by a participant.
	GetSessionView(ctx context.Context, user models.Identity, token string) (*models.SessionView, error)

	// ListFiles returns the registered files of a session.
	ListFiles(ctx context.Context, user models.Identity, token string) ([]string, error)

	// UploadFile stores and registers a file in the session.
	//
	// Returns:
	//   - The sanitized name the file was stored under
	//   - An error if the caller is not a participant or no file was given
	UploadFile(ctx context.Context, user models.Identity, token, name string, content io.Reader) (string, error)

	// DownloadFile opens a registered file of the session. The caller closes it.
	DownloadFile(ctx context.Context, user models.Identity, token, name string) (afero.File, string, error)

	// EndSession closes the session, removes its folder and deletes its keys.
	EndSession(ctx context.Context, callerID, token string) error

	// SetAutoExpire changes the lifetime of the session, counted from now.
	SetAutoExpire(ctx context.Context, callerID, token string, minutes int) error
}

// RealtimeSessionServiceInterface is what the websocket handler needs from the online sessions.
type RealtimeSessionServiceInterface interface {
	// IsParticipant reports whether the user has joined the session.
	IsParticipant(ctx context.Context, user models.Identity, token string) (bool, error)

	// AnnounceParticipants publishes the current participant list of the session.
	AnnounceParticipants(ctx context.Context, token string) error
}

// EventSubscriber hands out subscriptions to the events of a session.
type EventSubscriber interface {
	Subscribe(token string) *realtime.Subscription
}

// EventHistoryServiceInterface defines methods required from the event history service.
type EventHistoryServiceInterface interface {
	// List returns one page of a session's recorded events and the total count.
	//
	// Parameters:
	//   - ctx: Context for the operation
	//   - user: The caller, who must be a participant
	//   - token: The session token
	//   - page: The 1-based page number
	//   - pageSize: Events per page
	List(ctx context.Context, user models.Identity, token string, page, pageSize int) ([]*models.SessionEvent, int64, error)
}

// HealthChecker reports whether a backend is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
