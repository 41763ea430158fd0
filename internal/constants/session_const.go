package constants

// Session store key layout. A session named by token T owns three keys:
// session:T (hash), session:T:participants (set) and session:T:files (list).
const (
	SessionKeyPrefix      = "session:"
	ParticipantsKeySuffix = ":participants"
	FilesKeySuffix        = ":files"
)

// Session record fields.
const (
	FieldOwnerID      = "owner_id"
	FieldOwnerName    = "owner_name"
	FieldPassword     = "password"
	FieldPasswordSalt = "password_salt"
	FieldCreatedAt    = "created_at"
	FieldClosed       = "closed"
	FieldAutoExpire   = "auto_expire"
)

// Closed flag values as stored in the record.
const (
	ClosedFalse = "0"
	ClosedTrue  = "1"
)

// Token and OTP generation.
const (
	SessionTokenBytes = 6
	MaxTokenAttempts  = 16
	OTPMin            = 100000
	OTPMax            = 999999
)

// MaxAutoExpireMinutes caps a session lifetime at one year. Larger values
// overflow time.Duration. Keep the max= tags in models/requests.go in step.
const MaxAutoExpireMinutes = 365 * 24 * 60

// On-disk layout under the upload directory.
const (
	LANFolderName       = "lan"
	OnlineFolderName    = "online"
	LANSessionDirPrefix = "session_"
)

// Realtime event types.
const (
	EventParticipantsUpdate = "participants_update"
	EventFileAdded          = "file_added"
	EventAutoExpireSet      = "auto_expire_set"
	EventSessionEnded       = "session_ended"
)

// Realtime client actions.
const (
	ActionJoinRoom  = "join_room"
	ActionLeaveRoom = "leave_room"
)

// Redis pub/sub channel layout for cross-process event relay.
const (
	EventChannelPrefix  = "events:"
	EventChannelPattern = "events:*"
)

// Realtime buffering and limits.
const (
	SubscriberBufferSize = 32
	WSMaxMessageSize     = 4096
	WSBufferSize         = 1024
)

// Message type sent to a realtime client whose request failed.
const (
	MessageTypeError = "error"
)

// LAN link paths, matching the route table.
const (
	LANPanelLinkPath = "/api/lan/panel"
	LANJoinLinkPath  = "/api/lan/join"
	LANProbeAddress  = "8.8.8.8:80"
	LoopbackHost     = "127.0.0.1"
)
