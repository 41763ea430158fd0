package models

// CreateLANSessionRequest holds the credentials receivers must present to join.
type CreateLANSessionRequest struct {
	Username string `json:"username" validate:"required,notblank,printable,max=50"`
	Password string `json:"password" validate:"required,notblank,max=128"`
}

// JoinLANSessionRequest is sent by a receiver on the same network.
type JoinLANSessionRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required,max=128"`
	Code     string `json:"code" validate:"required,numeric,len=6"`
}

// CreateOnlineSessionRequest creates a tokenized session.
// An empty password leaves the session open to anyone holding the token.
type CreateOnlineSessionRequest struct {
	SessionName       string `json:"session_name" validate:"omitempty,printable,max=100"`
	Password          string `json:"password" validate:"omitempty,max=128"`
	AutoExpireMinutes int    `json:"auto_expire" validate:"gte=0,max=525600"`
}

// JoinOnlineSessionRequest carries the session password, if any.
type JoinOnlineSessionRequest struct {
	Password string `json:"password" validate:"omitempty,max=128"`
}

// SetAutoExpireRequest changes the lifetime of a session, counted from now.
type SetAutoExpireRequest struct {
	Minutes int `json:"minutes" validate:"required,gt=0,max=525600"`
}

// ClientMessage is a message received from a realtime client.
type ClientMessage struct {
	Action string `json:"action"`
	Token  string `json:"token"`
}
