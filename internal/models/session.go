// Package models provides data structures for the SecureTransfer application.
// This file contains the online session record as persisted in the session
// store, together with the views handed back to participants.
package models

import (
	"fmt"
	"strconv"
	"time"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/constants"
)

// SessionRecord is the hash stored under session:{token}.
// The participant set and file list live in sibling keys.
type SessionRecord struct {
	// Token is the URL-safe identifier of the session. It is part of the key, not a field.
	Token string `json:"token"`

	// OwnerID is the identity allowed to end the session or change its expiry
	OwnerID string `json:"owner_id"`

	// OwnerName is the display name of the session, defaulting to the owner's username
	OwnerName string `json:"owner_name"`

	// PasswordHash and PasswordSalt are empty for sessions without a password
	PasswordHash string `json:"-"`
	PasswordSalt string `json:"-"`

	CreatedAt time.Time `json:"created_at"`

	// Closed marks a session that has been ended but whose keys still exist
	Closed bool `json:"closed"`

	// AutoExpireMinutes is zero for sessions that never expire on their own
	AutoExpireMinutes int `json:"auto_expire"`
}

// NewSessionRecord creates a record owned by the given identity.
func NewSessionRecord(token string, owner Identity, name string, autoExpireMinutes int) *SessionRecord {
	if name == "" {
		name = owner.Name
	}
	return &SessionRecord{
		Token:             token,
		OwnerID:           owner.IDString(),
		OwnerName:         name,
		CreatedAt:         time.Now().UTC(),
		AutoExpireMinutes: autoExpireMinutes,
	}
}

// HasPassword reports whether joining requires a password.
func (s *SessionRecord) HasPassword() bool {
	return s.PasswordHash != ""
}

// IsOwner reports whether the caller owns the session.
func (s *SessionRecord) IsOwner(callerID string) bool {
	return s.OwnerID != "" && s.OwnerID == callerID
}

// Fields flattens the record into the hash layout of the session store.
func (s *SessionRecord) Fields() map[string]string {
	closed := constants.ClosedFalse
	if s.Closed {
		closed = constants.ClosedTrue
	}
	return map[string]string{
		constants.FieldOwnerID:      s.OwnerID,
		constants.FieldOwnerName:    s.OwnerName,
		constants.FieldPassword:     s.PasswordHash,
		constants.FieldPasswordSalt: s.PasswordSalt,
		constants.FieldCreatedAt:    s.CreatedAt.Format(time.RFC3339),
		constants.FieldClosed:       closed,
		constants.FieldAutoExpire:   strconv.Itoa(s.AutoExpireMinutes),
	}
}

// SessionRecordFromFields rebuilds a record from a stored hash.
// An empty hash means the record does not exist and yields nil.
func SessionRecordFromFields(token string, fields map[string]string) (*SessionRecord, error) {
	if len(fields) == 0 {
		return nil, nil
	}

	record := &SessionRecord{
		Token:        token,
		OwnerID:      fields[constants.FieldOwnerID],
		OwnerName:    fields[constants.FieldOwnerName],
		PasswordHash: fields[constants.FieldPassword],
		PasswordSalt: fields[constants.FieldPasswordSalt],
		Closed:       fields[constants.FieldClosed] == constants.ClosedTrue,
	}

	if raw := fields[constants.FieldCreatedAt]; raw != "" {
		createdAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid created_at %q: %w", raw, err)
		}
		record.CreatedAt = createdAt
	}

	if raw := fields[constants.FieldAutoExpire]; raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid auto_expire %q: %w", raw, err)
		}
		record.AutoExpireMinutes = minutes
	}

	return record, nil
}

// SessionView is what a participant sees when opening an online session.
type SessionView struct {
	Token        string    `json:"token"`
	SessionName  string    `json:"session_name"`
	IsOwner      bool      `json:"is_owner"`
	AutoExpire   int       `json:"auto_expire"`
	Files        []string  `json:"files"`
	Participants []string  `json:"participants"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreatedSession is returned to the owner after creating an online session.
type CreatedSession struct {
	Token string `json:"token"`
}

// LANSessionInfo describes the single active LAN session.
type LANSessionInfo struct {
	Username  string    `json:"username,omitempty"`
	Code      string    `json:"code,omitempty"`
	Folder    string    `json:"-"`
	OwnerID   string    `json:"-"`
	PanelLink string    `json:"panel_link"`
	JoinLink  string    `json:"join_link"`
	CreatedAt time.Time `json:"created_at"`
}

// UploadedFile reports the canonical name a file was stored under.
type UploadedFile struct {
	Filename string `json:"filename"`
}

// FileList is the listing of files in a session folder.
type FileList struct {
	Files []string `json:"files"`
}

// LANPanel is the host's view of the running LAN session.
type LANPanel struct {
	Session *LANSessionInfo `json:"session"`
	Files   []string        `json:"files"`
}

// HealthStatus reports the reachability of the service's backends.
type HealthStatus struct {
	Status   string `json:"status"`
	Store    string `json:"store"`
	Database string `json:"database,omitempty"`
}
