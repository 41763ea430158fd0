// Package realtime fans session events out to the clients connected to each
// session. Events are published on a topic named by the session token;
// subscribers of that topic in every server process receive them.
package realtime

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/constants"
)

// Event is a notification about a session, delivered to its participants.
type Event struct {
	Type  string          `json:"type"`
	Token string          `json:"token"`
	Data  json.RawMessage `json:"data"`
}

// Publisher delivers an event to every subscriber of the event's session.
// Delivery is best-effort and at most once.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// ParticipantsData is the payload of a participants_update event.
type ParticipantsData struct {
	Participants []string `json:"participants"`
}

// FileAddedData is the payload of a file_added event.
type FileAddedData struct {
	Filename string `json:"filename"`
	Uploader string `json:"uploader"`
}

// AutoExpireData is the payload of an auto_expire_set event.
type AutoExpireData struct {
	Minutes int `json:"minutes"`
}

// NewEvent builds an event with the given payload encoded as JSON.
func NewEvent(eventType, token string, data interface{}) Event {
	raw := json.RawMessage("{}")
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			log.Error().Err(err).Str("event", eventType).Msg("Failed to encode event payload")
		} else {
			raw = encoded
		}
	}
	return Event{Type: eventType, Token: token, Data: raw}
}

// ParticipantsUpdate announces the current participant set.
func ParticipantsUpdate(token string, participants []string) Event {
	if participants == nil {
		participants = []string{}
	}
	return NewEvent(constants.EventParticipantsUpdate, token, ParticipantsData{Participants: participants})
}

// FileAdded announces a newly registered file.
func FileAdded(token, filename, uploader string) Event {
	return NewEvent(constants.EventFileAdded, token, FileAddedData{Filename: filename, Uploader: uploader})
}

// AutoExpireSet announces a new session lifetime.
func AutoExpireSet(token string, minutes int) Event {
	return NewEvent(constants.EventAutoExpireSet, token, AutoExpireData{Minutes: minutes})
}

// SessionEnded announces that the owner ended the session.
func SessionEnded(token string) Event {
	return NewEvent(constants.EventSessionEnded, token, nil)
}
