package repository

import (
	"strings"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/constants"
)

// RecordKey returns the key of the session record hash.
func RecordKey(token string) string {
	return constants.SessionKeyPrefix + token
}

// ParticipantsKey returns the key of the session participant set.
func ParticipantsKey(token string) string {
	return constants.SessionKeyPrefix + token + constants.ParticipantsKeySuffix
}

// FilesKey returns the key of the session file list.
func FilesKey(token string) string {
	return constants.SessionKeyPrefix + token + constants.FilesKeySuffix
}

// SessionKeys returns all three keys owned by a session.
func SessionKeys(token string) []string {
	return []string{RecordKey(token), ParticipantsKey(token), FilesKey(token)}
}

// TokenFromKey extracts the session token from any of its keys.
// It returns false for keys outside the session namespace.
func TokenFromKey(key string) (string, bool) {
	if !strings.HasPrefix(key, constants.SessionKeyPrefix) {
		return "", false
	}
	rest := strings.TrimPrefix(key, constants.SessionKeyPrefix)
	rest = strings.TrimSuffix(rest, constants.ParticipantsKeySuffix)
	rest = strings.TrimSuffix(rest, constants.FilesKeySuffix)
	if rest == "" || strings.Contains(rest, ":") {
		return "", false
	}
	return rest, true
}
