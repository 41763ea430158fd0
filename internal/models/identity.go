package models

import "strconv"

// Identity is the authenticated caller as reported by the identity provider.
// Users are not stored by this service; the access token is the identity.
type Identity struct {
	ID   int64  `json:"id"`
	Name string `json:"username"`
}

// IDString returns the identity ID in the form it is stored in session records.
func (i Identity) IDString() string {
	return strconv.FormatInt(i.ID, 10)
}

// IsZero reports whether the identity is anonymous.
func (i Identity) IsZero() bool {
	return i.ID == 0 && i.Name == ""
}
