// Package store provides the credential-scoped client for the external data
// store backing the voice gateway: credential validation, device profiles,
// and conversation history. Every request carries the session credential;
// nothing in this repository talks to the underlying store directly.
package store

import (
	"errors"
	"time"
)

// ErrAuthentication reports that the store rejected the presented credential
// as invalid or expired. Use errors.Is to distinguish it from transport or
// server faults, which are returned as ordinary errors.
var ErrAuthentication = errors.New("store: authentication failed")

// User is the authenticated identity behind a credential.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DeviceProfile describes a registered voice device: its display name and
// the persona text used when assembling dialogue prompts.
type DeviceProfile struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Persona  string  `json:"persona,omitempty"`
	Volume   float64 `json:"volume,omitempty"`
	Language string  `json:"language,omitempty"`
}

// Exchange is one user/assistant turn in a conversation.
type Exchange struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}
