package domain

import "time"

// AccountRegisteredEvent signals a new unverified account.
type AccountRegisteredEvent struct {
	EventID      string
	AccountID    string
	Name         string
	Email        string
	RegisteredAt time.Time
	Metadata     map[string]any
}

// AccountVerifiedEvent signals a completed email verification.
type AccountVerifiedEvent struct {
	EventID    string
	AccountID  string
	Email      string
	VerifiedAt time.Time
	Metadata   map[string]any
}

// PasswordChangedEvent signals a credential rotation, whether by reset or
// by an authenticated change.
type PasswordChangedEvent struct {
	EventID   string
	AccountID string
	ChangedAt time.Time
	ChangedBy string
	Metadata  map[string]any
}

// PasswordResetRequestedEvent signals an issued reset secret. Destination is
// the raw address for delivery pipelines; MaskedDestination is safe to log.
type PasswordResetRequestedEvent struct {
	EventID           string
	AccountID         string
	RequestedAt       time.Time
	Destination       string
	MaskedDestination string
	ExpiresAt         time.Time
	Metadata          map[string]any
}

// RoleChangedEvent signals an admin-driven role transition.
type RoleChangedEvent struct {
	EventID   string
	AccountID string
	OldRole   Role
	NewRole   Role
	ChangedBy string
	ChangedAt time.Time
	Metadata  map[string]any
}
