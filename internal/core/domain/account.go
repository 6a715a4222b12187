package domain

import "time"

// Role is the coarse authorization tier attached to every account.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// Valid reports whether the role is one of the known tiers.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleAdmin
}

// Account mirrors the persisted representation in the accounts table.
//
// PasswordHash is an encoded argon2id derivation and must never be
// serialized outward. VerificationTokenHash and ResetTokenHash hold SHA-256
// digests of one-time secrets; the plain secrets only ever travel by email.
type Account struct {
	ID                    string
	Name                  string
	Email                 string
	PasswordHash          string
	Role                  Role
	IsVerified            bool
	VerificationTokenHash *string
	ResetTokenHash        *string
	ResetTokenExpiresAt   *time.Time
	Avatar                string
	Favorites             []string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Sanitized returns a copy safe to hand to transport code: the password
// hash and pending secret hashes are stripped.
func (a Account) Sanitized() Account {
	out := a
	out.PasswordHash = ""
	out.VerificationTokenHash = nil
	out.ResetTokenHash = nil
	out.ResetTokenExpiresAt = nil
	return out
}
