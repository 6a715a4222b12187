package port

import (
	"context"
	"time"

	"github.com/avelar/studio-identity/internal/core/domain"
)

// AccountRepository abstracts persistence for accounts.
//
// Implementations must enforce email uniqueness at the storage layer and
// surface violations as repository.ErrDuplicateEmail; lookups that miss
// return repository.ErrNotFound.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByVerificationTokenHash(ctx context.Context, hash string) (*domain.Account, error)
	GetByResetTokenHash(ctx context.Context, hash string) (*domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)

	// UpdateProfile persists name, email, avatar, and the favorites set.
	UpdateProfile(ctx context.Context, account domain.Account) error
	UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error
	UpdateRole(ctx context.Context, id string, role domain.Role) error

	// MarkVerified flips is_verified and clears the verification hash in one
	// statement so a consumed secret can never be replayed.
	MarkVerified(ctx context.Context, id string) error
	SetVerificationToken(ctx context.Context, id, tokenHash string) error
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, id string) error

	Delete(ctx context.Context, id string) error
}
