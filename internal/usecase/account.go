package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avelar/studio-identity/internal/core/domain"
	"github.com/avelar/studio-identity/internal/core/port"
	"github.com/avelar/studio-identity/internal/infra/logger"
	"github.com/avelar/studio-identity/internal/repository"
)

var (
	// ErrAccountNotFound indicates the referenced account does not exist.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidRole indicates a role outside the known tiers.
	ErrInvalidRole = errors.New("invalid role")
	// ErrSelfDemotion blocks an admin from revoking their own admin role.
	ErrSelfDemotion = errors.New("cannot change own role")
)

// AccountService covers profile reads and writes plus the admin-only
// account management operations.
type AccountService struct {
	accounts port.AccountRepository
	events   port.EventPublisher
	logger   *zap.Logger
	now      func() time.Time
}

// NewAccountService constructs an AccountService.
func NewAccountService(accounts port.AccountRepository, events port.EventPublisher, log *zap.Logger) *AccountService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountService{
		accounts: accounts,
		events:   events,
		logger:   log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *AccountService) WithClock(now func() time.Time) *AccountService {
	if now != nil {
		s.now = now
	}
	return s
}

// GetProfile returns the sanitized account for the given id.
func (s *AccountService) GetProfile(ctx context.Context, accountID string) (domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Account{}, ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("lookup account: %w", err)
	}
	return account.Sanitized(), nil
}

// ProfileUpdateInput carries the mutable profile fields. Nil pointers mean
// "leave unchanged"; favorites replaces the set wholesale when non-nil.
type ProfileUpdateInput struct {
	Name      *string
	Email     *string
	Avatar    *string
	Favorites []string
}

// UpdateProfile applies a partial profile update and returns the result.
func (s *AccountService) UpdateProfile(ctx context.Context, accountID string, input ProfileUpdateInput) (domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Account{}, ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("lookup account: %w", err)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return domain.Account{}, fmt.Errorf("name cannot be empty")
		}
		account.Name = name
	}
	if input.Email != nil {
		normalized, err := NormalizeEmail(*input.Email)
		if err != nil {
			return domain.Account{}, err
		}
		account.Email = normalized
	}
	if input.Avatar != nil {
		account.Avatar = strings.TrimSpace(*input.Avatar)
	}
	if input.Favorites != nil {
		account.Favorites = dedupeFavorites(input.Favorites)
	}
	account.UpdatedAt = s.now()

	if err := s.accounts.UpdateProfile(ctx, *account); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return domain.Account{}, ErrEmailTaken
		}
		return domain.Account{}, fmt.Errorf("update profile: %w", err)
	}

	s.logger.Info("profile updated",
		zap.String("account_id", account.ID),
	)

	return account.Sanitized(), nil
}

// ListAccounts returns all accounts, sanitized. Admin surface only; the
// route gate enforces that.
func (s *AccountService) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	out := make([]domain.Account, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.Sanitized())
	}
	return out, nil
}

// ChangeRole moves an account between tiers. Admins cannot change their own
// role, which keeps the studio from locking itself out of the last admin.
func (s *AccountService) ChangeRole(ctx context.Context, actorID, accountID string, newRole domain.Role) (domain.Account, error) {
	if !newRole.Valid() {
		return domain.Account{}, ErrInvalidRole
	}
	if actorID == accountID {
		return domain.Account{}, ErrSelfDemotion
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Account{}, ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("lookup account: %w", err)
	}

	oldRole := account.Role
	if oldRole == newRole {
		return account.Sanitized(), nil
	}

	if err := s.accounts.UpdateRole(ctx, accountID, newRole); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Account{}, ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("update role: %w", err)
	}
	account.Role = newRole

	s.publishRoleChanged(ctx, account.ID, oldRole, newRole, actorID)

	s.logger.Info("role changed",
		zap.String("account_id", account.ID),
		zap.String("old_role", string(oldRole)),
		zap.String("new_role", string(newRole)),
		zap.String("changed_by", actorID),
	)

	return account.Sanitized(), nil
}

// DeleteAccount removes an account. Admins cannot delete themselves.
func (s *AccountService) DeleteAccount(ctx context.Context, actorID, accountID string) error {
	if actorID == accountID {
		return ErrSelfDemotion
	}
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("lookup account: %w", err)
	}
	if err := s.accounts.Delete(ctx, accountID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("delete account: %w", err)
	}

	s.logger.Info("account deleted",
		zap.String("account_id", account.ID),
		zap.String("email", logger.MaskEmail(account.Email)),
		zap.String("deleted_by", actorID),
	)

	return nil
}

func (s *AccountService) publishRoleChanged(ctx context.Context, accountID string, oldRole, newRole domain.Role, actorID string) {
	if s.events == nil {
		return
	}
	event := domain.RoleChangedEvent{
		EventID:   uuid.NewString(),
		AccountID: accountID,
		OldRole:   oldRole,
		NewRole:   newRole,
		ChangedBy: actorID,
		ChangedAt: s.now(),
	}
	if err := s.events.PublishRoleChanged(ctx, event); err != nil {
		s.logger.Warn("publish role changed event failed", zap.Error(err))
	}
}

func dedupeFavorites(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
