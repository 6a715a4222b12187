package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/avelar/studio-identity/internal/core/domain"
	"github.com/avelar/studio-identity/internal/core/port"
	"github.com/avelar/studio-identity/internal/infra/logger"
	"github.com/avelar/studio-identity/internal/infra/security"
	"github.com/avelar/studio-identity/internal/repository"
)

var (
	// ErrInvalidCredentials covers both an unknown email and a password
	// mismatch; callers must not be able to tell the two apart.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountNotVerified indicates the credentials matched but the email
	// was never confirmed.
	ErrAccountNotVerified = errors.New("account not verified")
	// ErrUnauthenticated indicates a missing, malformed, expired, or
	// otherwise unusable bearer token.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates an authenticated caller lacking the required role.
	ErrForbidden = errors.New("forbidden")
)

// AuthService issues and validates bearer tokens.
type AuthService struct {
	accounts   port.AccountRepository
	tokenCodec *security.TokenCodec
	logger     *zap.Logger
}

// NewAuthService constructs an AuthService.
func NewAuthService(accounts port.AccountRepository, codec *security.TokenCodec, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{accounts: accounts, tokenCodec: codec, logger: log}
}

// Login verifies credentials and returns the account with a fresh bearer
// token. Credential failures are reported before the verification state so
// an unverified-account response never leaks that a password was correct.
func (s *AuthService) Login(ctx context.Context, emailAddr, password string) (domain.Account, string, error) {
	normalized, err := NormalizeEmail(emailAddr)
	if err != nil {
		return domain.Account{}, "", ErrInvalidCredentials
	}
	if password == "" {
		return domain.Account{}, "", ErrInvalidCredentials
	}

	account, err := s.accounts.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Account{}, "", ErrInvalidCredentials
		}
		return domain.Account{}, "", fmt.Errorf("lookup account: %w", err)
	}

	ok, err := security.VerifyPassword(password, account.PasswordHash)
	if err != nil {
		return domain.Account{}, "", fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.logger.Info("login rejected",
			zap.String("email", logger.MaskEmail(normalized)),
			zap.String("reason", "password_mismatch"),
		)
		return domain.Account{}, "", ErrInvalidCredentials
	}

	if !account.IsVerified {
		s.logger.Info("login rejected",
			zap.String("email", logger.MaskEmail(normalized)),
			zap.String("reason", "not_verified"),
		)
		return domain.Account{}, "", ErrAccountNotVerified
	}

	token, err := s.tokenCodec.Issue(account.ID, account.Role)
	if err != nil {
		return domain.Account{}, "", fmt.Errorf("issue access token: %w", err)
	}

	s.logger.Info("login succeeded",
		zap.String("account_id", account.ID),
		zap.String("email", logger.MaskEmail(normalized)),
	)

	return account.Sanitized(), token, nil
}

// Authenticate resolves a bearer token to its live account. Tokens whose
// subject no longer exists are rejected the same way bad signatures are.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.Account, error) {
	claims, err := s.tokenCodec.Verify(token)
	if err != nil {
		return domain.Account{}, ErrUnauthenticated
	}

	account, err := s.accounts.GetByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Account{}, ErrUnauthenticated
		}
		return domain.Account{}, fmt.Errorf("lookup account: %w", err)
	}

	return account.Sanitized(), nil
}
