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
	"github.com/avelar/studio-identity/internal/infra/email"
	"github.com/avelar/studio-identity/internal/infra/logger"
	"github.com/avelar/studio-identity/internal/infra/security"
	"github.com/avelar/studio-identity/internal/repository"
)

const defaultResetTTL = 10 * time.Minute

var (
	// ErrResetTokenInvalid indicates the reset secret is unknown, consumed,
	// or superseded by a newer request.
	ErrResetTokenInvalid = errors.New("password reset token invalid")
	// ErrResetTokenExpired indicates the secret exists but its window passed.
	ErrResetTokenExpired = errors.New("password reset token expired")
	// ErrResetDeliveryFailed indicates the reset email could not be dispatched.
	ErrResetDeliveryFailed = errors.New("password reset email delivery failed")
)

// PasswordResetOptions carries flow configuration.
type PasswordResetOptions struct {
	StudioName  string
	BaseURL     string
	ResetTTL    time.Duration
	SendTimeout time.Duration
}

// PasswordResetService coordinates the two-phase reset flow and
// authenticated password changes.
type PasswordResetService struct {
	accounts          port.AccountRepository
	mailer            port.Mailer
	events            port.EventPublisher
	passwordValidator *security.PasswordValidator
	opts              PasswordResetOptions
	logger            *zap.Logger
	now               func() time.Time
}

// NewPasswordResetService constructs a PasswordResetService.
func NewPasswordResetService(accounts port.AccountRepository, mailer port.Mailer, events port.EventPublisher, validator *security.PasswordValidator, opts PasswordResetOptions, log *zap.Logger) *PasswordResetService {
	if validator == nil {
		validator = security.DefaultPasswordValidator()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.ResetTTL <= 0 {
		opts.ResetTTL = defaultResetTTL
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 10 * time.Second
	}
	return &PasswordResetService{
		accounts:          accounts,
		mailer:            mailer,
		events:            events,
		passwordValidator: validator,
		opts:              opts,
		logger:            log,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *PasswordResetService) WithClock(now func() time.Time) *PasswordResetService {
	if now != nil {
		s.now = now
	}
	return s
}

// RequestReset issues a fresh reset secret and emails it to the account.
// The returned error is nil for unknown addresses too: the caller renders
// the same generic confirmation either way so the endpoint cannot be used
// to probe which emails are registered. A repeated request overwrites the
// stored hash, so only the newest emailed secret can complete the flow.
func (s *PasswordResetService) RequestReset(ctx context.Context, emailAddr string) error {
	normalized, err := NormalizeEmail(emailAddr)
	if err != nil {
		return nil
	}

	account, err := s.accounts.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Info("password reset requested for unknown email",
				zap.String("email", logger.MaskEmail(normalized)),
			)
			return nil
		}
		return fmt.Errorf("lookup account: %w", err)
	}

	rawSecret, err := security.GenerateSecureToken(security.SecretTokenBytes)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	now := s.now()
	expiresAt := now.Add(s.opts.ResetTTL)
	if err := s.accounts.SetResetToken(ctx, account.ID, security.HashToken(rawSecret), expiresAt); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	msg, err := email.ResetMessage(account.Email, account.Name, s.opts.StudioName, s.opts.BaseURL, rawSecret, formatTTL(s.opts.ResetTTL))
	if err != nil {
		s.clearResetState(ctx, account.ID)
		return fmt.Errorf("render reset email: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.opts.SendTimeout)
	defer cancel()
	if err := s.mailer.Send(sendCtx, msg); err != nil {
		s.logger.Warn("reset email dispatch failed",
			zap.String("email", logger.MaskEmail(account.Email)),
			zap.Error(err),
		)
		s.clearResetState(ctx, account.ID)
		return fmt.Errorf("%w: %v", ErrResetDeliveryFailed, err)
	}

	s.publishResetRequested(ctx, *account, now, expiresAt)

	s.logger.Info("password reset requested",
		zap.String("account_id", account.ID),
		zap.String("email", logger.MaskEmail(account.Email)),
		zap.Time("expires_at", expiresAt),
	)

	return nil
}

// ConfirmReset consumes a reset secret and installs the new password. The
// stored hash and expiry are cleared whether the attempt succeeds or
// arrives too late, so no secret survives its first confirmation attempt.
func (s *PasswordResetService) ConfirmReset(ctx context.Context, secret, newPassword string) error {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return ErrResetTokenInvalid
	}

	account, err := s.accounts.GetByResetTokenHash(ctx, security.HashToken(secret))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("lookup reset token: %w", err)
	}

	if account.ResetTokenExpiresAt == nil || s.now().After(*account.ResetTokenExpiresAt) {
		s.clearResetState(ctx, account.ID)
		return ErrResetTokenExpired
	}

	if err := s.passwordValidator.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}

	passwordHash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	changedAt := s.now()
	if err := s.accounts.UpdatePassword(ctx, account.ID, passwordHash, changedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := s.accounts.ClearResetToken(ctx, account.ID); err != nil {
		return fmt.Errorf("clear reset token: %w", err)
	}

	s.publishPasswordChanged(ctx, account.ID, account.ID, changedAt, "reset")

	s.logger.Info("password reset completed",
		zap.String("account_id", account.ID),
	)

	return nil
}

// ChangePassword rotates the password for an authenticated account after
// re-checking the current one.
func (s *PasswordResetService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUnauthenticated
		}
		return fmt.Errorf("lookup account: %w", err)
	}

	ok, err := security.VerifyPassword(currentPassword, account.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	if err := s.passwordValidator.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}

	passwordHash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	changedAt := s.now()
	if err := s.accounts.UpdatePassword(ctx, account.ID, passwordHash, changedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.publishPasswordChanged(ctx, account.ID, account.ID, changedAt, "change")

	s.logger.Info("password changed",
		zap.String("account_id", account.ID),
	)

	return nil
}

func (s *PasswordResetService) clearResetState(ctx context.Context, accountID string) {
	if err := s.accounts.ClearResetToken(ctx, accountID); err != nil {
		s.logger.Error("clear reset token failed",
			zap.String("account_id", accountID),
			zap.Error(err),
		)
	}
}

func (s *PasswordResetService) publishResetRequested(ctx context.Context, account domain.Account, requestedAt, expiresAt time.Time) {
	if s.events == nil {
		return
	}
	event := domain.PasswordResetRequestedEvent{
		EventID:           uuid.NewString(),
		AccountID:         account.ID,
		RequestedAt:       requestedAt,
		Destination:       account.Email,
		MaskedDestination: logger.MaskEmail(account.Email),
		ExpiresAt:         expiresAt,
	}
	if err := s.events.PublishPasswordResetRequested(ctx, event); err != nil {
		s.logger.Warn("publish password reset requested event failed", zap.Error(err))
	}
}

func (s *PasswordResetService) publishPasswordChanged(ctx context.Context, accountID, changedBy string, changedAt time.Time, reason string) {
	if s.events == nil {
		return
	}
	event := domain.PasswordChangedEvent{
		EventID:   uuid.NewString(),
		AccountID: accountID,
		ChangedAt: changedAt,
		ChangedBy: changedBy,
		Metadata:  map[string]any{"reason": reason},
	}
	if err := s.events.PublishPasswordChanged(ctx, event); err != nil {
		s.logger.Warn("publish password changed event failed", zap.Error(err))
	}
}

func formatTTL(d time.Duration) string {
	if d%time.Minute == 0 {
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	}
	return d.String()
}
