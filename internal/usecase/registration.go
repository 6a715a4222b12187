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

var (
	// ErrEmailTaken indicates another account already owns the address.
	ErrEmailTaken = errors.New("email already registered")
	// ErrPasswordPolicyViolation indicates the password does not satisfy the strength policy.
	ErrPasswordPolicyViolation = errors.New("password does not meet complexity requirements")
	// ErrVerificationTokenInvalid indicates the verification secret is unknown or already consumed.
	ErrVerificationTokenInvalid = errors.New("verification token invalid")
	// ErrVerificationDeliveryFailed indicates the verification email could not be dispatched.
	ErrVerificationDeliveryFailed = errors.New("verification email delivery failed")
)

// RegistrationOptions carries the knobs the registration flow needs beyond
// its collaborators.
type RegistrationOptions struct {
	StudioName  string
	BaseURL     string
	SendTimeout time.Duration
}

// RegistrationService handles new account onboarding and email verification.
type RegistrationService struct {
	accounts          port.AccountRepository
	mailer            port.Mailer
	events            port.EventPublisher
	tokenCodec        *security.TokenCodec
	passwordValidator *security.PasswordValidator
	opts              RegistrationOptions
	logger            *zap.Logger
	now               func() time.Time
}

// NewRegistrationService constructs a registration service.
func NewRegistrationService(accounts port.AccountRepository, mailer port.Mailer, events port.EventPublisher, codec *security.TokenCodec, validator *security.PasswordValidator, opts RegistrationOptions, log *zap.Logger) *RegistrationService {
	if validator == nil {
		validator = security.DefaultPasswordValidator()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 10 * time.Second
	}
	return &RegistrationService{
		accounts:          accounts,
		mailer:            mailer,
		events:            events,
		tokenCodec:        codec,
		passwordValidator: validator,
		opts:              opts,
		logger:            log,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *RegistrationService) WithClock(now func() time.Time) *RegistrationService {
	if now != nil {
		s.now = now
	}
	return s
}

// RegisterInput carries the public registration payload.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Avatar   string
}

// Register creates an unverified account and dispatches the verification
// email. If delivery fails the account row is removed again so the caller
// can retry registration cleanly.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (domain.Account, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return domain.Account{}, fmt.Errorf("name is required")
	}
	emailAddr, err := NormalizeEmail(input.Email)
	if err != nil {
		return domain.Account{}, err
	}
	if input.Password == "" {
		return domain.Account{}, fmt.Errorf("password is required")
	}

	if err := s.passwordValidator.Validate(input.Password); err != nil {
		return domain.Account{}, fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return domain.Account{}, fmt.Errorf("hash password: %w", err)
	}

	rawSecret, err := security.GenerateSecureToken(security.SecretTokenBytes)
	if err != nil {
		return domain.Account{}, fmt.Errorf("generate verification token: %w", err)
	}
	secretHash := security.HashToken(rawSecret)

	now := s.now()
	account := domain.Account{
		ID:                    uuid.NewString(),
		Name:                  name,
		Email:                 emailAddr,
		PasswordHash:          passwordHash,
		Role:                  domain.RoleStudent,
		IsVerified:            false,
		VerificationTokenHash: &secretHash,
		Avatar:                strings.TrimSpace(input.Avatar),
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return domain.Account{}, ErrEmailTaken
		}
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}

	msg, err := email.VerificationMessage(emailAddr, name, s.opts.StudioName, s.opts.BaseURL, rawSecret)
	if err != nil {
		s.rollbackRegistration(ctx, account.ID)
		return domain.Account{}, fmt.Errorf("render verification email: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.opts.SendTimeout)
	defer cancel()
	if err := s.mailer.Send(sendCtx, msg); err != nil {
		s.logger.Warn("verification email dispatch failed",
			zap.String("email", logger.MaskEmail(emailAddr)),
			zap.Error(err),
		)
		s.rollbackRegistration(ctx, account.ID)
		return domain.Account{}, fmt.Errorf("%w: %v", ErrVerificationDeliveryFailed, err)
	}

	s.publishRegistered(ctx, account)

	s.logger.Info("account registered",
		zap.String("account_id", account.ID),
		zap.String("email", logger.MaskEmail(emailAddr)),
	)

	return account.Sanitized(), nil
}

// ResendVerification issues a fresh verification secret for an unverified
// account and emails it. Unknown, malformed, and already-verified addresses
// are accepted silently so the endpoint never confirms whether an address is
// registered. The new secret supersedes any previously emailed one.
func (s *RegistrationService) ResendVerification(ctx context.Context, rawEmail string) error {
	emailAddr, err := NormalizeEmail(rawEmail)
	if err != nil {
		return nil
	}

	account, err := s.accounts.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Info("verification resend for unknown email",
				zap.String("email", logger.MaskEmail(emailAddr)),
			)
			return nil
		}
		return fmt.Errorf("lookup account: %w", err)
	}
	if account.IsVerified {
		return nil
	}

	rawSecret, err := security.GenerateSecureToken(security.SecretTokenBytes)
	if err != nil {
		return fmt.Errorf("generate verification token: %w", err)
	}
	if err := s.accounts.SetVerificationToken(ctx, account.ID, security.HashToken(rawSecret)); err != nil {
		return fmt.Errorf("store verification token: %w", err)
	}

	msg, err := email.VerificationMessage(account.Email, account.Name, s.opts.StudioName, s.opts.BaseURL, rawSecret)
	if err != nil {
		return fmt.Errorf("render verification email: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.opts.SendTimeout)
	defer cancel()
	if err := s.mailer.Send(sendCtx, msg); err != nil {
		s.logger.Warn("verification email dispatch failed",
			zap.String("email", logger.MaskEmail(account.Email)),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrVerificationDeliveryFailed, err)
	}

	s.logger.Info("verification email resent",
		zap.String("account_id", account.ID),
		zap.String("email", logger.MaskEmail(account.Email)),
	)

	return nil
}

// Verify consumes a verification secret, activates the account, and issues
// a bearer token so the fresh account is signed in immediately.
func (s *RegistrationService) Verify(ctx context.Context, secret string) (domain.Account, string, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return domain.Account{}, "", ErrVerificationTokenInvalid
	}

	account, err := s.accounts.GetByVerificationTokenHash(ctx, security.HashToken(secret))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Account{}, "", ErrVerificationTokenInvalid
		}
		return domain.Account{}, "", fmt.Errorf("lookup verification token: %w", err)
	}

	// MarkVerified clears the hash in the same statement; a raced second
	// submission of the same secret reports not found.
	if err := s.accounts.MarkVerified(ctx, account.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Account{}, "", ErrVerificationTokenInvalid
		}
		return domain.Account{}, "", fmt.Errorf("mark verified: %w", err)
	}

	account.IsVerified = true
	account.VerificationTokenHash = nil

	token, err := s.tokenCodec.Issue(account.ID, account.Role)
	if err != nil {
		return domain.Account{}, "", fmt.Errorf("issue access token: %w", err)
	}

	s.publishVerified(ctx, *account)

	s.logger.Info("account verified",
		zap.String("account_id", account.ID),
		zap.String("email", logger.MaskEmail(account.Email)),
	)

	return account.Sanitized(), token, nil
}

func (s *RegistrationService) rollbackRegistration(ctx context.Context, accountID string) {
	if err := s.accounts.Delete(ctx, accountID); err != nil {
		s.logger.Error("registration rollback failed",
			zap.String("account_id", accountID),
			zap.Error(err),
		)
	}
}

func (s *RegistrationService) publishRegistered(ctx context.Context, account domain.Account) {
	if s.events == nil {
		return
	}
	event := domain.AccountRegisteredEvent{
		EventID:      uuid.NewString(),
		AccountID:    account.ID,
		Name:         account.Name,
		Email:        account.Email,
		RegisteredAt: account.CreatedAt,
	}
	if err := s.events.PublishAccountRegistered(ctx, event); err != nil {
		s.logger.Warn("publish account registered event failed", zap.Error(err))
	}
}

func (s *RegistrationService) publishVerified(ctx context.Context, account domain.Account) {
	if s.events == nil {
		return
	}
	event := domain.AccountVerifiedEvent{
		EventID:    uuid.NewString(),
		AccountID:  account.ID,
		Email:      account.Email,
		VerifiedAt: s.now(),
	}
	if err := s.events.PublishAccountVerified(ctx, event); err != nil {
		s.logger.Warn("publish account verified event failed", zap.Error(err))
	}
}

// NormalizeEmail lowercases and trims an address so lookups and the unique
// index agree on a canonical form.
func NormalizeEmail(raw string) (string, error) {
	addr := strings.ToLower(strings.TrimSpace(raw))
	if addr == "" {
		return "", fmt.Errorf("email is required")
	}
	at := strings.Index(addr, "@")
	if at <= 0 || at == len(addr)-1 || strings.Count(addr, "@") != 1 {
		return "", fmt.Errorf("email is malformed")
	}
	if !strings.Contains(addr[at+1:], ".") {
		return "", fmt.Errorf("email is malformed")
	}
	return addr, nil
}
