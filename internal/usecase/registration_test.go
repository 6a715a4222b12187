package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/avelar/studio-identity/internal/core/domain"
	"github.com/avelar/studio-identity/internal/core/port"
	"github.com/avelar/studio-identity/internal/infra/security"
)

const testPassword = "Abcd1234"

func newTestCodec(t *testing.T) *security.TokenCodec {
	t.Helper()
	codec, err := security.NewTokenCodec("test-signing-secret", "studio-identity-test", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenCodec returned error: %v", err)
	}
	return codec
}

func newTestRegistrationService(t *testing.T, repo *mockAccountRepository, mailer *mockMailer, events *mockEventPublisher) *RegistrationService {
	t.Helper()
	var publisher port.EventPublisher
	if events != nil {
		publisher = events
	}
	return NewRegistrationService(repo, mailer, publisher, newTestCodec(t), nil, RegistrationOptions{
		StudioName: "Test Studio",
		BaseURL:    "https://studio.test",
	}, zaptest.NewLogger(t))
}

func TestRegistrationService_Register_CreatesUnverifiedAccount(t *testing.T) {
	repo := newMockAccountRepository()
	mailer := &mockMailer{}
	events := &mockEventPublisher{}
	service := newTestRegistrationService(t, repo, mailer, events)

	account, err := service.Register(context.Background(), RegisterInput{
		Name:     "Ana",
		Email:    "Ana@Example.com",
		Password: testPassword,
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if account.Email != "ana@example.com" {
		t.Fatalf("expected normalized email, got %q", account.Email)
	}
	if account.Role != domain.RoleStudent {
		t.Fatalf("expected role student, got %q", account.Role)
	}
	if account.IsVerified {
		t.Fatalf("expected account to start unverified")
	}
	if account.PasswordHash != "" {
		t.Fatalf("expected sanitized result without password hash")
	}

	stored, ok := repo.accounts[account.ID]
	if !ok {
		t.Fatalf("expected account to be persisted")
	}
	if ok, err := security.VerifyPassword(testPassword, stored.PasswordHash); err != nil || !ok {
		t.Fatalf("expected stored hash to match registration password")
	}
	if strings.Contains(stored.PasswordHash, testPassword) {
		t.Fatalf("password stored in recoverable form")
	}

	msg, ok := mailer.last()
	if !ok {
		t.Fatalf("expected a verification email to be sent")
	}
	if msg.To != "ana@example.com" {
		t.Fatalf("verification email sent to %q", msg.To)
	}

	secret := secretFromMessage(msg)
	if secret == "" {
		t.Fatalf("expected verification link to carry a secret")
	}
	if stored.VerificationTokenHash == nil || *stored.VerificationTokenHash != security.HashToken(secret) {
		t.Fatalf("stored verification hash does not match emailed secret")
	}
	if strings.Contains(msg.HTML, *stored.VerificationTokenHash) {
		t.Fatalf("email leaks the stored hash")
	}

	if events.registeredCalls != 1 {
		t.Fatalf("expected one registered event, got %d", events.registeredCalls)
	}
}

func TestRegistrationService_Register_DuplicateEmailCaseInsensitive(t *testing.T) {
	repo := newMockAccountRepository()
	mailer := &mockMailer{}
	service := newTestRegistrationService(t, repo, mailer, nil)

	if _, err := service.Register(context.Background(), RegisterInput{Name: "Ana", Email: "ana@example.com", Password: testPassword}); err != nil {
		t.Fatalf("first Register returned error: %v", err)
	}

	_, err := service.Register(context.Background(), RegisterInput{Name: "Ana Again", Email: "ANA@EXAMPLE.COM", Password: testPassword})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if len(repo.accounts) != 1 {
		t.Fatalf("expected a single account, got %d", len(repo.accounts))
	}
}

func TestRegistrationService_Register_RejectsWeakPasswords(t *testing.T) {
	repo := newMockAccountRepository()
	service := newTestRegistrationService(t, repo, &mockMailer{}, nil)

	cases := []struct {
		name     string
		password string
	}{
		{"too short", "Ab1x"},
		{"no uppercase", "abcd1234"},
		{"no lowercase", "ABCD1234"},
		{"no digit", "Abcdefgh"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.Register(context.Background(), RegisterInput{Name: "Ana", Email: "ana@example.com", Password: tc.password})
			if !errors.Is(err, ErrPasswordPolicyViolation) {
				t.Fatalf("expected ErrPasswordPolicyViolation, got %v", err)
			}
		})
	}

	if len(repo.accounts) != 0 {
		t.Fatalf("expected no accounts after rejected registrations")
	}
}

func TestRegistrationService_Register_RejectsMalformedEmail(t *testing.T) {
	service := newTestRegistrationService(t, newMockAccountRepository(), &mockMailer{}, nil)

	for _, email := range []string{"", "not-an-email", "@example.com", "ana@", "ana@host", "a@b@c.com"} {
		if _, err := service.Register(context.Background(), RegisterInput{Name: "Ana", Email: email, Password: testPassword}); err == nil {
			t.Fatalf("expected error for email %q", email)
		}
	}
}

func TestRegistrationService_Register_DispatchFailureRollsBack(t *testing.T) {
	repo := newMockAccountRepository()
	mailer := &mockMailer{sendErr: errMailerDown}
	service := newTestRegistrationService(t, repo, mailer, nil)

	_, err := service.Register(context.Background(), RegisterInput{Name: "Ana", Email: "ana@example.com", Password: testPassword})
	if !errors.Is(err, ErrVerificationDeliveryFailed) {
		t.Fatalf("expected ErrVerificationDeliveryFailed, got %v", err)
	}
	if len(repo.accounts) != 0 {
		t.Fatalf("expected the account row to be rolled back")
	}
	if repo.deleteCalls != 1 {
		t.Fatalf("expected one Delete call, got %d", repo.deleteCalls)
	}

	// The address is free to register again.
	mailer.sendErr = nil
	if _, err := service.Register(context.Background(), RegisterInput{Name: "Ana", Email: "ana@example.com", Password: testPassword}); err != nil {
		t.Fatalf("re-registration after rollback failed: %v", err)
	}
}

func TestRegistrationService_Verify_ActivatesAndSignsIn(t *testing.T) {
	repo := newMockAccountRepository()
	mailer := &mockMailer{}
	events := &mockEventPublisher{}
	service := newTestRegistrationService(t, repo, mailer, events)

	registered, err := service.Register(context.Background(), RegisterInput{Name: "Ana", Email: "ana@example.com", Password: testPassword})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	msg, _ := mailer.last()
	secret := secretFromMessage(msg)

	account, token, err := service.Verify(context.Background(), secret)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if account.ID != registered.ID {
		t.Fatalf("verified wrong account")
	}
	if !account.IsVerified {
		t.Fatalf("expected account to be verified")
	}
	if token == "" {
		t.Fatalf("expected a bearer token after verification")
	}

	stored := repo.accounts[account.ID]
	if stored.VerificationTokenHash != nil {
		t.Fatalf("expected verification hash to be cleared")
	}
	if events.verifiedCalls != 1 {
		t.Fatalf("expected one verified event, got %d", events.verifiedCalls)
	}
}

func TestRegistrationService_Verify_SecretIsSingleUse(t *testing.T) {
	repo := newMockAccountRepository()
	mailer := &mockMailer{}
	service := newTestRegistrationService(t, repo, mailer, nil)

	if _, err := service.Register(context.Background(), RegisterInput{Name: "Ana", Email: "ana@example.com", Password: testPassword}); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	msg, _ := mailer.last()
	secret := secretFromMessage(msg)

	if _, _, err := service.Verify(context.Background(), secret); err != nil {
		t.Fatalf("first Verify returned error: %v", err)
	}

	if _, _, err := service.Verify(context.Background(), secret); !errors.Is(err, ErrVerificationTokenInvalid) {
		t.Fatalf("expected second Verify to fail with ErrVerificationTokenInvalid, got %v", err)
	}
}

func TestRegistrationService_ResendVerification_SilentForUnknownAndVerified(t *testing.T) {
	repo := newMockAccountRepository()
	seedAccount(t, repo, "done@example.com", testPassword, true, domain.RoleStudent)
	mailer := &mockMailer{}
	service := newTestRegistrationService(t, repo, mailer, nil)

	for _, addr := range []string{"nobody@example.com", "not-an-email", "done@example.com"} {
		if err := service.ResendVerification(context.Background(), addr); err != nil {
			t.Fatalf("ResendVerification(%q) returned error: %v", addr, err)
		}
	}
	if len(mailer.messages) != 0 {
		t.Fatalf("expected no email, got %d", len(mailer.messages))
	}
}

func TestRegistrationService_ResendVerification_SupersedesPreviousSecret(t *testing.T) {
	repo := newMockAccountRepository()
	mailer := &mockMailer{}
	service := newTestRegistrationService(t, repo, mailer, nil)

	if _, err := service.Register(context.Background(), RegisterInput{Name: "Ana", Email: "ana@example.com", Password: testPassword}); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	first, _ := mailer.last()
	firstSecret := secretFromMessage(first)

	if err := service.ResendVerification(context.Background(), "Ana@Example.com"); err != nil {
		t.Fatalf("ResendVerification returned error: %v", err)
	}
	second, _ := mailer.last()
	secondSecret := secretFromMessage(second)
	if secondSecret == "" || secondSecret == firstSecret {
		t.Fatalf("expected a fresh secret on resend")
	}

	if _, _, err := service.Verify(context.Background(), firstSecret); !errors.Is(err, ErrVerificationTokenInvalid) {
		t.Fatalf("expected the superseded secret to be rejected, got %v", err)
	}
	if _, _, err := service.Verify(context.Background(), secondSecret); err != nil {
		t.Fatalf("resent secret failed to verify: %v", err)
	}
}

func TestRegistrationService_ResendVerification_DispatchFailure(t *testing.T) {
	repo := newMockAccountRepository()
	mailer := &mockMailer{}
	service := newTestRegistrationService(t, repo, mailer, nil)

	if _, err := service.Register(context.Background(), RegisterInput{Name: "Ana", Email: "ana@example.com", Password: testPassword}); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	mailer.sendErr = errMailerDown
	if err := service.ResendVerification(context.Background(), "ana@example.com"); !errors.Is(err, ErrVerificationDeliveryFailed) {
		t.Fatalf("expected ErrVerificationDeliveryFailed, got %v", err)
	}

	// The account survives a failed resend; another attempt still works.
	mailer.sendErr = nil
	if err := service.ResendVerification(context.Background(), "ana@example.com"); err != nil {
		t.Fatalf("retry after dispatch failure returned error: %v", err)
	}
}

func TestRegistrationService_Verify_UnknownSecret(t *testing.T) {
	service := newTestRegistrationService(t, newMockAccountRepository(), &mockMailer{}, nil)

	for _, secret := range []string{"", "   ", "bogus-secret"} {
		if _, _, err := service.Verify(context.Background(), secret); !errors.Is(err, ErrVerificationTokenInvalid) {
			t.Fatalf("expected ErrVerificationTokenInvalid for %q, got %v", secret, err)
		}
	}
}
