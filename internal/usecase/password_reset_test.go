package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/avelar/studio-identity/internal/core/domain"
	"github.com/avelar/studio-identity/internal/core/port"
	"github.com/avelar/studio-identity/internal/infra/security"
)

func newTestResetService(t *testing.T, repo *mockAccountRepository, mailer *mockMailer, events *mockEventPublisher) *PasswordResetService {
	t.Helper()
	var publisher port.EventPublisher
	if events != nil {
		publisher = events
	}
	return NewPasswordResetService(repo, mailer, publisher, nil, PasswordResetOptions{
		StudioName: "Test Studio",
		BaseURL:    "https://studio.test",
		ResetTTL:   10 * time.Minute,
	}, zaptest.NewLogger(t))
}

func TestPasswordResetService_RequestReset_UnknownEmailIsSilent(t *testing.T) {
	repo := newMockAccountRepository()
	mailer := &mockMailer{}
	service := newTestResetService(t, repo, mailer, nil)

	if err := service.RequestReset(context.Background(), "nobody@example.com"); err != nil {
		t.Fatalf("expected nil for unknown email, got %v", err)
	}
	if len(mailer.messages) != 0 {
		t.Fatalf("expected no email for unknown address")
	}

	// Malformed input behaves the same as an unknown address.
	if err := service.RequestReset(context.Background(), "not-an-email"); err != nil {
		t.Fatalf("expected nil for malformed email, got %v", err)
	}
}

func TestPasswordResetService_RequestReset_IssuesExpiringSecret(t *testing.T) {
	repo := newMockAccountRepository()
	mailer := &mockMailer{}
	events := &mockEventPublisher{}
	service := newTestResetService(t, repo, mailer, events)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	service.WithClock(func() time.Time { return now })

	seeded := seedAccount(t, repo, "ana@example.com", testPassword, true, domain.RoleStudent)

	if err := service.RequestReset(context.Background(), "ana@example.com"); err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}

	stored := repo.accounts[seeded.ID]
	if stored.ResetTokenHash == nil {
		t.Fatalf("expected reset hash to be stored")
	}
	if stored.ResetTokenExpiresAt == nil || !stored.ResetTokenExpiresAt.Equal(now.Add(10*time.Minute)) {
		t.Fatalf("expected expiry 10 minutes out, got %v", stored.ResetTokenExpiresAt)
	}

	msg, ok := mailer.last()
	if !ok {
		t.Fatalf("expected a reset email")
	}
	secret := secretFromMessage(msg)
	if secret == "" || security.HashToken(secret) != *stored.ResetTokenHash {
		t.Fatalf("emailed secret does not hash to the stored value")
	}
	if events.resetRequestedCalls != 1 {
		t.Fatalf("expected one reset requested event, got %d", events.resetRequestedCalls)
	}
}

func TestPasswordResetService_RequestReset_SupersedesPreviousSecret(t *testing.T) {
	repo := newMockAccountRepository()
	mailer := &mockMailer{}
	service := newTestResetService(t, repo, mailer, nil)

	seedAccount(t, repo, "ana@example.com", testPassword, true, domain.RoleStudent)

	if err := service.RequestReset(context.Background(), "ana@example.com"); err != nil {
		t.Fatalf("first RequestReset returned error: %v", err)
	}
	firstSecret := secretFromMessage(mailer.messages[0])

	if err := service.RequestReset(context.Background(), "ana@example.com"); err != nil {
		t.Fatalf("second RequestReset returned error: %v", err)
	}
	secondSecret := secretFromMessage(mailer.messages[1])

	if firstSecret == secondSecret {
		t.Fatalf("expected distinct secrets per request")
	}

	if err := service.ConfirmReset(context.Background(), firstSecret, "NewPass123"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected superseded secret to be rejected, got %v", err)
	}
	if err := service.ConfirmReset(context.Background(), secondSecret, "NewPass123"); err != nil {
		t.Fatalf("expected newest secret to work, got %v", err)
	}
}

func TestPasswordResetService_RequestReset_DispatchFailureClearsState(t *testing.T) {
	repo := newMockAccountRepository()
	mailer := &mockMailer{sendErr: errMailerDown}
	service := newTestResetService(t, repo, mailer, nil)

	seeded := seedAccount(t, repo, "ana@example.com", testPassword, true, domain.RoleStudent)

	if err := service.RequestReset(context.Background(), "ana@example.com"); !errors.Is(err, ErrResetDeliveryFailed) {
		t.Fatalf("expected ErrResetDeliveryFailed, got %v", err)
	}

	stored := repo.accounts[seeded.ID]
	if stored.ResetTokenHash != nil || stored.ResetTokenExpiresAt != nil {
		t.Fatalf("expected reset fields to be cleared after dispatch failure")
	}
}

func TestPasswordResetService_ConfirmReset_UpdatesPassword(t *testing.T) {
	repo := newMockAccountRepository()
	mailer := &mockMailer{}
	events := &mockEventPublisher{}
	service := newTestResetService(t, repo, mailer, events)

	seeded := seedAccount(t, repo, "ana@example.com", testPassword, true, domain.RoleStudent)

	if err := service.RequestReset(context.Background(), "ana@example.com"); err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}
	msg, _ := mailer.last()
	secret := secretFromMessage(msg)

	if err := service.ConfirmReset(context.Background(), secret, "NewPass123"); err != nil {
		t.Fatalf("ConfirmReset returned error: %v", err)
	}

	stored := repo.accounts[seeded.ID]
	if ok, _ := security.VerifyPassword("NewPass123", stored.PasswordHash); !ok {
		t.Fatalf("expected new password to be installed")
	}
	if ok, _ := security.VerifyPassword(testPassword, stored.PasswordHash); ok {
		t.Fatalf("old password still matches")
	}
	if stored.ResetTokenHash != nil || stored.ResetTokenExpiresAt != nil {
		t.Fatalf("expected reset fields to be cleared after confirmation")
	}
	if events.passwordCalls != 1 {
		t.Fatalf("expected one password changed event, got %d", events.passwordCalls)
	}

	// Secret is single-use.
	if err := service.ConfirmReset(context.Background(), secret, "OtherPass123"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected consumed secret to be rejected, got %v", err)
	}
}

func TestPasswordResetService_ConfirmReset_Expired(t *testing.T) {
	repo := newMockAccountRepository()
	mailer := &mockMailer{}
	service := newTestResetService(t, repo, mailer, nil)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	service.WithClock(func() time.Time { return now })

	seeded := seedAccount(t, repo, "ana@example.com", testPassword, true, domain.RoleStudent)

	if err := service.RequestReset(context.Background(), "ana@example.com"); err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}
	msg, _ := mailer.last()
	secret := secretFromMessage(msg)

	now = now.Add(11 * time.Minute)

	if err := service.ConfirmReset(context.Background(), secret, "NewPass123"); !errors.Is(err, ErrResetTokenExpired) {
		t.Fatalf("expected ErrResetTokenExpired, got %v", err)
	}

	stored := repo.accounts[seeded.ID]
	if stored.ResetTokenHash != nil {
		t.Fatalf("expected expired secret to be cleared")
	}
	if ok, _ := security.VerifyPassword(testPassword, stored.PasswordHash); !ok {
		t.Fatalf("password must be unchanged after an expired confirmation")
	}
}

func TestPasswordResetService_ConfirmReset_WeakPasswordKeepsSecretUsable(t *testing.T) {
	repo := newMockAccountRepository()
	mailer := &mockMailer{}
	service := newTestResetService(t, repo, mailer, nil)

	seedAccount(t, repo, "ana@example.com", testPassword, true, domain.RoleStudent)

	if err := service.RequestReset(context.Background(), "ana@example.com"); err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}
	msg, _ := mailer.last()
	secret := secretFromMessage(msg)

	if err := service.ConfirmReset(context.Background(), secret, "weak"); !errors.Is(err, ErrPasswordPolicyViolation) {
		t.Fatalf("expected ErrPasswordPolicyViolation, got %v", err)
	}

	// A rejected password does not burn the secret.
	if err := service.ConfirmReset(context.Background(), secret, "NewPass123"); err != nil {
		t.Fatalf("retry with a valid password failed: %v", err)
	}
}

func TestPasswordResetService_ChangePassword(t *testing.T) {
	repo := newMockAccountRepository()
	service := newTestResetService(t, repo, &mockMailer{}, nil)

	seeded := seedAccount(t, repo, "ana@example.com", testPassword, true, domain.RoleStudent)

	if err := service.ChangePassword(context.Background(), seeded.ID, "Wrong1234", "NewPass123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong current password, got %v", err)
	}

	if err := service.ChangePassword(context.Background(), seeded.ID, testPassword, "weak"); !errors.Is(err, ErrPasswordPolicyViolation) {
		t.Fatalf("expected ErrPasswordPolicyViolation, got %v", err)
	}

	if err := service.ChangePassword(context.Background(), seeded.ID, testPassword, "NewPass123"); err != nil {
		t.Fatalf("ChangePassword returned error: %v", err)
	}

	stored := repo.accounts[seeded.ID]
	if ok, _ := security.VerifyPassword("NewPass123", stored.PasswordHash); !ok {
		t.Fatalf("expected new password to be installed")
	}

	if err := service.ChangePassword(context.Background(), "missing-account", testPassword, "NewPass123"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for unknown account, got %v", err)
	}
}
