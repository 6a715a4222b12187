package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/avelar/studio-identity/internal/core/domain"
	"github.com/avelar/studio-identity/internal/core/port"
	"github.com/avelar/studio-identity/internal/infra/logger"
)

// StubPublisher logs events instead of sending them to Kafka. Used when no
// brokers are configured.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(log *zap.Logger) *StubPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &StubPublisher{logger: log}
}

func (p *StubPublisher) logEvent(eventType, accountID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("stub event published",
		zap.String("event_type", eventType),
		zap.String("account_id", accountID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishAccountRegistered logs identity.account.registered events.
func (p *StubPublisher) PublishAccountRegistered(_ context.Context, event domain.AccountRegisteredEvent) error {
	payload := map[string]any{
		"name":          event.Name,
		"email":         logger.MaskEmail(event.Email),
		"registered_at": event.RegisteredAt,
	}
	p.logEvent("identity.account.registered", event.AccountID, event.RegisteredAt, payload)
	return nil
}

// PublishAccountVerified logs identity.account.verified events.
func (p *StubPublisher) PublishAccountVerified(_ context.Context, event domain.AccountVerifiedEvent) error {
	payload := map[string]any{
		"email":       logger.MaskEmail(event.Email),
		"verified_at": event.VerifiedAt,
	}
	p.logEvent("identity.account.verified", event.AccountID, event.VerifiedAt, payload)
	return nil
}

// PublishPasswordChanged logs identity.account.password.changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	payload := map[string]any{
		"changed_at": event.ChangedAt,
		"changed_by": event.ChangedBy,
	}
	p.logEvent("identity.account.password.changed", event.AccountID, event.ChangedAt, payload)
	return nil
}

// PublishPasswordResetRequested logs identity.account.password.reset_requested events.
func (p *StubPublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	payload := map[string]any{
		"requested_at":       event.RequestedAt,
		"masked_destination": event.MaskedDestination,
		"expires_at":         event.ExpiresAt,
	}
	p.logEvent("identity.account.password.reset_requested", event.AccountID, event.RequestedAt, payload)
	return nil
}

// PublishRoleChanged logs identity.account.role.changed events.
func (p *StubPublisher) PublishRoleChanged(_ context.Context, event domain.RoleChangedEvent) error {
	payload := map[string]any{
		"old_role":   event.OldRole,
		"new_role":   event.NewRole,
		"changed_by": event.ChangedBy,
		"changed_at": event.ChangedAt,
	}
	p.logEvent("identity.account.role.changed", event.AccountID, event.ChangedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
