package port

import (
	"context"

	"github.com/avelar/studio-identity/internal/core/domain"
)

// EventPublisher emits identity lifecycle events for downstream consumers
// (content subsystem, dashboards, notification pipelines). Publishing is
// best-effort from the flows' point of view: failures are logged, never
// surfaced to the caller.
type EventPublisher interface {
	PublishAccountRegistered(ctx context.Context, event domain.AccountRegisteredEvent) error
	PublishAccountVerified(ctx context.Context, event domain.AccountVerifiedEvent) error
	PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error
	PublishPasswordResetRequested(ctx context.Context, event domain.PasswordResetRequestedEvent) error
	PublishRoleChanged(ctx context.Context, event domain.RoleChangedEvent) error
}
