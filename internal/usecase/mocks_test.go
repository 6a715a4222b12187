package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/avelar/studio-identity/internal/core/domain"
	"github.com/avelar/studio-identity/internal/core/port"
	"github.com/avelar/studio-identity/internal/repository"
)

// mockAccountRepository is an in-memory AccountRepository with error
// injection hooks and call counters.
type mockAccountRepository struct {
	accounts map[string]*domain.Account

	createErr error
	deleteErr error

	createCalls       int
	deleteCalls       int
	markVerifiedCalls int
	setResetCalls     int
	clearResetCalls   int
	updatePassCalls   int
}

func newMockAccountRepository() *mockAccountRepository {
	return &mockAccountRepository{accounts: make(map[string]*domain.Account)}
}

func (m *mockAccountRepository) Create(_ context.Context, account domain.Account) error {
	m.createCalls++
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.accounts {
		if strings.EqualFold(existing.Email, account.Email) {
			return repository.ErrDuplicateEmail
		}
	}
	clone := account
	m.accounts[account.ID] = &clone
	return nil
}

func (m *mockAccountRepository) GetByID(_ context.Context, id string) (*domain.Account, error) {
	if account, ok := m.accounts[id]; ok {
		clone := *account
		return &clone, nil
	}
	return nil, repository.ErrNotFound
}

func (m *mockAccountRepository) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	for _, account := range m.accounts {
		if strings.EqualFold(account.Email, email) {
			clone := *account
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockAccountRepository) GetByVerificationTokenHash(_ context.Context, hash string) (*domain.Account, error) {
	for _, account := range m.accounts {
		if account.VerificationTokenHash != nil && *account.VerificationTokenHash == hash {
			clone := *account
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockAccountRepository) GetByResetTokenHash(_ context.Context, hash string) (*domain.Account, error) {
	for _, account := range m.accounts {
		if account.ResetTokenHash != nil && *account.ResetTokenHash == hash {
			clone := *account
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockAccountRepository) List(context.Context) ([]domain.Account, error) {
	out := make([]domain.Account, 0, len(m.accounts))
	for _, account := range m.accounts {
		out = append(out, *account)
	}
	return out, nil
}

func (m *mockAccountRepository) UpdateProfile(_ context.Context, account domain.Account) error {
	stored, ok := m.accounts[account.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for id, existing := range m.accounts {
		if id != account.ID && strings.EqualFold(existing.Email, account.Email) {
			return repository.ErrDuplicateEmail
		}
	}
	stored.Name = account.Name
	stored.Email = account.Email
	stored.Avatar = account.Avatar
	stored.Favorites = account.Favorites
	stored.UpdatedAt = account.UpdatedAt
	return nil
}

func (m *mockAccountRepository) UpdatePassword(_ context.Context, id, passwordHash string, changedAt time.Time) error {
	m.updatePassCalls++
	account, ok := m.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.PasswordHash = passwordHash
	account.UpdatedAt = changedAt
	return nil
}

func (m *mockAccountRepository) UpdateRole(_ context.Context, id string, role domain.Role) error {
	account, ok := m.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.Role = role
	return nil
}

func (m *mockAccountRepository) MarkVerified(_ context.Context, id string) error {
	m.markVerifiedCalls++
	account, ok := m.accounts[id]
	if !ok || account.VerificationTokenHash == nil {
		return repository.ErrNotFound
	}
	account.IsVerified = true
	account.VerificationTokenHash = nil
	return nil
}

func (m *mockAccountRepository) SetVerificationToken(_ context.Context, id, tokenHash string) error {
	account, ok := m.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.VerificationTokenHash = &tokenHash
	return nil
}

func (m *mockAccountRepository) SetResetToken(_ context.Context, id, tokenHash string, expiresAt time.Time) error {
	m.setResetCalls++
	account, ok := m.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.ResetTokenHash = &tokenHash
	account.ResetTokenExpiresAt = &expiresAt
	return nil
}

func (m *mockAccountRepository) ClearResetToken(_ context.Context, id string) error {
	m.clearResetCalls++
	account, ok := m.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.ResetTokenHash = nil
	account.ResetTokenExpiresAt = nil
	return nil
}

func (m *mockAccountRepository) Delete(_ context.Context, id string) error {
	m.deleteCalls++
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.accounts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.accounts, id)
	return nil
}

var _ port.AccountRepository = (*mockAccountRepository)(nil)

// mockMailer records sent messages and can fail on demand.
type mockMailer struct {
	sendErr  error
	messages []port.MailMessage
}

func (m *mockMailer) Send(_ context.Context, msg port.MailMessage) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *mockMailer) last() (port.MailMessage, bool) {
	if len(m.messages) == 0 {
		return port.MailMessage{}, false
	}
	return m.messages[len(m.messages)-1], true
}

// secretFromMessage pulls the one-time secret out of the emailed link.
func secretFromMessage(msg port.MailMessage) string {
	idx := strings.Index(msg.HTML, "token=")
	if idx < 0 {
		return ""
	}
	rest := msg.HTML[idx+len("token="):]
	if end := strings.IndexByte(rest, '"'); end >= 0 {
		return rest[:end]
	}
	return ""
}

type mockEventPublisher struct {
	registeredCalls     int
	verifiedCalls       int
	passwordCalls       int
	resetRequestedCalls int
	roleChangedCalls    int

	lastRoleChanged domain.RoleChangedEvent
	err             error
}

func (m *mockEventPublisher) PublishAccountRegistered(context.Context, domain.AccountRegisteredEvent) error {
	m.registeredCalls++
	return m.err
}

func (m *mockEventPublisher) PublishAccountVerified(context.Context, domain.AccountVerifiedEvent) error {
	m.verifiedCalls++
	return m.err
}

func (m *mockEventPublisher) PublishPasswordChanged(context.Context, domain.PasswordChangedEvent) error {
	m.passwordCalls++
	return m.err
}

func (m *mockEventPublisher) PublishPasswordResetRequested(context.Context, domain.PasswordResetRequestedEvent) error {
	m.resetRequestedCalls++
	return m.err
}

func (m *mockEventPublisher) PublishRoleChanged(_ context.Context, event domain.RoleChangedEvent) error {
	m.roleChangedCalls++
	m.lastRoleChanged = event
	return m.err
}

var _ port.EventPublisher = (*mockEventPublisher)(nil)

var errMailerDown = errors.New("smtp relay unavailable")
