package email

import (
	"context"
	"fmt"

	"github.com/mrz1836/postmark"

	"github.com/avelar/studio-identity/internal/core/port"
	"github.com/avelar/studio-identity/internal/infra/config"
)

// PostmarkMailer delivers transactional mail through Postmark.
type PostmarkMailer struct {
	client *postmark.Client
	sender string
}

// NewPostmarkMailer constructs a Postmark-backed mailer. Tokens are required
// so a misconfigured production deploy fails at startup, not at first send.
func NewPostmarkMailer(cfg config.EmailSettings) (*PostmarkMailer, error) {
	if cfg.PostmarkServerToken == "" {
		return nil, fmt.Errorf("postmark server token is required")
	}
	if cfg.SenderAddress == "" {
		return nil, fmt.Errorf("sender address is required")
	}

	return &PostmarkMailer{
		client: postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		sender: cfg.SenderAddress,
	}, nil
}

// Send submits the message and blocks until Postmark accepts or rejects it.
// Callers bound the wait with the context deadline.
func (m *PostmarkMailer) Send(ctx context.Context, msg port.MailMessage) error {
	resp, err := m.client.SendEmail(ctx, postmark.Email{
		From:     m.sender,
		To:       msg.To,
		Subject:  msg.Subject,
		Tag:      msg.Tag,
		HTMLBody: msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if resp.ErrorCode > 0 {
		return fmt.Errorf("send email: postmark error %d: %s", resp.ErrorCode, resp.Message)
	}

	return nil
}

var _ port.Mailer = (*PostmarkMailer)(nil)
