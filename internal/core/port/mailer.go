package port

import "context"

// MailMessage is a single outbound transactional email.
type MailMessage struct {
	To      string
	Subject string
	HTML    string
	Tag     string
}

// Mailer delivers transactional email. Send blocks until the provider
// accepts or rejects the message; callers bound the wait with the context
// so dispatch failure can trigger compensating writes.
type Mailer interface {
	Send(ctx context.Context, msg MailMessage) error
}
