package email

import (
	"context"

	"go.uber.org/zap"

	"github.com/avelar/studio-identity/internal/core/port"
	"github.com/avelar/studio-identity/internal/infra/logger"
)

// LogMailer writes messages to the log instead of sending them. Used in
// development when Postmark credentials are absent.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer constructs a development mailer.
func NewLogMailer(log *zap.Logger) *LogMailer {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogMailer{logger: log}
}

// Send logs the message. The recipient is masked; the body (which embeds
// one-time secrets) is logged verbatim so developers can complete flows.
func (m *LogMailer) Send(_ context.Context, msg port.MailMessage) error {
	m.logger.Info("dev mailer: email not sent",
		zap.String("to", logger.MaskEmail(msg.To)),
		zap.String("subject", msg.Subject),
		zap.String("tag", msg.Tag),
		zap.String("html", msg.HTML),
	)
	return nil
}

var _ port.Mailer = (*LogMailer)(nil)
