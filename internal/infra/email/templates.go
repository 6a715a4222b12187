package email

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/avelar/studio-identity/internal/core/port"
)

var verificationTemplate = template.Must(template.New("verification").Parse(`<html>
<body>
<p>Hi {{.Name}},</p>
<p>Welcome to {{.Studio}}. Please confirm your email address to activate your account:</p>
<p><a href="{{.Link}}">Verify my email</a></p>
<p>If you did not create this account, you can ignore this message.</p>
</body>
</html>`))

var resetTemplate = template.Must(template.New("reset").Parse(`<html>
<body>
<p>Hi {{.Name}},</p>
<p>We received a request to reset your {{.Studio}} password. The link below is valid for {{.TTL}}:</p>
<p><a href="{{.Link}}">Choose a new password</a></p>
<p>If you did not request this, your password is unchanged and no action is needed.</p>
</body>
</html>`))

type templateData struct {
	Name   string
	Studio string
	Link   string
	TTL    string
}

// VerificationMessage renders the account-verification email. The link
// embeds the plain one-time secret; it is never logged or stored.
func VerificationMessage(to, name, studioName, baseURL, secret string) (port.MailMessage, error) {
	link := fmt.Sprintf("%s/verify-email?token=%s", strings.TrimRight(baseURL, "/"), secret)

	var body strings.Builder
	if err := verificationTemplate.Execute(&body, templateData{
		Name:   name,
		Studio: studioName,
		Link:   link,
	}); err != nil {
		return port.MailMessage{}, fmt.Errorf("render verification email: %w", err)
	}

	return port.MailMessage{
		To:      to,
		Subject: fmt.Sprintf("Verify your %s account", studioName),
		HTML:    body.String(),
		Tag:     "email-verification",
	}, nil
}

// ResetMessage renders the password-reset email.
func ResetMessage(to, name, studioName, baseURL, secret, ttl string) (port.MailMessage, error) {
	link := fmt.Sprintf("%s/reset-password?token=%s", strings.TrimRight(baseURL, "/"), secret)

	var body strings.Builder
	if err := resetTemplate.Execute(&body, templateData{
		Name:   name,
		Studio: studioName,
		Link:   link,
		TTL:    ttl,
	}); err != nil {
		return port.MailMessage{}, fmt.Errorf("render reset email: %w", err)
	}

	return port.MailMessage{
		To:      to,
		Subject: fmt.Sprintf("Reset your %s password", studioName),
		HTML:    body.String(),
		Tag:     "password-reset",
	}, nil
}
