// Package mail delivers account emails. Delivery is best-effort; callers
// treat failures as non-fatal.
package mail

import (
	"fmt"

	"github.com/rs/zerolog/log"
	gomail "gopkg.in/gomail.v2"
)

type Mailer interface {
	SendVerification(to, username, token string) error
}

type SMTPMailer struct {
	dialer  *gomail.Dialer
	from    string
	baseURL string
}

func NewSMTPMailer(host string, port int, username, password, from, baseURL string) *SMTPMailer {
	return &SMTPMailer{
		dialer:  gomail.NewDialer(host, port, username, password),
		from:    from,
		baseURL: baseURL,
	}
}

func (m *SMTPMailer) SendVerification(to, username, token string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Verify your WatchParty account")
	msg.SetBody("text/plain", fmt.Sprintf(
		"Hi %s,\n\nVerify your account by opening:\n\n%s/verify-email?token=%s\n\nThe link expires in 24 hours.\n",
		username, m.baseURL, token))
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send verification to %s: %w", to, err)
	}
	return nil
}

// Noop is used when no SMTP host is configured; the token only lands in the
// log, which is enough for local development.
type Noop struct{}

func (Noop) SendVerification(to, username, token string) error {
	log.Info().Str("module", "adapters.mail").Str("to", to).Str("token", token).Msg("smtp not configured, skipping verification email")
	return nil
}
