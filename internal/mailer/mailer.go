package mailer

import (
	"fmt"

	"identityapi/internal/config"

	"gopkg.in/gomail.v2"
)

// Mailer delivers transactional mail over SMTP. With no SMTP host configured
// it becomes a no-op, which is what the test setup relies on.
type Mailer struct {
	from   string
	dialer *gomail.Dialer
}

func New(cfg *config.Config) *Mailer {
	m := &Mailer{from: cfg.MailFrom}
	if cfg.SMTPHost != "" {
		m.dialer = gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	}
	return m
}

func (m *Mailer) Enabled() bool {
	return m.dialer != nil
}

// SendVerificationEmail delivers the single-use verification token. The token
// value never appears in any API response, only here.
func (m *Mailer) SendVerificationEmail(to, firstName, tokenValue string) error {
	if !m.Enabled() {
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Verify your email address")
	msg.SetBody("text/plain", fmt.Sprintf(
		"Hi %s,\n\nPlease verify your email address using the code below:\n\n%s\n\nThe code expires in 24 hours.\n",
		firstName, tokenValue,
	))

	return m.dialer.DialAndSend(msg)
}
