package infra

import (
	"bytes"
	"fmt"
	"net/smtp"

	"github.com/erurang/wooyangcrm-sub005/internal/config"

	"github.com/jordan-wright/email"
)

// Mailer wraps SMTP configuration for the expiry alert emails.
type Mailer struct {
	host     string
	port     int
	user     string
	password string
	addr     string
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
	}
}

// SendAlert delivers a plain-text notification, optionally with an attached
// report.
func (m *Mailer) SendAlert(to []string, subject, body string, attachment []byte, filename string) error {
	e := email.NewEmail()
	e.From = m.user
	e.To = to
	e.Subject = subject
	e.Text = []byte(body)

	if len(attachment) > 0 {
		if _, err := e.Attach(bytes.NewReader(attachment), filename, "application/pdf"); err != nil {
			return fmt.Errorf("mailer: attach report: %w", err)
		}
	}

	auth := smtp.PlainAuth("", m.user, m.password, m.host)
	return e.Send(m.addr, auth)
}
