package jobs

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPMailer sends mail through a plain SMTP relay (Mailpit in development).
type SMTPMailer struct {
	Addr string
	From string
}

// Send delivers one message.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if m == nil || m.Addr == "" {
		return fmt.Errorf("jobs: mailer not configured")
	}
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("jobs: recipient required")
	}
	msg := strings.Join([]string{
		"From: " + m.From,
		"To: " + to,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")
	// smtp.SendMail has no context support; the worker bounds task duration.
	_ = ctx
	return smtp.SendMail(m.Addr, nil, m.From, []string{to}, []byte(msg))
}
