package notify

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/spec-kit/codefinder/internal/config"
)

type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailNotifier sends notifications to the operator mailbox over SMTP.
type EmailNotifier struct {
	dialer mailDialer
	from   string
	to     string
}

// NewEmailNotifier builds an SMTP notifier from configuration.
func NewEmailNotifier(cfg config.NotificationConfig) *EmailNotifier {
	return &EmailNotifier{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:   cfg.EmailFrom,
		to:     cfg.OperatorEmail,
	}
}

func (e *EmailNotifier) Send(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", e.to)
	m.SetHeader("Subject", n.Title)
	m.SetBody("text/plain", n.Content)

	if err := e.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
