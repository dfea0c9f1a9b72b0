package notify

import (
	"context"

	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"

	"github.com/mc3-grc/user-lifecycle-service/internal/config"
)

// SMTPMailer sends email through a plain SMTP relay, for deployments that
// don't route mail through SES.
type SMTPMailer struct {
	dialer *gomail.Dialer
	sender string
	logger *zap.Logger
}

// NewSMTPMailer constructs the mailer from config.
func NewSMTPMailer(cfg config.EmailConfig, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass),
		sender: cfg.Sender,
		logger: logger,
	}
}

// Send delivers one HTML email, reporting success as a boolean.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) bool {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.sender)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := m.dialer.DialAndSend(msg); err != nil {
		m.logger.Error("smtp send failed", zap.String("to", to), zap.String("subject", subject), zap.Error(err))
		return false
	}
	return true
}
