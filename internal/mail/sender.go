package mail

import (
	"fmt"
	"strings"

	"fotobox-crm/config"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Message is a fully rendered mail ready for delivery.
type Message struct {
	To      []string
	CC      []string
	BCC     []string
	ReplyTo string
	Subject string
	HTML    string
}

// Sender delivers rendered messages.
type Sender interface {
	Send(msg *Message) error
}

// SMTPSender delivers mail through the configured SMTP server.
type SMTPSender struct {
	cfg config.SMTPConfig
}

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(msg *Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("message has no recipient")
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.cfg.From, s.cfg.FromName)
	m.SetHeader("To", msg.To...)
	if len(msg.CC) > 0 {
		m.SetHeader("Cc", msg.CC...)
	}
	if len(msg.BCC) > 0 {
		m.SetHeader("Bcc", msg.BCC...)
	}
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.User, s.cfg.Password)
	d.SSL = s.cfg.Secure

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send mail via SMTP: %w", err)
	}

	return nil
}

// LogSender logs messages instead of delivering them. Used in development
// when no SMTP server is configured.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(msg *Message) error {
	s.logger.Info("Mail delivery skipped (no SMTP configured)",
		zap.String("to", strings.Join(msg.To, ", ")),
		zap.String("subject", msg.Subject),
		zap.Int("body_bytes", len(msg.HTML)),
	)
	return nil
}

// NewSender picks the SMTP sender when a host is configured and falls back
// to the log-only sender otherwise.
func NewSender(cfg *config.Config, logger *zap.Logger) Sender {
	if cfg.SMTP.Host == "" {
		return NewLogSender(logger)
	}
	return NewSMTPSender(cfg.SMTP)
}
