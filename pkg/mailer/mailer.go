package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/mooc-credit-api/pkg/config"
)

// Message is the payload carried through the mail queue.
type Message struct {
	ID       string    `json:"id,omitempty"`
	Email    string    `json:"email"`
	Subject  string    `json:"subject"`
	Body     string    `json:"body"`
	QueuedAt time.Time `json:"queued_at,omitempty"`
	Attempts int       `json:"attempts,omitempty"`
}

// Validate reports whether the message can be delivered.
func (m Message) Validate() error {
	if strings.TrimSpace(m.Email) == "" {
		return errors.New("mail recipient is required")
	}
	if strings.ContainsAny(m.Email, "\r\n") || strings.ContainsAny(m.Subject, "\r\n") {
		return errors.New("mail headers must not contain line breaks")
	}
	return nil
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender delivers plain-text mail through an SMTP relay with PLAIN auth.
type SMTPSender struct {
	addr string
	host string
	from string
	auth smtp.Auth
	send sendFunc
}

// NewSender returns an SMTP sender, or a logging sender when no host is configured.
func NewSender(cfg config.MailConfig, logger *zap.Logger) Sender {
	if cfg.SMTPHost == "" {
		return &LogSender{logger: logger}
	}
	var auth smtp.Auth
	if cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	}
	return &SMTPSender{
		addr: fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		host: cfg.SMTPHost,
		from: cfg.From,
		auth: auth,
		send: smtp.SendMail,
	}
}

// Send implements Sender.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.send(s.addr, s.auth, s.from, []string{msg.Email}, compose(s.from, msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.Email, err)
	}
	return nil
}

func compose(from string, msg Message) []byte {
	var b strings.Builder
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.Email)
	fmt.Fprintf(&b, "Subject: %s\r\n\r\n", msg.Subject)
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// LogSender only logs messages. Used when SMTP is not configured.
type LogSender struct {
	logger *zap.Logger
}

// Send implements Sender.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.Info("mail delivery skipped, smtp not configured",
			zap.String("to", msg.Email),
			zap.String("subject", msg.Subject),
		)
	}
	return nil
}
