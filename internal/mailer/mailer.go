package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/spec-kit/support-desk/internal/config"
)

const sendTimeout = 15 * time.Second

// Message is a plain-text email.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Mailer delivers email.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// SMTPMailer sends mail through an SMTP relay with gomail.
type SMTPMailer struct {
	from   string
	dialer *gomail.Dialer
}

// NewSMTPMailer returns nil when SMTP is not configured.
func NewSMTPMailer(cfg config.NotificationConfig) *SMTPMailer {
	if !cfg.SMTPEnabled() {
		return nil
	}
	return &SMTPMailer{
		from:   cfg.EmailFrom,
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
	}
}

// Send delivers m, giving up when ctx ends or after sendTimeout.
func (s *SMTPMailer) Send(ctx context.Context, m Message) error {
	msg, err := build(s.from, m)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(sendTimeout):
		return context.DeadlineExceeded
	}
}

func build(from string, m Message) (*gomail.Message, error) {
	to := make([]string, 0, len(m.To))
	for _, addr := range m.To {
		if addr = strings.TrimSpace(addr); addr != "" {
			to = append(to, addr)
		}
	}
	if len(to) == 0 {
		return nil, errors.New("mailer: no recipients")
	}
	if strings.TrimSpace(m.Subject) == "" {
		return nil, errors.New("mailer: subject is required")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/plain", m.Body)
	return msg, nil
}
