// Package mail provides the outbound email abstraction used by the
// notification jobs, with an SMTP implementation and a log-only fallback
// for local development.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// Message is a plain-text email.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Mailer delivers messages. Implementations must be safe for concurrent use
// by multiple job workers.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer delivers messages through a plain SMTP endpoint.
type SMTPMailer struct {
	addr string
	from string
}

// NewSMTPMailer creates a mailer that sends through the SMTP server at addr
// (host:port) with the given from address.
func NewSMTPMailer(addr, from string) *SMTPMailer {
	return &SMTPMailer{
		addr: addr,
		from: from,
	}
}

// Ensure SMTPMailer implements the Mailer interface
var _ Mailer = (*SMTPMailer)(nil)

// Send implements Mailer.Send.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("message has no recipients")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("\r\n")
	b.WriteString(msg.Body)

	if err := smtp.SendMail(m.addr, nil, m.from, msg.To, []byte(b.String())); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	return nil
}

// LogMailer writes composed messages to the log instead of delivering them.
// It is the default when outbound mail is disabled.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a log-only mailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{
		logger: logger.With(slog.String("component", "log_mailer")),
	}
}

// Ensure LogMailer implements the Mailer interface
var _ Mailer = (*LogMailer)(nil)

// Send implements Mailer.Send by logging the message.
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.Info("outbound mail suppressed",
		"to", strings.Join(msg.To, ", "),
		"subject", msg.Subject,
		"body_length", len(msg.Body))
	return nil
}
