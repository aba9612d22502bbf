package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/mhmdrz22/enginner/internal/core/domain"
	"github.com/mhmdrz22/enginner/internal/core/port"
	"github.com/mhmdrz22/enginner/internal/infra/config"
)

const defaultSMTPTimeout = 30 * time.Second

// SMTPMailer delivers each email over its own SMTP session.
type SMTPMailer struct {
	host     string
	addr     string
	username string
	password string
	from     string
	useTLS   bool
	timeout  time.Duration
}

// NewSMTPMailer constructs an SMTPMailer from mail settings.
func NewSMTPMailer(cfg config.MailSettings) *SMTPMailer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSMTPTimeout
	}
	return &SMTPMailer{
		host:     cfg.Host,
		addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
		useTLS:   cfg.UseTLS,
		timeout:  timeout,
	}
}

// Send delivers a single email. Failures that would affect every recipient are wrapped
// with port.ErrTransportUnavailable; anything else concerns this recipient only.
func (m *SMTPMailer) Send(ctx context.Context, email domain.Email) error {
	dialer := &net.Dialer{Timeout: m.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", m.addr)
	if err != nil {
		return unavailable("connect to smtp server", err)
	}
	defer func() { _ = conn.Close() }()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(m.timeout))
	}

	client, err := smtp.NewClient(conn, m.host)
	if err != nil {
		return unavailable("smtp handshake", err)
	}
	defer func() { _ = client.Close() }()

	if m.useTLS {
		tlsConfig := &tls.Config{ServerName: m.host, MinVersion: tls.VersionTLS12}
		if err := client.StartTLS(tlsConfig); err != nil {
			return unavailable("start tls", err)
		}
	}

	if m.username != "" && m.password != "" {
		auth := smtp.PlainAuth("", m.username, m.password, m.host)
		if err := client.Auth(auth); err != nil {
			return unavailable("smtp auth", err)
		}
	}

	if err := client.Mail(m.from); err != nil {
		return classify("set sender", err)
	}
	if err := client.Rcpt(email.To); err != nil {
		return classify("set recipient", err)
	}

	writer, err := client.Data()
	if err != nil {
		return classify("start message", err)
	}
	if _, err := writer.Write(buildMessage(m.from, email)); err != nil {
		return classify("write message", err)
	}
	if err := writer.Close(); err != nil {
		return classify("close message", err)
	}

	// The message is accepted once DATA completes.
	_ = client.Quit()
	return nil
}

func buildMessage(from string, email domain.Email) []byte {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", email.To)
	fmt.Fprintf(&msg, "Subject: %s\r\n", sanitizeHeader(email.Subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(strings.ReplaceAll(strings.ReplaceAll(email.Body, "\r\n", "\n"), "\n", "\r\n"))
	msg.WriteString("\r\n")
	return []byte(msg.String())
}

func sanitizeHeader(value string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
}

// classify keeps 5xx replies recipient-scoped and treats service-level replies
// and broken connections as transport failures.
func classify(op string, err error) error {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		if protoErr.Code == 421 {
			return unavailable(op, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return unavailable(op, err)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, port.ErrTransportUnavailable, err)
}

var _ port.Mailer = (*SMTPMailer)(nil)
