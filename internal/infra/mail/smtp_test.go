package mail

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhmdrz22/enginner/internal/core/domain"
	"github.com/mhmdrz22/enginner/internal/core/port"
	"github.com/mhmdrz22/enginner/internal/infra/config"
)

// fakeSMTPServer speaks just enough SMTP for net/smtp. Recipients containing
// "reject" receive a 550 reply.
type fakeSMTPServer struct {
	listener net.Listener

	mu       sync.Mutex
	messages []string
}

func startFakeSMTPServer(t *testing.T) *fakeSMTPServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &fakeSMTPServer{listener: ln}
	go srv.serve()
	t.Cleanup(func() { _ = ln.Close() })
	return srv
}

func (s *fakeSMTPServer) settings() config.MailSettings {
	host, portStr, _ := net.SplitHostPort(s.listener.Addr().String())
	p, _ := strconv.Atoi(portStr)
	return config.MailSettings{Backend: config.MailBackendSMTP, Host: host, Port: p, From: "noreply@example.com", Timeout: 2 * time.Second}
}

func (s *fakeSMTPServer) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *fakeSMTPServer) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	reply := func(line string) { _, _ = conn.Write([]byte(line + "\r\n")) }

	reply("220 localhost ESMTP")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			reply("250-localhost")
			reply("250 8BITMIME")
		case strings.HasPrefix(cmd, "MAIL FROM"):
			reply("250 OK")
		case strings.HasPrefix(cmd, "RCPT TO"):
			if strings.Contains(cmd, "REJECT") {
				reply("550 mailbox unavailable")
				continue
			}
			reply("250 OK")
		case cmd == "DATA":
			reply("354 go ahead")
			var body strings.Builder
			for {
				dataLine, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if dataLine == ".\r\n" {
					break
				}
				body.WriteString(dataLine)
			}
			s.mu.Lock()
			s.messages = append(s.messages, body.String())
			s.mu.Unlock()
			reply("250 queued")
		case cmd == "QUIT":
			reply("221 bye")
			return
		default:
			reply("250 OK")
		}
	}
}

func (s *fakeSMTPServer) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.messages...)
}

func TestSMTPMailerDelivers(t *testing.T) {
	srv := startFakeSMTPServer(t)
	mailer := NewSMTPMailer(srv.settings())

	err := mailer.Send(context.Background(), domain.Email{To: "a@example.com", Subject: "Hello", Body: "line one\nline two"})
	require.NoError(t, err)

	msgs := srv.received()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "To: a@example.com\r\n")
	assert.Contains(t, msgs[0], "Subject: Hello\r\n")
	assert.Contains(t, msgs[0], "line one\r\nline two")
}

func TestSMTPMailerRejectedRecipientIsNotTransportFailure(t *testing.T) {
	srv := startFakeSMTPServer(t)
	mailer := NewSMTPMailer(srv.settings())

	err := mailer.Send(context.Background(), domain.Email{To: "reject@example.com", Subject: "s", Body: "b"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, port.ErrTransportUnavailable))
}

func TestSMTPMailerUnreachableServerIsTransportFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	host, portStr, _ := net.SplitHostPort(addr)
	p, _ := strconv.Atoi(portStr)
	mailer := NewSMTPMailer(config.MailSettings{Host: host, Port: p, From: "noreply@example.com", Timeout: time.Second})

	err = mailer.Send(context.Background(), domain.Email{To: "a@example.com"})
	require.ErrorIs(t, err, port.ErrTransportUnavailable)
}

func TestBuildMessageStripsHeaderInjection(t *testing.T) {
	msg := string(buildMessage("noreply@example.com", domain.Email{To: "a@example.com", Subject: "hi\r\nBcc: evil@example.com", Body: "x"}))
	assert.Contains(t, msg, "Subject: hi  Bcc: evil@example.com\r\n")
	assert.NotContains(t, msg, "\r\nBcc:")
}
