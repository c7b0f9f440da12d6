package notifier

import (
	"bufio"
	"context"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type smtpCapture struct {
	mu   sync.Mutex
	from string
	to   []string
	data string
}

// startSMTP runs a minimal plaintext SMTP server that accepts one message per connection.
func startSMTP(t *testing.T) (string, *smtpCapture) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	capture := &smtpCapture{}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go serveSMTP(conn, capture)
		}
	}()
	return ln.Addr().String(), capture
}

func serveSMTP(conn net.Conn, c *smtpCapture) {
	defer conn.Close()
	tp := textproto.NewConn(conn)
	_ = tp.PrintfLine("220 localhost ESMTP test")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		cmd := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			_ = tp.PrintfLine("250 localhost")
		case strings.HasPrefix(cmd, "MAIL FROM:"):
			c.mu.Lock()
			c.from = strings.Trim(line[len("MAIL FROM:"):], "<> ")
			c.mu.Unlock()
			_ = tp.PrintfLine("250 OK")
		case strings.HasPrefix(cmd, "RCPT TO:"):
			c.mu.Lock()
			c.to = append(c.to, strings.Trim(line[len("RCPT TO:"):], "<> "))
			c.mu.Unlock()
			_ = tp.PrintfLine("250 OK")
		case cmd == "DATA":
			_ = tp.PrintfLine("354 go ahead")
			var b strings.Builder
			r := bufio.NewReader(tp.DotReader())
			if _, err := r.WriteTo(&b); err != nil {
				return
			}
			c.mu.Lock()
			c.data = b.String()
			c.mu.Unlock()
			_ = tp.PrintfLine("250 queued")
		case cmd == "QUIT":
			_ = tp.PrintfLine("221 bye")
			return
		default:
			_ = tp.PrintfLine("250 OK")
		}
	}
}

func TestMailer_SendVerification(t *testing.T) {
	addr, capture := startSMTP(t)
	m := NewMailer(MailerConfig{
		Addr:       addr,
		From:       "noreply@quill.dev",
		Timeout:    2 * time.Second,
		SubjPrefix: "[Quill]",
	}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, m.SendVerification(ctx, "a@x.com", "http://127.0.0.1:8000/auth/verify?token=abc"))

	capture.mu.Lock()
	defer capture.mu.Unlock()
	assert.Equal(t, "noreply@quill.dev", capture.from)
	assert.Equal(t, []string{"a@x.com"}, capture.to)
	assert.Contains(t, capture.data, "Subject: [Quill] Verify your email")
	assert.Contains(t, capture.data, "Click on the link below to verify your email:")
	assert.Contains(t, capture.data, "http://127.0.0.1:8000/auth/verify?token=abc")
}

func TestMailer_RejectsHeaderInjection(t *testing.T) {
	m := NewMailer(MailerConfig{Addr: "127.0.0.1:1"}, nil)
	err := m.Send(context.Background(), "a@x.com\r\nBcc: evil@x.com", "s", "b")
	assert.ErrorContains(t, err, "invalid recipient")
}

func TestMailer_DialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	m := NewMailer(MailerConfig{Addr: addr, Timeout: 200 * time.Millisecond}, nil)
	assert.ErrorContains(t, m.Send(context.Background(), "a@x.com", "s", "b"), "smtp dial")
}

func TestHost(t *testing.T) {
	assert.Equal(t, "mail.example.com", host("mail.example.com:587"))
	assert.Equal(t, "mail.example.com", host("mail.example.com"))
}
