package mail

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
)

var (
	// ErrSMTPHostPortRequired is returned when Host/Port are missing.
	ErrSMTPHostPortRequired = errors.New("smtp host and port are required")
	// ErrSMTPNoRecipient is returned when Message.To is empty.
	ErrSMTPNoRecipient = errors.New("no recipient provided")
	// ErrSMTPNoSender is returned when both the message and the configured
	// default sender are empty.
	ErrSMTPNoSender = errors.New("no sender provided")
)

// SMTP is a Mail implementation backed by net/smtp.
type SMTP struct {
	addr        string
	host        string
	defaultFrom string
	auth        smtp.Auth
}

// SMTPConfig configures the SMTP implementation.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// From is the default sender when Message.From is empty.
	From string
}

// NewSMTP constructs an SMTP mail sender.
func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	if cfg.Host == "" || cfg.Port == 0 {
		return nil, ErrSMTPHostPortRequired
	}

	var auth smtp.Auth
	if cfg.Username != "" && cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	return &SMTP{
		addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		host:        cfg.Host,
		defaultFrom: cfg.From,
		auth:        auth,
	}, nil
}

// Send delivers a message over SMTP. The context is checked before dialing;
// net/smtp does not support cancellation mid-transaction.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if msg.To == "" {
		return ErrSMTPNoRecipient
	}

	from := msg.From
	if from == "" {
		from = s.defaultFrom
	}
	if from == "" {
		return ErrSMTPNoSender
	}

	body, contentType := buildBody(msg)

	headers := []string{
		"From: " + from,
		"To: " + msg.To,
		"Subject: " + msg.Subject,
		"MIME-Version: 1.0",
		"Content-Type: " + contentType,
	}

	raw := strings.Join(headers, "\r\n") + "\r\n\r\n" + body

	return smtp.SendMail(s.addr, s.auth, from, []string{msg.To}, []byte(raw))
}

// Close implements io.Closer for interface compatibility.
func (s *SMTP) Close() error {
	return nil
}

func buildBody(msg Message) (body string, contentType string) {
	if msg.HTMLBody != "" && msg.TextBody != "" {
		boundary := multipartBoundary()
		var sb strings.Builder
		sb.WriteString("This is a multipart message in MIME format.\r\n")
		fmt.Fprintf(&sb, "--%s\r\n", boundary)
		sb.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		sb.WriteString(msg.TextBody)
		sb.WriteString("\r\n")
		fmt.Fprintf(&sb, "--%s\r\n", boundary)
		sb.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
		sb.WriteString(msg.HTMLBody)
		sb.WriteString("\r\n")
		fmt.Fprintf(&sb, "--%s--", boundary)
		return sb.String(), "multipart/alternative; boundary=" + boundary
	}

	if msg.HTMLBody != "" {
		return msg.HTMLBody, "text/html; charset=UTF-8"
	}

	return msg.TextBody, "text/plain; charset=UTF-8"
}

func multipartBoundary() string {
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "cobbee-boundary-fallback"
	}
	return "cobbee-boundary-" + hex.EncodeToString(b[:])
}
