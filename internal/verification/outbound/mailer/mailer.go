// Package mailer delivers verification codes over the mail provider.
package mailer

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/0xmonas/cobbee/internal/pkg/config"
	"github.com/0xmonas/cobbee/internal/pkg/instrument"
	"github.com/0xmonas/cobbee/internal/pkg/mail"
)

const defaultSendTimeout = 10 * time.Second

// Mailer sends verification code emails with a bounded per-send timeout so a
// slow provider cannot hold the request hostage.
type Mailer struct {
	mail mail.Mail
	cfg  config.Config
	ins  instrument.Instrumentation
}

// NewMailer constructs the adapter.
func NewMailer(m mail.Mail, cfg config.Config, ins instrument.Instrumentation) *Mailer {
	return &Mailer{mail: m, cfg: cfg, ins: ins}
}

// SendCode emails the code and how long it remains valid.
func (m *Mailer) SendCode(ctx context.Context, email, code string, ttl time.Duration) error {
	ctx, span := m.startSpan(ctx, "SendCode")
	defer span.End()

	timeout := defaultSendTimeout
	if v := m.cfg.GetSecond("mail.send_timeout_seconds"); v > 0 {
		timeout = v
	}

	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	minutes := int(ttl.Minutes())

	return m.mail.Send(sendCtx, mail.Message{
		To:      email,
		Subject: "Your verification code",
		TextBody: fmt.Sprintf(
			"Your verification code is %s. It expires in %d minutes.\n\n"+
				"If you did not request this code, you can ignore this message.",
			code, minutes),
		HTMLBody: fmt.Sprintf(
			"<p>Your verification code is <strong>%s</strong>. It expires in %d minutes.</p>"+
				"<p>If you did not request this code, you can ignore this message.</p>",
			code, minutes),
	})
}

func (m *Mailer) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return m.ins.Tracer("verification.outbound.mailer").Start(ctx, name)
}
