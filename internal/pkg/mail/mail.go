// Package mail abstracts outbound email delivery.
package mail

import (
	"context"
	"io"
)

// Message is a provider-agnostic email payload. Verification mail always has
// a single recipient.
type Message struct {
	// From is an optional explicit sender; when empty the implementation's
	// configured default is used.
	From string
	// To is the recipient address.
	To string
	// Subject is the subject line.
	Subject string
	// TextBody is the plain-text body; used alone when HTMLBody is empty.
	TextBody string
	// HTMLBody is the optional HTML alternative.
	HTMLBody string
}

// Mail abstracts an email provider (SMTP, third-party API, etc).
type Mail interface {
	io.Closer
	// Send dispatches the given message using the underlying provider.
	Send(ctx context.Context, msg Message) error
}
