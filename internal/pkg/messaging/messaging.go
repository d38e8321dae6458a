// Package messaging provides broker-agnostic publishing of domain events.
// The service only produces; consumption belongs to downstream systems.
package messaging

import (
	"context"
	"io"
	"time"
)

// Publisher publishes messages to a destination (topic or subject).
type Publisher interface {
	io.Closer

	// Publish sends a message to the destination.
	Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error)
}

// OutgoingMessage is a broker-agnostic message to be published.
type OutgoingMessage struct {
	// Body is the message payload.
	Body []byte

	// Key is used by Kafka for partitioning; NATS ignores it.
	Key []byte

	// Headers support arbitrary binary values and duplicate keys.
	Headers []Header
}

// Header is a key/value pair used for message headers.
type Header struct {
	Key   string
	Value []byte
}

// PublishResult carries optional broker-specific publish metadata.
type PublishResult struct {
	// Topic is the destination the message was written to.
	Topic string

	// Timestamp is when the broker accepted the message.
	Timestamp time.Time
}
