package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/0xmonas/cobbee/internal/pkg/instrument"
	"github.com/0xmonas/cobbee/internal/pkg/messaging"
)

const (
	publishAttempts = 3
	publishBackoff  = 200 * time.Millisecond
)

// sinkEvent is the wire shape published to the audit sink.
type sinkEvent struct {
	ID         string            `json:"id"`
	EventType  string            `json:"event_type"`
	ActorType  string            `json:"actor_type"`
	ActorID    string            `json:"actor_id,omitempty"`
	TargetType string            `json:"target_type,omitempty"`
	TargetID   string            `json:"target_id,omitempty"`
	Changes    map[string]Change `json:"changes,omitempty"`
	Metadata   map[string]any    `json:"metadata,omitempty"`
	IP         string            `json:"ip,omitempty"`
	UserAgent  string            `json:"user_agent,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// SinkPublisher publishes events to a messaging destination with a small
// bounded retry. The audit trail in Postgres is the source of truth; the
// sink is a convenience feed for SIEM-style consumers.
type SinkPublisher struct {
	pub         messaging.Publisher
	destination string
}

// NewSinkPublisher constructs a SinkPublisher.
func NewSinkPublisher(pub messaging.Publisher, destination string) *SinkPublisher {
	return &SinkPublisher{pub: pub, destination: destination}
}

// Publish sends the event, retrying transient failures with exponential
// backoff before giving up.
func (p *SinkPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(sinkEvent{
		ID:         ev.ID,
		EventType:  ev.Type.String(),
		ActorType:  ev.ActorType.String(),
		ActorID:    ev.ActorID,
		TargetType: ev.TargetType,
		TargetID:   ev.TargetID,
		Changes:    ev.Changes,
		Metadata:   ev.Metadata,
		IP:         ev.IP,
		UserAgent:  ev.UserAgent,
		CreatedAt:  ev.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("audit: marshal sink event: %w", err)
	}

	msg := messaging.OutgoingMessage{
		Body: body,
		Key:  []byte(ev.ActorID),
	}
	if cid := instrument.GetCorrelationID(ctx); cid != "" {
		msg.Headers = []messaging.Header{{Key: "cID", Value: []byte(cid)}}
	}

	backoff := retry.WithMaxRetries(publishAttempts-1, retry.NewExponential(publishBackoff))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if _, err := p.pub.Publish(ctx, p.destination, msg); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}
