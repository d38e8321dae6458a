// Package audit records security-relevant events to an append-only trail.
// Recording is strictly best-effort: a broken trail must never fail the
// operation being audited.
package audit

import "time"

// EventType identifies what happened.
type EventType string

const (
	// EventOTPIssued records a verification code being created and sent.
	EventOTPIssued EventType = "otp_issued"
	// EventOTPFailed records a failed verification attempt.
	EventOTPFailed EventType = "otp_failed"
	// EventOTPLocked records an attempt rejected because the subject is locked.
	EventOTPLocked EventType = "otp_locked"
	// EventOTPVerified records a successful verification.
	EventOTPVerified EventType = "otp_verified"
)

func (e EventType) String() string {
	return string(e)
}

// ActorType classifies who performed the action.
type ActorType string

const (
	ActorAnonymous ActorType = "anonymous"
	ActorUser      ActorType = "user"
	ActorAdmin     ActorType = "admin"
)

func (a ActorType) String() string {
	return string(a)
}

// Change captures a single field transition.
type Change struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// Event is one entry in the audit trail.
type Event struct {
	ID         string
	Type       EventType
	ActorType  ActorType
	ActorID    string
	TargetType string
	TargetID   string
	Changes    map[string]Change
	Metadata   map[string]any
	IP         string
	UserAgent  string
	CreatedAt  time.Time
}
