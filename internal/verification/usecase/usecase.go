// Package usecase implements the verification business rules: code issuance,
// the verify state machine, and the lockout policy around it.
package usecase

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/0xmonas/cobbee/internal/audit"
	"github.com/0xmonas/cobbee/internal/pkg/clock"
	"github.com/0xmonas/cobbee/internal/pkg/config"
	"github.com/0xmonas/cobbee/internal/pkg/hash"
	"github.com/0xmonas/cobbee/internal/pkg/instrument"
	"github.com/0xmonas/cobbee/internal/pkg/uid"
	"github.com/0xmonas/cobbee/internal/pkg/validator"
	"github.com/0xmonas/cobbee/internal/verification/entity"
)

const (
	defaultMaxAttempts     = 5
	defaultLockMinutes     = 15
	defaultChallengeTTLMin = 10
)

type repoDB interface {
	IsEmailVerified(ctx context.Context, subjectID int64, email string) (bool, error)
	ReplaceChallenge(ctx context.Context, ch entity.Challenge) error
	DeleteChallenge(ctx context.Context, id int64) error
	GetActiveChallenge(ctx context.Context, subjectID int64, email string) (*entity.Challenge, error)
	GetAttempt(ctx context.Context, subjectID int64, email string) (*entity.Attempt, error)
	RecordFailure(ctx context.Context, in entity.RecordFailure) (*entity.FailureState, error)
	CompleteVerification(ctx context.Context, in entity.CompleteVerification) error
}

type notifier interface {
	SendCode(ctx context.Context, email, code string, ttl time.Duration) error
}

type auditor interface {
	Record(ctx context.Context, ev audit.Event)
}

// Usecase holds the verification operations.
type Usecase struct {
	repoDB    repoDB
	notifier  notifier
	audit     auditor
	validator validator.Validator
	cfg       config.Config
	argon2id  hash.Hash
	uid       uid.NumberID
	clock     clock.Clocker
	ins       instrument.Instrumentation
}

// Dependency lists everything Usecase needs.
type Dependency struct {
	RepoDB     repoDB
	Notifier   notifier
	Audit      auditor
	Validator  validator.Validator
	Config     config.Config
	Argon2ID   hash.Hash
	UID        uid.NumberID
	Clock      clock.Clocker
	Instrument instrument.Instrumentation
}

// New constructs the Usecase.
func New(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:    dep.RepoDB,
		notifier:  dep.Notifier,
		audit:     dep.Audit,
		validator: dep.Validator,
		cfg:       dep.Config,
		argon2id:  dep.Argon2ID,
		uid:       dep.UID,
		clock:     dep.Clock,
		ins:       dep.Instrument,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("verification.usecase").Start(ctx, name)
}

func (s *Usecase) maxAttempts() int32 {
	if v := s.cfg.GetInt32("verification.max_attempts"); v > 0 {
		return v
	}
	return defaultMaxAttempts
}

func (s *Usecase) lockDuration() time.Duration {
	if v := s.cfg.GetMinute("verification.lock_minutes"); v > 0 {
		return v
	}
	return defaultLockMinutes * time.Minute
}

func (s *Usecase) challengeTTL() time.Duration {
	if v := s.cfg.GetMinute("verification.challenge_ttl_minutes"); v > 0 {
		return v
	}
	return defaultChallengeTTLMin * time.Minute
}
