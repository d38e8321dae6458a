package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/0xmonas/cobbee/internal/audit"
	"github.com/0xmonas/cobbee/internal/pkg/goerror"
	"github.com/0xmonas/cobbee/internal/verification/entity"
)

// msgInvalidCode is deliberately identical for a wrong code, an expired code,
// and a code that was never requested, so responses do not reveal whether a
// challenge exists for the address.
const msgInvalidCode = "invalid or expired verification code"

// VerifyInput submits a code for checking.
type VerifyInput struct {
	SubjectID int64  `validate:"required"`
	Email     string `validate:"required,email"`
	Code      string `validate:"required,otp"`

	Actor     audit.ActorType `validate:"-"`
	IP        string          `validate:"-"`
	UserAgent string          `validate:"-"`
}

// VerifyOutput reports a successful verification.
type VerifyOutput struct {
	VerifiedAt time.Time
}

// Verify runs the ordered, short-circuiting state machine: lockout check,
// challenge lookup, expiry check, hash comparison, then completion. Failed
// comparisons count toward the lockout; the lockout check itself never does.
func (s *Usecase) Verify(ctx context.Context, in VerifyInput) (*VerifyOutput, error) {
	ctx, span := s.startSpan(ctx, "Verify")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	now := s.clock.Now()

	attempt, err := s.repoDB.GetAttempt(ctx, in.SubjectID, in.Email)
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		slog.ErrorContext(ctx, "failed to load attempt state",
			"subject_id", in.SubjectID, "error", err)
		return nil, goerror.NewServer(err)
	}
	if attempt != nil && attempt.LockedAt(now) {
		s.recordVerifyEvent(ctx, in, audit.EventOTPLocked, map[string]any{
			"locked_until": attempt.LockedUntil.Format(time.RFC3339),
		})
		return nil, goerror.NewBusinessFields("too many failed attempts, try again later",
			goerror.CodeTooManyRequest,
			"locked_until", attempt.LockedUntil.Format(time.RFC3339))
	}

	ch, err := s.repoDB.GetActiveChallenge(ctx, in.SubjectID, in.Email)
	if errors.Is(err, goerror.ErrNotFound) {
		s.recordVerifyEvent(ctx, in, audit.EventOTPFailed, map[string]any{
			"reason": "no request found",
		})
		return nil, goerror.NewBusiness(msgInvalidCode, goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to load challenge",
			"subject_id", in.SubjectID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if ch.Expired(now) {
		if derr := s.repoDB.DeleteChallenge(ctx, ch.ID); derr != nil {
			slog.ErrorContext(ctx, "failed to delete expired challenge",
				"challenge_id", ch.ID, "error", derr)
		}
		s.recordVerifyEvent(ctx, in, audit.EventOTPFailed, map[string]any{
			"reason": "expired",
		})
		return nil, goerror.NewBusiness(msgInvalidCode, goerror.CodeUnauthorized)
	}

	if !s.argon2id.Verify(ch.CodeHash, in.Code) {
		return nil, s.failAttempt(ctx, in, now)
	}

	if err := s.repoDB.CompleteVerification(ctx, entity.CompleteVerification{
		ChallengeID: ch.ID,
		SubjectID:   in.SubjectID,
		Email:       in.Email,
		VerifiedAt:  now,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to complete verification",
			"challenge_id", ch.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	s.recordVerifyEvent(ctx, in, audit.EventOTPVerified, nil)

	return &VerifyOutput{VerifiedAt: now}, nil
}

func (s *Usecase) failAttempt(ctx context.Context, in VerifyInput, now time.Time) error {
	maxAttempts := s.maxAttempts()

	state, err := s.repoDB.RecordFailure(ctx, entity.RecordFailure{
		SubjectID:   in.SubjectID,
		Email:       in.Email,
		At:          now,
		MaxAttempts: maxAttempts,
		LockUntil:   now.Add(s.lockDuration()),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to record verification failure",
			"subject_id", in.SubjectID, "error", err)
		return goerror.NewServer(err)
	}

	s.recordVerifyEvent(ctx, in, audit.EventOTPFailed, map[string]any{
		"reason":        "code mismatch",
		"attempt_count": state.Count,
	})

	if state.LockedUntil != nil && now.Before(*state.LockedUntil) {
		return goerror.NewBusinessFields("too many failed attempts, try again later",
			goerror.CodeTooManyRequest,
			"locked_until", state.LockedUntil.Format(time.RFC3339))
	}

	attemptsLeft := max(0, maxAttempts-state.Count)

	return goerror.NewBusinessFields(msgInvalidCode, goerror.CodeUnauthorized,
		"attempts_left", strconv.FormatInt(int64(attemptsLeft), 10))
}

func (s *Usecase) recordVerifyEvent(ctx context.Context, in VerifyInput, evType audit.EventType, metadata map[string]any) {
	s.audit.Record(ctx, audit.Event{
		Type:       evType,
		ActorType:  in.Actor,
		ActorID:    strconv.FormatInt(in.SubjectID, 10),
		TargetType: "email",
		TargetID:   in.Email,
		Metadata:   metadata,
		IP:         in.IP,
		UserAgent:  in.UserAgent,
	})
}
