package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"time"

	"github.com/0xmonas/cobbee/internal/audit"
	"github.com/0xmonas/cobbee/internal/pkg/goerror"
	"github.com/0xmonas/cobbee/internal/verification/entity"
)

// IssueInput requests a new verification code for an email address.
type IssueInput struct {
	SubjectID int64  `validate:"required"`
	Email     string `validate:"required,email"`

	Actor     audit.ActorType `validate:"-"`
	IP        string          `validate:"-"`
	UserAgent string          `validate:"-"`
}

// IssueOutput reports when the issued code expires.
type IssueOutput struct {
	ExpiresAt time.Time
}

// Issue creates a fresh challenge, replacing any prior pending one, and
// sends the code to the address. A failed delivery removes the challenge
// again so the subject is not left with a code they never received.
func (s *Usecase) Issue(ctx context.Context, in IssueInput) (*IssueOutput, error) {
	ctx, span := s.startSpan(ctx, "Issue")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	verified, err := s.repoDB.IsEmailVerified(ctx, in.SubjectID, in.Email)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check email verification state",
			"subject_id", in.SubjectID, "error", err)
		return nil, goerror.NewServer(err)
	}
	if verified {
		return nil, goerror.NewBusiness("email already verified", goerror.CodeConflict)
	}

	code, err := generateCode()
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate verification code", "error", err)
		return nil, goerror.NewServer(err)
	}

	codeHash, err := s.argon2id.Hash(code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash verification code", "error", err)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()
	ttl := s.challengeTTL()
	ch := entity.Challenge{
		ID:        s.uid.Generate(),
		SubjectID: in.SubjectID,
		Email:     in.Email,
		CodeHash:  string(codeHash),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	if err := s.repoDB.ReplaceChallenge(ctx, ch); err != nil {
		slog.ErrorContext(ctx, "failed to store challenge",
			"subject_id", in.SubjectID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if err := s.notifier.SendCode(ctx, in.Email, code, ttl); err != nil {
		slog.WarnContext(ctx, "failed to deliver verification code",
			"subject_id", in.SubjectID, "error", err)

		// Compensating delete; the challenge must not stay verifiable when
		// the subject never received the code.
		if derr := s.repoDB.DeleteChallenge(ctx, ch.ID); derr != nil {
			slog.ErrorContext(ctx, "failed to remove undelivered challenge",
				"challenge_id", ch.ID, "error", derr)
		}

		return nil, goerror.NewBusiness("failed to deliver verification code", goerror.CodeUnavailable)
	}

	s.audit.Record(ctx, audit.Event{
		Type:       audit.EventOTPIssued,
		ActorType:  in.Actor,
		ActorID:    strconv.FormatInt(in.SubjectID, 10),
		TargetType: "email",
		TargetID:   in.Email,
		Metadata:   map[string]any{"expires_at": ch.ExpiresAt.Format(time.RFC3339)},
		IP:         in.IP,
		UserAgent:  in.UserAgent,
	})

	return &IssueOutput{ExpiresAt: ch.ExpiresAt}, nil
}

// generateCode draws a uniform 6-digit code from crypto/rand.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", errors.Join(errors.New("usecase: generate code"), err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
