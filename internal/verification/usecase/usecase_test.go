package usecase

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/0xmonas/cobbee/internal/audit"
	"github.com/0xmonas/cobbee/internal/pkg/clock"
	"github.com/0xmonas/cobbee/internal/pkg/config"
	"github.com/0xmonas/cobbee/internal/pkg/goerror"
	"github.com/0xmonas/cobbee/internal/pkg/instrument"
	"github.com/0xmonas/cobbee/internal/pkg/validator"
	"github.com/0xmonas/cobbee/internal/verification/entity"
)

var testNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

// fakeRepo is an in-memory repoDB. RecordFailure reproduces the atomic
// upsert-increment semantics of the production SQL under a mutex, so the
// concurrency property can be exercised without a database.
type fakeRepo struct {
	mu sync.Mutex

	challenge *entity.Challenge
	attempt   *entity.Attempt
	verified  map[string]bool

	replaceErr  error
	deleteErr   error
	completeErr error

	deletedIDs  []int64
	completions []entity.CompleteVerification
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{verified: map[string]bool{}}
}

func (f *fakeRepo) IsEmailVerified(_ context.Context, subjectID int64, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.verified[email], nil
}

func (f *fakeRepo) ReplaceChallenge(_ context.Context, ch entity.Challenge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.challenge = &ch
	return nil
}

func (f *fakeRepo) DeleteChallenge(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedIDs = append(f.deletedIDs, id)
	if f.challenge != nil && f.challenge.ID == id {
		f.challenge = nil
	}
	return nil
}

func (f *fakeRepo) GetActiveChallenge(_ context.Context, subjectID int64, email string) (*entity.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.challenge == nil || f.challenge.SubjectID != subjectID ||
		f.challenge.Email != email || f.challenge.VerifiedAt != nil {
		return nil, goerror.ErrNotFound
	}
	ch := *f.challenge
	return &ch, nil
}

func (f *fakeRepo) GetAttempt(_ context.Context, subjectID int64, email string) (*entity.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attempt == nil {
		return nil, goerror.ErrNotFound
	}
	a := *f.attempt
	return &a, nil
}

func (f *fakeRepo) RecordFailure(_ context.Context, in entity.RecordFailure) (*entity.FailureState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.attempt == nil {
		f.attempt = &entity.Attempt{SubjectID: in.SubjectID, Email: in.Email}
	}
	f.attempt.Count++
	f.attempt.LastAttemptAt = in.At

	lockClear := f.attempt.LockedUntil == nil || !f.attempt.LockedUntil.After(in.At)
	if lockClear && f.attempt.Count >= in.MaxAttempts {
		until := in.LockUntil
		f.attempt.LockedUntil = &until
	}

	return &entity.FailureState{Count: f.attempt.Count, LockedUntil: f.attempt.LockedUntil}, nil
}

func (f *fakeRepo) CompleteVerification(_ context.Context, in entity.CompleteVerification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completeErr != nil {
		return f.completeErr
	}
	f.completions = append(f.completions, in)
	if f.challenge != nil && f.challenge.ID == in.ChallengeID {
		f.challenge.VerifiedAt = &in.VerifiedAt
	}
	f.attempt = nil
	f.verified[in.Email] = true
	return nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	err   error
	codes []string
	to    []string
}

func (f *fakeNotifier) SendCode(_ context.Context, email, code string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.codes = append(f.codes, code)
	f.to = append(f.to, email)
	return nil
}

type fakeAuditor struct {
	mu     sync.Mutex
	events []audit.Event
}

func (f *fakeAuditor) Record(_ context.Context, ev audit.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

func (f *fakeAuditor) types() []audit.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]audit.EventType, 0, len(f.events))
	for _, ev := range f.events {
		out = append(out, ev.Type)
	}
	return out
}

// fakeHash is reversible on purpose so tests can steer match/mismatch.
type fakeHash struct{}

func (fakeHash) Hash(str string) ([]byte, error) { return []byte("digest:" + str), nil }

func (fakeHash) Verify(hashed, str string) bool { return hashed == "digest:"+str }

type seqNumberID struct {
	mu   sync.Mutex
	next int64
}

func (s *seqNumberID) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return s.next
}

func testConfig(t *testing.T) config.Config {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(`
verification:
  max_attempts: 5
  lock_minutes: 15
  challenge_ttl_minutes: 10
`))
	require.NoError(t, err)
	return cfg
}

func newTestUsecase(t *testing.T, repo *fakeRepo, notify *fakeNotifier, aud *fakeAuditor) *Usecase {
	t.Helper()

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	return New(Dependency{
		RepoDB:     repo,
		Notifier:   notify,
		Audit:      aud,
		Validator:  v,
		Config:     testConfig(t),
		Argon2ID:   fakeHash{},
		UID:        &seqNumberID{},
		Clock:      clock.Fixed{At: testNow},
		Instrument: instrument.NewNoop(),
	})
}

// seedChallenge installs a pending challenge for code "123456".
func seedChallenge(repo *fakeRepo, expiresAt time.Time) {
	repo.challenge = &entity.Challenge{
		ID:        1,
		SubjectID: 42,
		Email:     "user@example.com",
		CodeHash:  "digest:123456",
		ExpiresAt: expiresAt,
		CreatedAt: testNow.Add(-time.Minute),
	}
}

func isSixDigits(s string) bool {
	if len(s) != 6 {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) == -1
}
