package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmonas/cobbee/internal/audit"
	"github.com/0xmonas/cobbee/internal/pkg/goerror"
	"github.com/0xmonas/cobbee/internal/verification/entity"
)

func verifyIn(code string) VerifyInput {
	return VerifyInput{
		SubjectID: 42,
		Email:     "user@example.com",
		Code:      code,
		Actor:     audit.ActorUser,
		IP:        "203.0.113.7",
	}
}

func TestVerifySuccess(t *testing.T) {
	repo := newFakeRepo()
	aud := &fakeAuditor{}
	uc := newTestUsecase(t, repo, &fakeNotifier{}, aud)
	seedChallenge(repo, testNow.Add(5*time.Minute))

	out, err := uc.Verify(context.Background(), verifyIn("123456"))
	require.NoError(t, err)
	assert.Equal(t, testNow, out.VerifiedAt)

	require.Len(t, repo.completions, 1)
	assert.Equal(t, int64(1), repo.completions[0].ChallengeID)
	assert.Equal(t, "user@example.com", repo.completions[0].Email)

	assert.Equal(t, []audit.EventType{audit.EventOTPVerified}, aud.types())
}

func TestVerifyUsedCodeIsRejected(t *testing.T) {
	repo := newFakeRepo()
	uc := newTestUsecase(t, repo, &fakeNotifier{}, &fakeAuditor{})
	seedChallenge(repo, testNow.Add(5*time.Minute))

	_, err := uc.Verify(context.Background(), verifyIn("123456"))
	require.NoError(t, err)

	// The same code a second time behaves exactly like a wrong code.
	_, err = uc.Verify(context.Background(), verifyIn("123456"))
	require.Error(t, err)

	var gerr *goerror.Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, goerror.CodeUnauthorized, gerr.Code())
	assert.Equal(t, "invalid or expired verification code", gerr.Msg())
}

func TestVerifyNoChallenge(t *testing.T) {
	repo := newFakeRepo()
	aud := &fakeAuditor{}
	uc := newTestUsecase(t, repo, &fakeNotifier{}, aud)

	_, err := uc.Verify(context.Background(), verifyIn("123456"))
	require.Error(t, err)

	var gerr *goerror.Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, goerror.CodeUnauthorized, gerr.Code())
	assert.Equal(t, "invalid or expired verification code", gerr.Msg())

	require.Len(t, aud.events, 1)
	assert.Equal(t, audit.EventOTPFailed, aud.events[0].Type)
	assert.Equal(t, "no request found", aud.events[0].Metadata["reason"])
	// A missing challenge does not touch the failure counter.
	assert.Nil(t, repo.attempt)
}

func TestVerifyExpired(t *testing.T) {
	repo := newFakeRepo()
	aud := &fakeAuditor{}
	uc := newTestUsecase(t, repo, &fakeNotifier{}, aud)
	seedChallenge(repo, testNow.Add(-time.Second))

	_, err := uc.Verify(context.Background(), verifyIn("123456"))
	require.Error(t, err)

	var gerr *goerror.Error
	require.ErrorAs(t, err, &gerr)
	// Same user-facing outcome as a wrong code.
	assert.Equal(t, goerror.CodeUnauthorized, gerr.Code())
	assert.Equal(t, "invalid or expired verification code", gerr.Msg())

	// The expired challenge is gone.
	assert.Nil(t, repo.challenge)
	require.Len(t, aud.events, 1)
	assert.Equal(t, "expired", aud.events[0].Metadata["reason"])
}

func TestVerifyExpiryBoundary(t *testing.T) {
	repo := newFakeRepo()
	uc := newTestUsecase(t, repo, &fakeNotifier{}, &fakeAuditor{})
	// Expiring exactly now counts as expired.
	seedChallenge(repo, testNow)

	_, err := uc.Verify(context.Background(), verifyIn("123456"))
	require.Error(t, err)
	assert.Nil(t, repo.challenge)
}

func TestVerifyWrongCodeCountsDown(t *testing.T) {
	repo := newFakeRepo()
	aud := &fakeAuditor{}
	uc := newTestUsecase(t, repo, &fakeNotifier{}, aud)
	seedChallenge(repo, testNow.Add(5*time.Minute))

	_, err := uc.Verify(context.Background(), verifyIn("000000"))
	require.Error(t, err)

	var gerr *goerror.Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, goerror.CodeUnauthorized, gerr.Code())
	assert.Equal(t, map[string]string{"attempts_left": "4"}, gerr.Fields())

	require.Len(t, aud.events, 1)
	assert.Equal(t, audit.EventOTPFailed, aud.events[0].Type)
	assert.Equal(t, "code mismatch", aud.events[0].Metadata["reason"])
}

func TestVerifyFifthFailureLocks(t *testing.T) {
	repo := newFakeRepo()
	uc := newTestUsecase(t, repo, &fakeNotifier{}, &fakeAuditor{})
	seedChallenge(repo, testNow.Add(5*time.Minute))

	var gerr *goerror.Error
	for i := 0; i < 4; i++ {
		_, err := uc.Verify(context.Background(), verifyIn("000000"))
		require.ErrorAs(t, err, &gerr)
		require.Equal(t, goerror.CodeUnauthorized, gerr.Code())
	}

	_, err := uc.Verify(context.Background(), verifyIn("000000"))
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, goerror.CodeTooManyRequest, gerr.Code())
	assert.Equal(t, testNow.Add(15*time.Minute).Format(time.RFC3339), gerr.Fields()["locked_until"])
}

func TestVerifyCorrectCodeWhileLockedStaysLocked(t *testing.T) {
	repo := newFakeRepo()
	aud := &fakeAuditor{}
	uc := newTestUsecase(t, repo, &fakeNotifier{}, aud)
	seedChallenge(repo, testNow.Add(5*time.Minute))

	for i := 0; i < 5; i++ {
		_, err := uc.Verify(context.Background(), verifyIn("000000"))
		require.Error(t, err)
	}

	// The correct code during the lock window is still rejected, and the
	// counter is not advanced by the rejection.
	countBefore := repo.attempt.Count
	_, err := uc.Verify(context.Background(), verifyIn("123456"))
	require.Error(t, err)

	var gerr *goerror.Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, goerror.CodeTooManyRequest, gerr.Code())
	assert.Equal(t, countBefore, repo.attempt.Count)
	assert.Empty(t, repo.completions)
	assert.Equal(t, audit.EventOTPLocked, aud.events[len(aud.events)-1].Type)
}

func TestVerifyAttemptsLeftNeverNegative(t *testing.T) {
	repo := newFakeRepo()
	uc := newTestUsecase(t, repo, &fakeNotifier{}, &fakeAuditor{})
	seedChallenge(repo, testNow.Add(5*time.Minute))

	// Pre-load the counter beyond the limit with the lock already lapsed,
	// as can happen when failures raced or the lock expired.
	past := testNow.Add(-time.Minute)
	repo.attempt = &entity.Attempt{
		SubjectID:     42,
		Email:         "user@example.com",
		Count:         7,
		LastAttemptAt: past,
		LockedUntil:   &past,
	}

	_, err := uc.Verify(context.Background(), verifyIn("000000"))
	require.Error(t, err)

	var gerr *goerror.Error
	require.ErrorAs(t, err, &gerr)
	if gerr.Code() == goerror.CodeUnauthorized {
		assert.Equal(t, "0", gerr.Fields()["attempts_left"])
	}
}

func TestVerifyReLockAfterExpiredLock(t *testing.T) {
	repo := newFakeRepo()
	uc := newTestUsecase(t, repo, &fakeNotifier{}, &fakeAuditor{})
	seedChallenge(repo, testNow.Add(5*time.Minute))

	// A lock that has already lapsed with the counter at the limit.
	lapsed := testNow.Add(-time.Minute)
	repo.attempt = &entity.Attempt{
		SubjectID:     42,
		Email:         "user@example.com",
		Count:         5,
		LastAttemptAt: lapsed,
		LockedUntil:   &lapsed,
	}

	_, err := uc.Verify(context.Background(), verifyIn("000000"))
	require.Error(t, err)

	var gerr *goerror.Error
	require.ErrorAs(t, err, &gerr)
	// The next failure after the lapse re-locks immediately.
	assert.Equal(t, goerror.CodeTooManyRequest, gerr.Code())
	require.NotNil(t, repo.attempt.LockedUntil)
	assert.True(t, repo.attempt.LockedUntil.After(testNow))
}

func TestVerifyConcurrentFailuresSerialize(t *testing.T) {
	repo := newFakeRepo()
	uc := newTestUsecase(t, repo, &fakeNotifier{}, &fakeAuditor{})
	seedChallenge(repo, testNow.Add(5*time.Minute))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = uc.Verify(context.Background(), verifyIn("000000"))
		}()
	}
	wg.Wait()

	// Every failure that reached the counter incremented it exactly once.
	require.NotNil(t, repo.attempt)
	assert.GreaterOrEqual(t, repo.attempt.Count, int32(5))
	assert.LessOrEqual(t, repo.attempt.Count, int32(10))
	assert.NotNil(t, repo.attempt.LockedUntil)
}

func TestVerifyValidation(t *testing.T) {
	uc := newTestUsecase(t, newFakeRepo(), &fakeNotifier{}, &fakeAuditor{})

	tests := []struct {
		name string
		in   VerifyInput
	}{
		{name: "short code", in: verifyIn("1234")},
		{name: "alphabetic code", in: verifyIn("12a456")},
		{name: "missing code", in: verifyIn("")},
		{name: "missing email", in: VerifyInput{SubjectID: 42, Code: "123456"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Verify(context.Background(), tt.in)
			require.Error(t, err)

			var gerr *goerror.Error
			require.ErrorAs(t, err, &gerr)
			assert.Equal(t, goerror.CodeInvalidInput, gerr.Code())
		})
	}
}
