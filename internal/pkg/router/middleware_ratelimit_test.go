package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/0xmonas/cobbee/internal/pkg/ratelimit"
)

type stubLimiter struct {
	res ratelimit.Result
	err error

	gotTier   ratelimit.Tier
	gotClient string
}

func (s *stubLimiter) Allow(_ context.Context, tier ratelimit.Tier, client string) (ratelimit.Result, error) {
	s.gotTier = tier
	s.gotClient = client
	return s.res, s.err
}

func TestRateLimitAllowed(t *testing.T) {
	resetAt := time.Now().Add(10 * time.Minute)
	limiter := &stubLimiter{res: ratelimit.Result{
		Allowed:   true,
		Limit:     5,
		Remaining: 2,
		ResetAt:   resetAt,
	}}

	called := false
	h := RateLimit(limiter, ratelimit.TierAuth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/verification/email/request", nil)
	req.RemoteAddr = "203.0.113.7"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ratelimit.TierAuth, limiter.gotTier)
	assert.Equal(t, "203.0.113.7", limiter.gotClient)
	assert.Equal(t, "5", rec.Header().Get(HeaderRateLimitLimit))
	assert.Equal(t, "2", rec.Header().Get(HeaderRateLimitRemaining))
	assert.NotEmpty(t, rec.Header().Get(HeaderRateLimitReset))
}

func TestRateLimitDenied(t *testing.T) {
	limiter := &stubLimiter{res: ratelimit.Result{
		Allowed:    false,
		Limit:      3,
		Remaining:  0,
		ResetAt:    time.Now().Add(40 * time.Second),
		RetryAfter: 40 * time.Second,
	}}

	h := RateLimit(limiter, ratelimit.TierStrict)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run when denied")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/verification/email/verify", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "40", rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get(HeaderRateLimitRemaining))
	assert.JSONEq(t, `{"message":"Too many requests, please retry later"}`, rec.Body.String())
}

func TestRateLimitSubSecondRetryAfter(t *testing.T) {
	limiter := &stubLimiter{res: ratelimit.Result{
		Allowed:    false,
		Limit:      3,
		ResetAt:    time.Now().Add(200 * time.Millisecond),
		RetryAfter: 200 * time.Millisecond,
	}}

	h := RateLimit(limiter, ratelimit.TierStrict)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	// A denied client is never told to retry immediately.
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}
