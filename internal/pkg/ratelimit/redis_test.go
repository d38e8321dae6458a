package ratelimit

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClock struct{ at time.Time }

func (s stubClock) Now() time.Time { return s.at }

// stepClock is a settable time source for window-lapse tests.
type stepClock struct {
	mu sync.Mutex
	at time.Time
}

func (s *stepClock) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.at
}

func (s *stepClock) Advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.at = s.at.Add(d)
}

type stubMember struct{}

func (stubMember) Generate() string { return "member-1" }

// seqMember issues unique members, safe for concurrent use.
type seqMember struct{ n atomic.Int64 }

func (s *seqMember) Generate() string {
	return "member-" + strconv.FormatInt(s.n.Add(1), 10)
}

func miniredisLimiter(t *testing.T, clk clocker, policies map[Tier]Policy) *SlidingWindow {
	t.Helper()

	mr := miniredis.RunT(t)
	limiter, err := NewSlidingWindow(SlidingWindowConfig{
		Client:   redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		Policies: policies,
		Clock:    clk,
		Member:   &seqMember{},
	})
	require.NoError(t, err)
	return limiter
}

// unreachableClient returns a client whose commands always fail, simulating
// a Redis outage without external infrastructure.
func unreachableClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:            "127.0.0.1:1",
		DialTimeout:     10 * time.Millisecond,
		ReadTimeout:     10 * time.Millisecond,
		WriteTimeout:    10 * time.Millisecond,
		MaxRetries:      -1,
		PoolTimeout:     10 * time.Millisecond,
		MinIdleConns:    0,
		ConnMaxIdleTime: time.Millisecond,
	})
}

func TestNewSlidingWindowRequiresClient(t *testing.T) {
	_, err := NewSlidingWindow(SlidingWindowConfig{})
	assert.ErrorIs(t, err, ErrRedisClientRequired)
}

func TestDefaultPolicies(t *testing.T) {
	policies := DefaultPolicies()

	assert.Equal(t, Policy{Limit: 5, Window: 15 * time.Minute}, policies[TierAuth])
	assert.Equal(t, Policy{Limit: 30, Window: time.Minute}, policies[TierAPI])
	assert.Equal(t, Policy{Limit: 10, Window: time.Minute}, policies[TierPayment])
	assert.Equal(t, Policy{Limit: 3, Window: time.Minute}, policies[TierStrict])
}

func TestSlidingWindowPolicyOverride(t *testing.T) {
	limiter, err := NewSlidingWindow(SlidingWindowConfig{
		Client: unreachableClient(),
		Policies: map[Tier]Policy{
			TierAuth: {Limit: 10, Window: time.Hour},
		},
		Clock:  stubClock{at: time.Now()},
		Member: stubMember{},
	})
	require.NoError(t, err)

	assert.Equal(t, Policy{Limit: 10, Window: time.Hour}, limiter.policies[TierAuth])
	// Unspecified tiers keep their defaults.
	assert.Equal(t, Policy{Limit: 30, Window: time.Minute}, limiter.policies[TierAPI])
}

func TestSlidingWindowExhaustsBudgetThenRejects(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	limiter := miniredisLimiter(t, stubClock{at: now}, nil)

	for i := 0; i < 5; i++ {
		res, err := limiter.Allow(context.Background(), TierAuth, "203.0.113.7")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d should fit the budget", i+1)
		assert.Equal(t, 5, res.Limit)
		assert.Equal(t, 4-i, res.Remaining)
	}

	res, err := limiter.Allow(context.Background(), TierAuth, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Zero(t, res.Remaining)
	assert.True(t, res.ResetAt.Equal(now.Add(15*time.Minute)), "reset at %v", res.ResetAt)
	assert.True(t, res.ResetAt.After(now))
	assert.Equal(t, 15*time.Minute, res.RetryAfter)
}

func TestSlidingWindowAdmitsAfterWindowLapse(t *testing.T) {
	clk := &stepClock{at: time.Now().UTC().Truncate(time.Millisecond)}
	limiter := miniredisLimiter(t, clk, map[Tier]Policy{
		TierStrict: {Limit: 2, Window: time.Minute},
	})

	for i := 0; i < 2; i++ {
		res, err := limiter.Allow(context.Background(), TierStrict, "203.0.113.7")
		require.NoError(t, err)
		require.True(t, res.Allowed)
	}

	res, err := limiter.Allow(context.Background(), TierStrict, "203.0.113.7")
	require.NoError(t, err)
	require.False(t, res.Allowed)

	clk.Advance(time.Minute + time.Second)

	res, err = limiter.Allow(context.Background(), TierStrict, "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Remaining)
}

func TestSlidingWindowTiersAreIndependent(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	limiter := miniredisLimiter(t, stubClock{at: now}, map[Tier]Policy{
		TierAuth: {Limit: 1, Window: time.Minute},
	})

	res, err := limiter.Allow(context.Background(), TierAuth, "203.0.113.7")
	require.NoError(t, err)
	require.True(t, res.Allowed)

	res, err = limiter.Allow(context.Background(), TierAuth, "203.0.113.7")
	require.NoError(t, err)
	require.False(t, res.Allowed)

	// Exhausting auth must not consume the api budget for the same client.
	res, err = limiter.Allow(context.Background(), TierAPI, "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestSlidingWindowConcurrentBurstHonorsLimit(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	limiter := miniredisLimiter(t, stubClock{at: now}, nil)

	const burst = 40

	var wg sync.WaitGroup
	var admitted atomic.Int64
	for i := 0; i < burst; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := limiter.Allow(context.Background(), TierAuth, "203.0.113.7")
			if err == nil && res.Allowed {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	// The admission decision runs inside one script, so a parallel burst can
	// never overrun the budget.
	assert.Equal(t, int64(5), admitted.Load())
}

func TestSlidingWindowFailOpen(t *testing.T) {
	now := time.Now().UTC()
	limiter, err := NewSlidingWindow(SlidingWindowConfig{
		Client:   unreachableClient(),
		FailOpen: true,
		Clock:    stubClock{at: now},
		Member:   stubMember{},
	})
	require.NoError(t, err)

	res, err := limiter.Allow(context.Background(), TierAuth, "203.0.113.7")
	require.Error(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 5, res.Limit)
	assert.Zero(t, res.RetryAfter)
}

func TestSlidingWindowFailClosed(t *testing.T) {
	now := time.Now().UTC()
	limiter, err := NewSlidingWindow(SlidingWindowConfig{
		Client:   unreachableClient(),
		FailOpen: false,
		Clock:    stubClock{at: now},
		Member:   stubMember{},
	})
	require.NoError(t, err)

	res, err := limiter.Allow(context.Background(), TierStrict, "203.0.113.7")
	require.Error(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, time.Minute, res.RetryAfter)
}
