package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisClientRequired is returned when no Redis client is configured.
var ErrRedisClientRequired = errors.New("ratelimit: redis client is required")

const keyPrefix = "ratelimit:"

type clocker interface {
	Now() time.Time
}

type generator interface {
	Generate() string
}

// SlidingWindowConfig configures the Redis-backed limiter.
type SlidingWindowConfig struct {
	// Client is the Redis connection.
	Client *redis.Client
	// Policies overrides tier budgets; missing tiers use DefaultPolicies.
	Policies map[Tier]Policy
	// FailOpen admits requests when Redis is unreachable. Denying on backend
	// failure turns a cache outage into a full service outage, so this
	// defaults to true in configuration.
	FailOpen bool
	// Clock provides the current time source.
	Clock clocker
	// Member generates unique set members for counted requests.
	Member generator
}

// slidingWindowScript trims, counts, and conditionally records in one server
// round trip. The whole admission decision runs inside Redis so concurrent
// requests serialize on the script instead of racing an application-level
// read-modify-write.
//
// KEYS[1] bucket key. ARGV: window start (ms), limit, now (ms), member,
// window (ms). Reply: {allowed, count after the call, oldest score or 0}.
var slidingWindowScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
local count = redis.call('ZCARD', KEYS[1])
local allowed = 0
if count < tonumber(ARGV[2]) then
	redis.call('ZADD', KEYS[1], ARGV[3], ARGV[4])
	redis.call('PEXPIRE', KEYS[1], ARGV[5])
	allowed = 1
	count = count + 1
end
local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
local reset = 0
if oldest[2] then
	reset = tonumber(oldest[2])
end
return {allowed, count, reset}
`)

// SlidingWindow is a Limiter backed by one Redis sorted set per tier/client
// pair. Members are scored by request time in milliseconds; entries older
// than the window are pruned on every check, so the count is exact rather
// than bucketed.
type SlidingWindow struct {
	client   *redis.Client
	policies map[Tier]Policy
	failOpen bool
	clock    clocker
	member   generator
}

// NewSlidingWindow constructs the limiter, filling missing tier policies
// with the defaults.
func NewSlidingWindow(cfg SlidingWindowConfig) (*SlidingWindow, error) {
	if cfg.Client == nil {
		return nil, ErrRedisClientRequired
	}

	policies := DefaultPolicies()
	for tier, p := range cfg.Policies {
		if p.Limit > 0 && p.Window > 0 {
			policies[tier] = p
		}
	}

	return &SlidingWindow{
		client:   cfg.Client,
		policies: policies,
		failOpen: cfg.FailOpen,
		clock:    cfg.Clock,
		member:   cfg.Member,
	}, nil
}

// Allow counts the request against the tier budget for the client. On a
// Redis failure it returns the backend error together with a Result whose
// Allowed reflects the fail-open policy so callers can both log and decide.
func (s *SlidingWindow) Allow(ctx context.Context, tier Tier, client string) (Result, error) {
	policy, ok := s.policies[tier]
	if !ok {
		policy = s.policies[TierAPI]
	}

	now := s.clock.Now()
	key := keyPrefix + tier.String() + ":" + client
	windowStart := now.Add(-policy.Window)

	vals, err := slidingWindowScript.Run(ctx, s.client, []string{key},
		windowStart.UnixMilli(),
		policy.Limit,
		now.UnixMilli(),
		s.member.Generate(),
		policy.Window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return s.failResult(policy, now), fmt.Errorf("ratelimit: redis check: %w", err)
	}
	if len(vals) != 3 {
		return s.failResult(policy, now), fmt.Errorf("ratelimit: unexpected script reply of %d values", len(vals))
	}

	allowed := vals[0] == 1
	count := int(vals[1])

	resetAt := now.Add(policy.Window)
	if vals[2] > 0 {
		resetAt = time.UnixMilli(vals[2]).Add(policy.Window)
	}

	if !allowed {
		return Result{
			Allowed:    false,
			Limit:      policy.Limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: max(resetAt.Sub(now), time.Second),
		}, nil
	}

	return Result{
		Allowed:   true,
		Limit:     policy.Limit,
		Remaining: policy.Limit - count,
		ResetAt:   resetAt,
	}, nil
}

func (s *SlidingWindow) failResult(policy Policy, now time.Time) Result {
	res := Result{
		Allowed: s.failOpen,
		Limit:   policy.Limit,
		ResetAt: now.Add(policy.Window),
	}
	if !s.failOpen {
		res.RetryAfter = policy.Window
	}
	return res
}
