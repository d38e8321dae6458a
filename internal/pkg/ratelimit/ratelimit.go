// Package ratelimit implements a tiered sliding-window rate limiter.
package ratelimit

import (
	"context"
	"time"
)

// Tier names a rate limiting policy class. Each route is assigned a tier;
// counting is per tier per client, so exhausting one tier never affects
// another.
type Tier string

const (
	// TierAuth covers authentication and verification endpoints.
	TierAuth Tier = "auth"
	// TierAPI covers general API traffic.
	TierAPI Tier = "api"
	// TierPayment covers payment endpoints.
	TierPayment Tier = "payment"
	// TierStrict covers the most sensitive endpoints.
	TierStrict Tier = "strict"
)

func (t Tier) String() string {
	return string(t)
}

// Policy holds the request budget for one tier.
type Policy struct {
	// Limit is the maximum number of requests per window.
	Limit int
	// Window is the sliding window length.
	Window time.Duration
}

// DefaultPolicies returns the built-in tier budgets.
func DefaultPolicies() map[Tier]Policy {
	return map[Tier]Policy{
		TierAuth:    {Limit: 5, Window: 15 * time.Minute},
		TierAPI:     {Limit: 30, Window: time.Minute},
		TierPayment: {Limit: 10, Window: time.Minute},
		TierStrict:  {Limit: 3, Window: time.Minute},
	}
}

// Result reports a single admission decision.
type Result struct {
	// Allowed is true when the request fits the budget.
	Allowed bool
	// Limit is the tier budget, for response headers.
	Limit int
	// Remaining is how many requests are left in the current window.
	Remaining int
	// ResetAt is when the oldest counted request leaves the window.
	ResetAt time.Time
	// RetryAfter is how long a denied client should wait. Zero when allowed.
	RetryAfter time.Duration
}

// Limiter decides whether a client request is admitted under a tier budget.
type Limiter interface {
	Allow(ctx context.Context, tier Tier, client string) (Result, error)
}
