// Package inbound exposes the verification HTTP endpoints.
package inbound

import (
	"context"

	"github.com/0xmonas/cobbee/internal/pkg/ratelimit"
	"github.com/0xmonas/cobbee/internal/pkg/router"
	"github.com/0xmonas/cobbee/internal/verification/usecase"
)

type uc interface {
	Issue(ctx context.Context, in usecase.IssueInput) (*usecase.IssueOutput, error)
	Verify(ctx context.Context, in usecase.VerifyInput) (*usecase.VerifyOutput, error)
}

// RegisterHTTPEndpoint wires the verification routes. Both endpoints sit on
// the auth tier; the limiter runs before the usecase, so a rate-limited
// request never consumes a verification attempt.
func RegisterHTTPEndpoint(r *router.Router, u uc, limiter ratelimit.Limiter) {
	end := &HTTPEndpoint{uc: u}

	authTier := router.RateLimit(limiter, ratelimit.TierAuth)

	r.POST("/api/v1/verification/email/request", end.RequestCode, authTier)
	r.POST("/api/v1/verification/email/verify", end.VerifyCode, authTier)
}
