// Package entity holds the verification domain types.
package entity

import "time"

// Challenge is a pending email verification code. The code itself is never
// stored; CodeHash is a PHC-formatted argon2id digest.
type Challenge struct {
	ID         int64
	SubjectID  int64
	Email      string
	CodeHash   string
	ExpiresAt  time.Time
	VerifiedAt *time.Time
	CreatedAt  time.Time
}

// Expired reports whether the challenge is past its expiry at the given time.
func (c Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// CompleteVerification carries the writes applied atomically when a code
// matches: the challenge is marked verified, the failure counter cleared, and
// the email bound to the subject.
type CompleteVerification struct {
	ChallengeID int64
	SubjectID   int64
	Email       string
	VerifiedAt  time.Time
}
