package entity

import "time"

// Attempt tracks consecutive failed verifications per subject and email.
type Attempt struct {
	SubjectID     int64
	Email         string
	Count         int32
	LastAttemptAt time.Time
	LockedUntil   *time.Time
}

// LockedAt reports whether the subject is locked out at the given time.
func (a Attempt) LockedAt(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}

// FailureState is the counter state after recording one failure.
type FailureState struct {
	Count       int32
	LockedUntil *time.Time
}

// RecordFailure carries the parameters of the atomic failure increment.
type RecordFailure struct {
	SubjectID   int64
	Email       string
	At          time.Time
	MaxAttempts int32
	LockUntil   time.Time
}
