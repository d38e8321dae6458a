package db

import (
	"context"

	"github.com/0xmonas/cobbee/internal/verification/entity"
)

// GetAttempt returns the failure counter for the subject/email pair, or
// goerror.ErrNotFound when no failure has been recorded yet.
func (s *DB) GetAttempt(ctx context.Context, subjectID int64, email string) (a *entity.Attempt, err error) {
	ctx, span := s.startSpan(ctx, "GetAttempt")
	defer func() { s.endSpan(span, err) }()

	row := s.conn.QueryRow(ctx,
		`SELECT subject_id, email, attempt_count, last_attempt_at, locked_until
		 FROM verification_attempts
		 WHERE subject_id = $1 AND email = $2`,
		subjectID, email,
	)

	var out entity.Attempt
	err = s.mapError(row.Scan(
		&out.SubjectID, &out.Email, &out.Count, &out.LastAttemptAt, &out.LockedUntil,
	))
	if err != nil {
		return nil, err
	}

	return &out, nil
}

// RecordFailure increments the failure counter in a single statement so
// concurrent failures cannot lose updates. A lock is placed when the new
// count reaches the limit and no unexpired lock exists; an expired lock
// counts as clear, so a subject who keeps failing after a lock lapses gets
// locked again.
func (s *DB) RecordFailure(ctx context.Context, in entity.RecordFailure) (st *entity.FailureState, err error) {
	ctx, span := s.startSpan(ctx, "RecordFailure")
	defer func() { s.endSpan(span, err) }()

	row := s.conn.QueryRow(ctx,
		`INSERT INTO verification_attempts
			(subject_id, email, attempt_count, last_attempt_at, locked_until)
		 VALUES ($1, $2, 1, $3, NULL)
		 ON CONFLICT (subject_id, email) DO UPDATE SET
			attempt_count   = verification_attempts.attempt_count + 1,
			last_attempt_at = EXCLUDED.last_attempt_at,
			locked_until    = CASE
				WHEN (verification_attempts.locked_until IS NULL
					OR verification_attempts.locked_until <= EXCLUDED.last_attempt_at)
					AND verification_attempts.attempt_count + 1 >= $4
				THEN $5
				ELSE verification_attempts.locked_until
			END
		 RETURNING attempt_count, locked_until`,
		in.SubjectID, in.Email, in.At, in.MaxAttempts, in.LockUntil,
	)

	var out entity.FailureState
	err = s.mapError(row.Scan(&out.Count, &out.LockedUntil))
	if err != nil {
		return nil, err
	}

	return &out, nil
}
