package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/0xmonas/cobbee/internal/verification/entity"
)

// IsEmailVerified reports whether the subject already has this address bound
// and verified.
func (s *DB) IsEmailVerified(ctx context.Context, subjectID int64, email string) (verified bool, err error) {
	ctx, span := s.startSpan(ctx, "IsEmailVerified")
	defer func() { s.endSpan(span, err) }()

	row := s.conn.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM subjects
			WHERE id = $1 AND email = $2 AND email_verified_at IS NOT NULL
		)`,
		subjectID, email,
	)

	err = s.mapError(row.Scan(&verified))
	return verified, err
}

// CompleteVerification applies the success writes in one transaction: mark
// the challenge verified, clear the failure counter, and bind the verified
// address to the subject.
func (s *DB) CompleteVerification(ctx context.Context, in entity.CompleteVerification) (err error) {
	ctx, span := s.startSpan(ctx, "CompleteVerification")
	defer func() { s.endSpan(span, err) }()

	err = s.mapError(s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE verification_challenges SET verified_at = $2 WHERE id = $1`,
			in.ChallengeID, in.VerifiedAt,
		); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`DELETE FROM verification_attempts WHERE subject_id = $1 AND email = $2`,
			in.SubjectID, in.Email,
		); err != nil {
			return err
		}

		_, err := tx.Exec(ctx,
			`UPDATE subjects SET email = $2, email_verified_at = $3 WHERE id = $1`,
			in.SubjectID, in.Email, in.VerifiedAt,
		)
		return err
	}))

	return err
}
