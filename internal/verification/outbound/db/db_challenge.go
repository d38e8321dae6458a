package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/0xmonas/cobbee/internal/verification/entity"
)

// ReplaceChallenge removes any pending challenge for the subject/email pair
// and inserts the new one, so at most one code is active at a time.
func (s *DB) ReplaceChallenge(ctx context.Context, ch entity.Challenge) (err error) {
	ctx, span := s.startSpan(ctx, "ReplaceChallenge")
	defer func() { s.endSpan(span, err) }()

	err = s.mapError(s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM verification_challenges
			 WHERE subject_id = $1 AND email = $2 AND verified_at IS NULL`,
			ch.SubjectID, ch.Email,
		); err != nil {
			return err
		}

		_, err := tx.Exec(ctx,
			`INSERT INTO verification_challenges
				(id, subject_id, email, code_hash, expires_at, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			ch.ID, ch.SubjectID, ch.Email, ch.CodeHash, ch.ExpiresAt, ch.CreatedAt,
		)
		return err
	}))

	return err
}

// GetActiveChallenge returns the most recent non-verified challenge for the
// subject/email pair, or goerror.ErrNotFound.
func (s *DB) GetActiveChallenge(ctx context.Context, subjectID int64, email string) (ch *entity.Challenge, err error) {
	ctx, span := s.startSpan(ctx, "GetActiveChallenge")
	defer func() { s.endSpan(span, err) }()

	row := s.conn.QueryRow(ctx,
		`SELECT id, subject_id, email, code_hash, expires_at, verified_at, created_at
		 FROM verification_challenges
		 WHERE subject_id = $1 AND email = $2 AND verified_at IS NULL
		 ORDER BY created_at DESC
		 LIMIT 1`,
		subjectID, email,
	)

	var out entity.Challenge
	err = s.mapError(row.Scan(
		&out.ID, &out.SubjectID, &out.Email, &out.CodeHash,
		&out.ExpiresAt, &out.VerifiedAt, &out.CreatedAt,
	))
	if err != nil {
		return nil, err
	}

	return &out, nil
}

// DeleteChallenge removes a challenge by ID.
func (s *DB) DeleteChallenge(ctx context.Context, id int64) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteChallenge")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `DELETE FROM verification_challenges WHERE id = $1`, id)
	err = s.mapError(err)
	return err
}
