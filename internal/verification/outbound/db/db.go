// Package db is the Postgres adapter for the verification module.
package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/0xmonas/cobbee/internal/pkg/goerror"
	"github.com/0xmonas/cobbee/internal/pkg/instrument"
)

// DB wraps a pgx pool with the verification queries.
type DB struct {
	conn *pgxpool.Pool
	ins  instrument.Instrumentation
}

// NewDB constructs the adapter.
func NewDB(conn *pgxpool.Pool, ins instrument.Instrumentation) *DB {
	return &DB{conn: conn, ins: ins}
}

func (s *DB) mapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return goerror.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return goerror.ErrConflict
	}

	return err
}

func (s *DB) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("verification.outbound.db").Start(ctx, name)
}

func (s *DB) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) && !errors.Is(err, goerror.ErrConflict) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// withTx runs fn inside a transaction, rolling back on error.
func (s *DB) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, rbErr)
		}
		return err
	}

	return tx.Commit(ctx)
}
