package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore appends events to the audit_events table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Insert writes one event. The table is append-only; there is no update or
// delete path.
func (s *PostgresStore) Insert(ctx context.Context, ev Event) error {
	changes, err := json.Marshal(ev.Changes)
	if err != nil {
		return fmt.Errorf("audit: marshal changes: %w", err)
	}

	metadata, err := json.Marshal(ev.Metadata)
	if err != nil {
		return fmt.Errorf("audit: marshal metadata: %w", err)
	}

	query := `
		INSERT INTO audit_events
			(id, event_type, actor_type, actor_id, target_type, target_id,
			 changes, metadata, ip, user_agent, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''),
			 $7, $8, NULLIF($9, ''), NULLIF($10, ''), $11)`

	if _, err := s.pool.Exec(ctx, query,
		ev.ID,
		ev.Type.String(),
		ev.ActorType.String(),
		ev.ActorID,
		ev.TargetType,
		ev.TargetID,
		changes,
		metadata,
		ev.IP,
		ev.UserAgent,
		ev.CreatedAt,
	); err != nil {
		return fmt.Errorf("audit: insert event: %w", err)
	}

	return nil
}
