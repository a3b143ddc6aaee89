package store

import (
	"context"

	"mentor-meet-api/internal/model"
)

// RecordOrphan flags a provisioned call that has no session record.
// Recording the same call again refreshes the reason and reopens it.
func (s *Store) RecordOrphan(ctx context.Context, callID, reason string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO orphaned_calls (call_id, reason) VALUES ($1,$2)
		 ON CONFLICT (call_id) DO UPDATE
		 SET reason = EXCLUDED.reason, recorded_at = NOW(), resolved_at = NULL`,
		callID, reason,
	)
	return err
}

func (s *Store) ResolveOrphan(ctx context.Context, callID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE orphaned_calls SET resolved_at = NOW()
		 WHERE call_id = $1 AND resolved_at IS NULL`, callID,
	)
	return err
}

// ListOrphans returns unresolved orphaned calls, oldest first.
func (s *Store) ListOrphans(ctx context.Context) ([]model.OrphanedCall, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT call_id, reason, recorded_at, resolved_at
		 FROM orphaned_calls WHERE resolved_at IS NULL
		 ORDER BY recorded_at, call_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.OrphanedCall
	for rows.Next() {
		var o model.OrphanedCall
		if err := rows.Scan(&o.CallID, &o.Reason, &o.RecordedAt, &o.ResolvedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
