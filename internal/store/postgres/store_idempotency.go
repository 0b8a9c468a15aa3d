package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"appraisal/internal/platform/idempotency"
)

func (s *Store) LookupIdempotency(ctx context.Context, scope, key string) (idempotency.Record, bool, error) {
	var rec idempotency.Record
	err := s.DB.QueryRow(ctx, `
    SELECT request_hash, status, response_body
    FROM idempotency_keys
    WHERE scope = $1 AND key = $2
  `, scope, key).Scan(&rec.RequestHash, &rec.Status, &rec.Body)
	if errors.Is(err, pgx.ErrNoRows) {
		return idempotency.Record{}, false, nil
	}
	if err != nil {
		return idempotency.Record{}, false, fmt.Errorf("lookup idempotency key: %w", err)
	}
	return rec, true, nil
}

func (s *Store) SaveIdempotency(ctx context.Context, scope, key string, rec idempotency.Record) error {
	tag, err := s.DB.Exec(ctx, `
    INSERT INTO idempotency_keys (scope, key, request_hash, status, response_body)
    VALUES ($1, $2, $3, $4, $5)
    ON CONFLICT (scope, key)
    DO UPDATE SET status = EXCLUDED.status, response_body = EXCLUDED.response_body
    WHERE idempotency_keys.request_hash = EXCLUDED.request_hash
  `, scope, key, rec.RequestHash, rec.Status, rec.Body)
	if err != nil {
		return fmt.Errorf("save idempotency key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return idempotency.ErrConflict
	}
	return nil
}

// PurgeIdempotency drops replies saved before the cutoff.
func (s *Store) PurgeIdempotency(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.DB.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("purge idempotency keys: %w", err)
	}
	return tag.RowsAffected(), nil
}
