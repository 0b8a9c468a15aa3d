package memory

import (
	"context"
	"slices"
	"time"

	"appraisal/internal/platform/idempotency"
)

type savedReply struct {
	rec     idempotency.Record
	savedAt time.Time
}

func (s *Store) LookupIdempotency(ctx context.Context, scope, key string) (idempotency.Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return idempotency.Record{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	saved, ok := s.replies[scope+"\x00"+key]
	if !ok {
		return idempotency.Record{}, false, nil
	}
	rec := saved.rec
	rec.Body = slices.Clone(rec.Body)
	return rec, true, nil
}

func (s *Store) SaveIdempotency(ctx context.Context, scope, key string, rec idempotency.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := scope + "\x00" + key
	savedAt := s.now()
	if existing, ok := s.replies[id]; ok {
		if existing.rec.RequestHash != rec.RequestHash {
			return idempotency.ErrConflict
		}
		savedAt = existing.savedAt
	}
	rec.Body = slices.Clone(rec.Body)
	s.replies[id] = savedReply{rec: rec, savedAt: savedAt}
	return nil
}

// PurgeIdempotency drops replies saved before the cutoff.
func (s *Store) PurgeIdempotency(ctx context.Context, before time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for id, saved := range s.replies {
		if saved.savedAt.Before(before) {
			delete(s.replies, id)
			removed++
		}
	}
	return removed, nil
}
