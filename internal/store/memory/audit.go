package memory

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"appraisal/internal/domain/audit"
)

func (s *Store) AppendAudit(ctx context.Context, evt audit.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	evt.ID = uuid.NewString()
	evt.Details = slices.Clone(evt.Details)
	s.mu.Lock()
	s.audit = append(s.audit, evt)
	s.mu.Unlock()
	return nil
}

func (s *Store) ListAudit(ctx context.Context, filter audit.Filter, limit, offset int) ([]audit.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []audit.Event{}
	skipped := 0
	for i := len(s.audit) - 1; i >= 0; i-- {
		evt := s.audit[i]
		if !auditMatches(evt, filter) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		evt.Details = slices.Clone(evt.Details)
		out = append(out, evt)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func auditMatches(evt audit.Event, f audit.Filter) bool {
	return (f.Action == "" || evt.Action == f.Action) &&
		(f.EntityType == "" || evt.EntityType == f.EntityType) &&
		(f.EntityID == "" || evt.EntityID == f.EntityID) &&
		(f.ActorID == "" || evt.ActorID == f.ActorID)
}

func (s *Store) CountAudit(ctx context.Context, filter audit.Filter) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, evt := range s.audit {
		if auditMatches(evt, filter) {
			total++
		}
	}
	return total, nil
}
