package audit

import (
	"context"
	"testing"
	"time"
)

type sliceStore struct {
	events []Event
}

func (s *sliceStore) AppendAudit(_ context.Context, evt Event) error {
	s.events = append(s.events, evt)
	return nil
}

func (s *sliceStore) ListAudit(_ context.Context, filter Filter, limit, offset int) ([]Event, error) {
	var out []Event
	for i := len(s.events) - 1; i >= 0; i-- {
		if filter.Action != "" && s.events[i].Action != filter.Action {
			continue
		}
		out = append(out, s.events[i])
	}
	return out, nil
}

func (s *sliceStore) CountAudit(ctx context.Context, filter Filter) (int, error) {
	events, _ := s.ListAudit(ctx, filter, 0, 0)
	return len(events), nil
}

func TestRecordFillsDefaults(t *testing.T) {
	store := &sliceStore{}
	svc := New(store)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("X", 3600)) }

	if err := svc.Record(context.Background(), "", ActionUserCreate, "user", "u1", "req-1", "10.0.0.1", map[string]string{"role": "MANAGER"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	evt := store.events[0]
	if evt.ActorID != "anonymous" || evt.CreatedAt.Location() != time.UTC {
		t.Fatalf("unexpected event: %+v", evt)
	}
	if string(evt.Details) != `{"role":"MANAGER"}` {
		t.Fatalf("unexpected details: %s", evt.Details)
	}
}

func TestListStripsDetails(t *testing.T) {
	store := &sliceStore{}
	svc := New(store)
	ctx := context.Background()
	_ = svc.Record(ctx, "m1", ActionSurveyCreate, "survey", "s1", "", "", map[string]int{"roles": 2})
	_ = svc.Record(ctx, "m1", ActionSurveyDistribute, "survey", "s1", "", "", nil)

	events, err := svc.List(ctx, Filter{}, false, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 || events[0].Action != ActionSurveyDistribute {
		t.Fatalf("expected newest first, got %+v", events)
	}
	for _, evt := range events {
		if evt.Details != nil {
			t.Fatalf("details should be stripped: %s", evt.Details)
		}
	}

	if n, _ := svc.Count(ctx, Filter{Action: ActionSurveyCreate}); n != 1 {
		t.Fatalf("expected count 1, got %d", n)
	}

	withDetails, _ := svc.List(ctx, Filter{Action: ActionSurveyCreate}, true, 10, 0)
	if len(withDetails) != 1 || withDetails[0].Details == nil {
		t.Fatalf("expected details on request, got %+v", withDetails)
	}
}

func TestNilServiceIgnoresRecord(t *testing.T) {
	var svc *Service
	if err := svc.Record(context.Background(), "a", "b", "c", "d", "", "", nil); err != nil {
		t.Fatalf("nil service must be a no-op: %v", err)
	}
}
