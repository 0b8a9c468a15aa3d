package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"appraisal/internal/domain/appraisal"
	"appraisal/internal/domain/audit"
	"appraisal/internal/platform/idempotency"
)

func TestAnswerListReadsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	id, err := s.CreateAnswerList(ctx, appraisal.AnswerList{
		RevieweeID: "u1",
		Answers:    []appraisal.AnswerEntry{{Question: "Q1", Category: appraisal.CategoryCommunication}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	list, err := s.AnswerListByID(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	list.Answers[0].Question = "mutated"

	again, _ := s.AnswerListByID(ctx, id)
	if again.Answers[0].Question != "Q1" {
		t.Fatalf("stored list changed through a read copy: %q", again.Answers[0].Question)
	}
}

func TestListAnswerListsFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, reviewee := range []string{"u2", "u1", "u1"} {
		if _, err := s.CreateAnswerList(ctx, appraisal.AnswerList{
			RevieweeID:  reviewee,
			IsCompleted: i != 2,
			CreatedAt:   base.Add(time.Duration(3-i) * time.Hour),
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	completed := true
	lists, err := s.ListAnswerLists(ctx, appraisal.StoreFilter{RevieweeID: "u1", IsCompleted: &completed})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(lists) != 1 {
		t.Fatalf("expected 1 completed list for u1, got %d", len(lists))
	}

	all, _ := s.ListAnswerLists(ctx, appraisal.StoreFilter{})
	for i := 1; i < len(all); i++ {
		if all[i].CreatedAt.Before(all[i-1].CreatedAt) {
			t.Fatalf("lists not ordered by creation time")
		}
	}
}

func TestUpdateMissingListIsNotFound(t *testing.T) {
	err := New().UpdateAnswerList(context.Background(), appraisal.AnswerList{ID: "missing"})
	if !errors.Is(err, appraisal.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTeamsAndUsers(t *testing.T) {
	ctx := context.Background()
	s := New()
	uid, err := s.CreateUser(ctx, appraisal.User{Name: "Ada", Role: appraisal.RoleDeveloper})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	tid, err := s.CreateTeam(ctx, appraisal.Team{Name: "Core", Members: []string{uid}})
	if err != nil {
		t.Fatalf("create team: %v", err)
	}

	user, err := s.UserByID(ctx, uid)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if len(user.Teams) != 1 || user.Teams[0] != tid {
		t.Fatalf("expected user in team %s, got %v", tid, user.Teams)
	}
	role, err := s.RoleOf(ctx, uid)
	if err != nil || role != appraisal.RoleDeveloper {
		t.Fatalf("expected developer role, got %q (%v)", role, err)
	}

	if err := s.UpdateTeamMembers(ctx, tid, nil); err != nil {
		t.Fatalf("update members: %v", err)
	}
	teams, _ := s.ListTeamsForMember(ctx, uid)
	if len(teams) != 0 {
		t.Fatalf("expected no teams after removal, got %d", len(teams))
	}
	managers, _ := s.ListUsers(ctx, appraisal.RoleManager)
	if len(managers) != 0 {
		t.Fatalf("expected no managers, got %d", len(managers))
	}
}

func TestListSurveysNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	first, _ := s.CreateSurvey(ctx, appraisal.Survey{Name: "first", CreatorID: "m1"})
	second, _ := s.CreateSurvey(ctx, appraisal.Survey{Name: "second", CreatorID: "m2"})

	surveys, err := s.ListSurveys(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(surveys) != 2 || surveys[0].ID != second || surveys[1].ID != first {
		t.Fatalf("unexpected order: %+v", surveys)
	}
	mine, _ := s.ListSurveys(ctx, "m1")
	if len(mine) != 1 || mine[0].ID != first {
		t.Fatalf("creator filter failed: %+v", mine)
	}
}

func TestIdempotencyRecords(t *testing.T) {
	ctx := context.Background()
	s := New()
	rec := idempotency.Record{RequestHash: "h1", Status: 201, Body: []byte(`{"ok":true}`)}
	if err := s.SaveIdempotency(ctx, "POST /x", "k1", rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := s.LookupIdempotency(ctx, "POST /x", "k1")
	if err != nil || !ok {
		t.Fatalf("lookup: ok=%v err=%v", ok, err)
	}
	if got.Status != 201 || string(got.Body) != `{"ok":true}` {
		t.Fatalf("unexpected record: %+v", got)
	}
	if _, ok, _ := s.LookupIdempotency(ctx, "POST /y", "k1"); ok {
		t.Fatal("keys must be scoped")
	}
	err = s.SaveIdempotency(ctx, "POST /x", "k1", idempotency.Record{RequestHash: "h2", Status: 201})
	if !errors.Is(err, idempotency.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestPurgeIdempotencyDropsOldReplies(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	if err := s.SaveIdempotency(ctx, "a", "old", idempotency.Record{RequestHash: "h", Status: 201}); err != nil {
		t.Fatalf("save old: %v", err)
	}
	s.now = func() time.Time { return base.Add(2 * time.Hour) }
	if err := s.SaveIdempotency(ctx, "a", "new", idempotency.Record{RequestHash: "h", Status: 201}); err != nil {
		t.Fatalf("save new: %v", err)
	}

	removed, err := s.PurgeIdempotency(ctx, base.Add(time.Hour))
	if err != nil || removed != 1 {
		t.Fatalf("expected 1 removed, got %d err=%v", removed, err)
	}
	if _, ok, _ := s.LookupIdempotency(ctx, "a", "old"); ok {
		t.Fatal("old reply should be purged")
	}
	if _, ok, _ := s.LookupIdempotency(ctx, "a", "new"); !ok {
		t.Fatal("new reply should survive")
	}
}

func TestAuditNewestFirstWithFilter(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, action := range []string{"survey.create", "user.create", "survey.create"} {
		if err := s.AppendAudit(ctx, audit.Event{Action: action, EntityType: "x", EntityID: action}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	events, err := s.ListAudit(ctx, audit.Filter{Action: "survey.create"}, 1, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 || events[0].ID == "" {
		t.Fatalf("unexpected page: %+v", events)
	}
	all, _ := s.ListAudit(ctx, audit.Filter{}, 0, 0)
	if len(all) != 3 || all[0].Action != "survey.create" || all[1].Action != "user.create" {
		t.Fatalf("expected newest first, got %+v", all)
	}
	if n, _ := s.CountAudit(ctx, audit.Filter{EntityType: "x"}); n != 3 {
		t.Fatalf("expected count 3, got %d", n)
	}
}
