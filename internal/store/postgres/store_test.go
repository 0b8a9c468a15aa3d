package postgres

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"appraisal/internal/domain/appraisal"
	"appraisal/internal/domain/audit"
	"appraisal/internal/platform/db"
	"appraisal/internal/platform/idempotency"
	"appraisal/migrations"
)

func TestBuildAnswerListQuery(t *testing.T) {
	completed := false
	query, args := buildAnswerListQuery(appraisal.StoreFilter{
		RevieweeID:  "u1",
		Role:        appraisal.RoleManager,
		IsCompleted: &completed,
	})
	for _, part := range []string{"reviewee_id = $1", "role = $2", "is_completed = $3", "ORDER BY created_at, id"} {
		if !strings.Contains(query, part) {
			t.Fatalf("expected %q in query: %s", part, query)
		}
	}
	where := query[strings.Index(query, " WHERE "):]
	if strings.Contains(where, "reviewer_id =") || strings.Contains(where, "survey_id =") {
		t.Fatalf("unset filters must not appear: %s", where)
	}
	if len(args) != 3 || args[1] != "MANAGER" || args[2] != false {
		t.Fatalf("unexpected args: %#v", args)
	}
}

func TestNonUUIDIsNotFound(t *testing.T) {
	s := NewStore(nil)
	if _, err := s.SurveyByID(context.Background(), "not-a-uuid"); !errors.Is(err, appraisal.ErrNotFound) {
		t.Fatalf("expected not found without touching the database, got %v", err)
	}
	if _, err := s.AnswerListByID(context.Background(), "x"); !errors.Is(err, appraisal.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

// testPool connects to TEST_DATABASE_URL and applies migrations. Tests that
// need it are skipped when the variable is unset.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	if _, err := db.Migrate(ctx, pool, migrations.FS); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

func TestStoreRoundTrip(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	s := NewStore(pool)

	surveyID, err := s.CreateSurvey(ctx, appraisal.Survey{
		Name:      "Integration",
		CreatorID: "m1",
		RoleQuestionLists: map[appraisal.Role][]appraisal.Question{
			appraisal.RoleDeveloper: {{ID: "q1", Text: "Reviews code", Category: appraisal.CategoryTechnicalProficiency}},
		},
	})
	if err != nil {
		t.Fatalf("create survey: %v", err)
	}
	survey, err := s.SurveyByID(ctx, surveyID)
	if err != nil {
		t.Fatalf("get survey: %v", err)
	}
	if qs, ok := survey.QuestionsFor(appraisal.RoleDeveloper); !ok || qs[0].Text != "Reviews code" {
		t.Fatalf("question lists not round-tripped: %+v", survey.RoleQuestionLists)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	reviewee := "reviewee-" + surveyID
	listID, err := s.CreateAnswerList(ctx, appraisal.AnswerList{
		SurveyID:   surveyID,
		ReviewerID: "r1",
		RevieweeID: reviewee,
		Role:       appraisal.RoleDeveloper,
		Answers:    []appraisal.AnswerEntry{{Question: "Reviews code", Category: appraisal.CategoryTechnicalProficiency}},
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("create list: %v", err)
	}

	list, err := s.AnswerListByID(ctx, listID)
	if err != nil {
		t.Fatalf("get list: %v", err)
	}
	if !list.Answers[0].Answer.IsNull() {
		t.Fatalf("expected null answer, got %v", list.Answers[0].Answer)
	}
	list.Answers[0].Answer = appraisal.NumberAnswer(4)
	list.IsCompleted = true
	if err := s.UpdateAnswerList(ctx, list); err != nil {
		t.Fatalf("update: %v", err)
	}

	completed := true
	lists, err := s.ListAnswerLists(ctx, appraisal.StoreFilter{RevieweeID: reviewee, IsCompleted: &completed})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(lists) != 1 {
		t.Fatalf("expected 1 completed list, got %d", len(lists))
	}
	if v, ok := lists[0].Answers[0].Answer.Number(); !ok || v != 4 {
		t.Fatalf("expected answer 4, got %v", lists[0].Answers[0].Answer)
	}
}

func TestStoreTeamsUsersAndReplies(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	s := NewStore(pool)

	uid, err := s.CreateUser(ctx, appraisal.User{Name: "Linus", Email: "l@example.com", Role: appraisal.RoleRequirementEngineer})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	tid, err := s.CreateTeam(ctx, appraisal.Team{Name: "Kernel", Members: []string{uid, "external"}})
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	members, err := s.MembersOf(ctx, tid)
	if err != nil || len(members) != 2 || members[0] != uid {
		t.Fatalf("members: %v, %v", members, err)
	}
	if err := s.UpdateTeamMembers(ctx, tid, []string{"external"}); err != nil {
		t.Fatalf("update members: %v", err)
	}
	user, err := s.UserByID(ctx, uid)
	if err != nil || len(user.Teams) != 0 {
		t.Fatalf("user teams after removal: %+v, %v", user, err)
	}
	role, err := s.RoleOf(ctx, uid)
	if err != nil || role != appraisal.RoleRequirementEngineer {
		t.Fatalf("role: %q, %v", role, err)
	}

	key := "key-" + tid
	if err := s.SaveIdempotency(ctx, "scope", key, idempotency.Record{RequestHash: "a", Status: 201, Body: []byte("{}")}); err != nil {
		t.Fatalf("save reply: %v", err)
	}
	if err := s.SaveIdempotency(ctx, "scope", key, idempotency.Record{RequestHash: "b", Status: 201}); !errors.Is(err, idempotency.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	rec, ok, err := s.LookupIdempotency(ctx, "scope", key)
	if err != nil || !ok || rec.Status != 201 {
		t.Fatalf("lookup: %+v %v %v", rec, ok, err)
	}
}

func TestBuildAuditQuery(t *testing.T) {
	query, args := buildAuditQuery("SELECT COUNT(1)", audit.Filter{Action: "team.create", ActorID: "m1"})
	for _, part := range []string{"action = $1", "actor_id = $2"} {
		if !strings.Contains(query, part) {
			t.Fatalf("expected %q in query: %s", part, query)
		}
	}
	if strings.Contains(query, "entity_type") || len(args) != 2 {
		t.Fatalf("unexpected query %s args %#v", query, args)
	}
}

func TestAuditAndPurge(t *testing.T) {
	pool := testPool(t)
	s := NewStore(pool)
	ctx := context.Background()
	entity := "e-" + time.Now().Format("150405.000000")

	if err := s.AppendAudit(ctx, audit.Event{
		ActorID: "m1", Action: "team.create", EntityType: "team", EntityID: entity,
		CreatedAt: time.Now().UTC(), Details: []byte(`{"members":[]}`),
	}); err != nil {
		t.Fatalf("append: %v", err)
	}
	events, err := s.ListAudit(ctx, audit.Filter{EntityID: entity}, 10, 0)
	if err != nil || len(events) != 1 {
		t.Fatalf("list: %v %+v", err, events)
	}
	if events[0].ID == "" || len(events[0].Details) == 0 {
		t.Fatalf("unexpected event: %+v", events[0])
	}
	if n, err := s.CountAudit(ctx, audit.Filter{EntityID: entity}); err != nil || n != 1 {
		t.Fatalf("count: %d %v", n, err)
	}

	key := "purge-" + entity
	if err := s.SaveIdempotency(ctx, "scope", key, idempotency.Record{RequestHash: "a", Status: 201, Body: []byte("{}")}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := s.PurgeIdempotency(ctx, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if _, ok, _ := s.LookupIdempotency(ctx, "scope", key); ok {
		t.Fatal("expected reply purged")
	}
}
