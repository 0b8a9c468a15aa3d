package catalog_test

import (
	"context"
	"errors"
	"testing"

	"appraisal/internal/domain/appraisal"
	"appraisal/internal/domain/catalog"
	"appraisal/internal/store/memory"
)

func TestCreateSurvey(t *testing.T) {
	svc := catalog.NewService(memory.New())
	survey, err := svc.CreateSurvey(context.Background(), catalog.SurveyInput{
		Name:      " Spring review ",
		CreatorID: "m1",
		RoleQuestionLists: map[string][]appraisal.Question{
			"dev": {{Text: "Writes tests", Category: appraisal.CategoryTechnicalProficiency}},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if survey.ID == "" || survey.Name != "Spring review" {
		t.Fatalf("unexpected survey: %+v", survey)
	}
	questions, ok := survey.QuestionsFor(appraisal.RoleDeveloper)
	if !ok || len(questions) != 1 || questions[0].ID == "" {
		t.Fatalf("expected developer list with generated question id, got %+v", survey.RoleQuestionLists)
	}
}

func TestCreateSurveyValidation(t *testing.T) {
	svc := catalog.NewService(memory.New())
	ctx := context.Background()

	_, err := svc.CreateSurvey(ctx, catalog.SurveyInput{
		RoleQuestionLists: map[string][]appraisal.Question{
			"MANAGER": {{Text: "", Category: appraisal.CategoryAll}},
		},
	})
	var verr *appraisal.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(verr.Issues) != 4 {
		t.Fatalf("expected name, creator, question and category issues, got %+v", verr.Issues)
	}

	_, err = svc.CreateSurvey(ctx, catalog.SurveyInput{
		Name: "x", CreatorID: "m1",
		RoleQuestionLists: map[string][]appraisal.Question{"INTERN": {}},
	})
	if !errors.Is(err, appraisal.ErrInvalidRole) {
		t.Fatalf("expected invalid role, got %v", err)
	}

	_, err = svc.CreateSurvey(ctx, catalog.SurveyInput{
		Name: "x", CreatorID: "m1",
		RoleQuestionLists: map[string][]appraisal.Question{
			"DEV":       {{Text: "a", Category: appraisal.CategoryCommunication}},
			"DEVELOPER": {{Text: "b", Category: appraisal.CategoryCommunication}},
		},
	})
	if !errors.Is(err, appraisal.ErrValidation) {
		t.Fatalf("expected duplicate role to be rejected, got %v", err)
	}
}

func TestTeamMembership(t *testing.T) {
	svc := catalog.NewService(memory.New())
	ctx := context.Background()

	team, err := svc.CreateTeam(ctx, "Platform", []string{"u1", "u1", " ", "u2"})
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	if len(team.Members) != 2 {
		t.Fatalf("expected deduplicated members, got %v", team.Members)
	}

	team, err = svc.AddMember(ctx, team.ID, "u3")
	if err != nil || len(team.Members) != 3 {
		t.Fatalf("add member: %v, %v", team.Members, err)
	}
	if _, err := svc.AddMember(ctx, team.ID, "u3"); !errors.Is(err, catalog.ErrAlreadyMember) {
		t.Fatalf("expected already member, got %v", err)
	}
	team, err = svc.RemoveMember(ctx, team.ID, "u1")
	if err != nil || len(team.Members) != 2 {
		t.Fatalf("remove member: %v, %v", team.Members, err)
	}

	teams, err := svc.TeamsForMember(ctx, "u3")
	if err != nil || len(teams) != 1 {
		t.Fatalf("teams for member: %v, %v", teams, err)
	}
	if _, err := svc.TeamByID(ctx, "missing"); !errors.Is(err, appraisal.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.CreateTeam(ctx, " ", nil); !errors.Is(err, appraisal.ErrValidation) {
		t.Fatalf("expected name to be required, got %v", err)
	}
}

func TestUsers(t *testing.T) {
	svc := catalog.NewService(memory.New())
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, appraisal.User{Name: "Grace", Role: "re"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.Role != appraisal.RoleRequirementEngineer || user.Teams == nil {
		t.Fatalf("unexpected user: %+v", user)
	}
	if _, err := svc.CreateUser(ctx, appraisal.User{Name: "Bob", Role: "CTO"}); !errors.Is(err, appraisal.ErrInvalidRole) {
		t.Fatalf("expected invalid role, got %v", err)
	}

	res, err := svc.ListUsers(ctx, "REQUIREMENT_ENGINEER")
	if err != nil || len(res) != 1 {
		t.Fatalf("list by role: %v, %v", res, err)
	}
	all, _ := svc.ListUsers(ctx, "")
	if len(all) != 1 {
		t.Fatalf("expected 1 user, got %d", len(all))
	}
	if _, err := svc.UserByID(ctx, "missing"); !errors.Is(err, appraisal.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
