package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"appraisal/internal/domain/appraisal"
)

type StoreAPI interface {
	CreateSurvey(ctx context.Context, survey appraisal.Survey) (string, error)
	SurveyByID(ctx context.Context, id string) (appraisal.Survey, error)
	ListSurveys(ctx context.Context, creatorID string) ([]appraisal.Survey, error)
	CreateTeam(ctx context.Context, team appraisal.Team) (string, error)
	TeamByID(ctx context.Context, id string) (appraisal.Team, error)
	UpdateTeamMembers(ctx context.Context, id string, members []string) error
	ListTeamsForMember(ctx context.Context, userID string) ([]appraisal.Team, error)
	CreateUser(ctx context.Context, user appraisal.User) (string, error)
	UserByID(ctx context.Context, id string) (appraisal.User, error)
	ListUsers(ctx context.Context, role appraisal.Role) ([]appraisal.User, error)
}

var ErrAlreadyMember = errors.New("user already a member of the team")

type SurveyInput struct {
	Name              string
	CreatorID         string
	RoleQuestionLists map[string][]appraisal.Question
}

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

func (s *Service) CreateSurvey(ctx context.Context, in SurveyInput) (appraisal.Survey, error) {
	var issues []appraisal.ValidationIssue
	if strings.TrimSpace(in.Name) == "" {
		issues = append(issues, appraisal.ValidationIssue{Field: "name", Reason: "is required"})
	}
	if strings.TrimSpace(in.CreatorID) == "" {
		issues = append(issues, appraisal.ValidationIssue{Field: "creatorId", Reason: "is required"})
	}
	if len(in.RoleQuestionLists) == 0 {
		issues = append(issues, appraisal.ValidationIssue{Field: "roleQuestionLists", Reason: "must contain at least one role"})
	}

	lists := make(map[appraisal.Role][]appraisal.Question, len(in.RoleQuestionLists))
	for key, questions := range in.RoleQuestionLists {
		role, err := appraisal.ParseRole(key)
		if err != nil {
			return appraisal.Survey{}, err
		}
		if _, dup := lists[role]; dup {
			issues = append(issues, appraisal.ValidationIssue{Field: "roleQuestionLists." + key, Reason: "duplicates role " + string(role)})
			continue
		}
		normalized := make([]appraisal.Question, 0, len(questions))
		for i, q := range questions {
			field := fmt.Sprintf("roleQuestionLists.%s[%d]", key, i)
			q.Text = strings.TrimSpace(q.Text)
			q.Category = strings.TrimSpace(q.Category)
			if q.Text == "" {
				issues = append(issues, appraisal.ValidationIssue{Field: field + ".question", Reason: "is required"})
			}
			if q.Category == "" || q.Category == appraisal.CategoryAll {
				issues = append(issues, appraisal.ValidationIssue{Field: field + ".category", Reason: "must name a category"})
			}
			if q.ID == "" {
				q.ID = uuid.NewString()
			}
			normalized = append(normalized, q)
		}
		lists[role] = normalized
	}
	if len(issues) > 0 {
		return appraisal.Survey{}, &appraisal.ValidationError{Issues: issues}
	}

	survey := appraisal.Survey{
		Name:              strings.TrimSpace(in.Name),
		CreatorID:         strings.TrimSpace(in.CreatorID),
		RoleQuestionLists: lists,
	}
	id, err := s.store.CreateSurvey(ctx, survey)
	if err != nil {
		return appraisal.Survey{}, &appraisal.StoreError{Op: "create survey", Err: err}
	}
	return s.SurveyByID(ctx, id)
}

func (s *Service) SurveyByID(ctx context.Context, id string) (appraisal.Survey, error) {
	survey, err := s.store.SurveyByID(ctx, id)
	if err != nil {
		return appraisal.Survey{}, classify("get survey", "survey", id, err)
	}
	return survey, nil
}

func (s *Service) ListSurveys(ctx context.Context, creatorID string) ([]appraisal.Survey, error) {
	surveys, err := s.store.ListSurveys(ctx, strings.TrimSpace(creatorID))
	if err != nil {
		return nil, &appraisal.StoreError{Op: "list surveys", Err: err}
	}
	if surveys == nil {
		surveys = []appraisal.Survey{}
	}
	return surveys, nil
}

func (s *Service) CreateTeam(ctx context.Context, name string, members []string) (appraisal.Team, error) {
	if strings.TrimSpace(name) == "" {
		return appraisal.Team{}, &appraisal.ValidationError{Issues: []appraisal.ValidationIssue{{Field: "name", Reason: "is required"}}}
	}
	team := appraisal.Team{Name: strings.TrimSpace(name), Members: dedupe(members)}
	id, err := s.store.CreateTeam(ctx, team)
	if err != nil {
		return appraisal.Team{}, &appraisal.StoreError{Op: "create team", Err: err}
	}
	team.ID = id
	return team, nil
}

func (s *Service) TeamByID(ctx context.Context, id string) (appraisal.Team, error) {
	team, err := s.store.TeamByID(ctx, id)
	if err != nil {
		return appraisal.Team{}, classify("get team", "team", id, err)
	}
	return team, nil
}

func (s *Service) AddMember(ctx context.Context, teamID, userID string) (appraisal.Team, error) {
	team, err := s.TeamByID(ctx, teamID)
	if err != nil {
		return appraisal.Team{}, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return appraisal.Team{}, &appraisal.ValidationError{Issues: []appraisal.ValidationIssue{{Field: "userId", Reason: "is required"}}}
	}
	if slices.Contains(team.Members, userID) {
		return appraisal.Team{}, ErrAlreadyMember
	}
	team.Members = append(team.Members, userID)
	if err := s.store.UpdateTeamMembers(ctx, teamID, team.Members); err != nil {
		return appraisal.Team{}, classify("update team", "team", teamID, err)
	}
	return team, nil
}

func (s *Service) RemoveMember(ctx context.Context, teamID, userID string) (appraisal.Team, error) {
	team, err := s.TeamByID(ctx, teamID)
	if err != nil {
		return appraisal.Team{}, err
	}
	team.Members = slices.DeleteFunc(team.Members, func(m string) bool { return m == userID })
	if err := s.store.UpdateTeamMembers(ctx, teamID, team.Members); err != nil {
		return appraisal.Team{}, classify("update team", "team", teamID, err)
	}
	return team, nil
}

func (s *Service) TeamsForMember(ctx context.Context, userID string) ([]appraisal.Team, error) {
	teams, err := s.store.ListTeamsForMember(ctx, userID)
	if err != nil {
		return nil, &appraisal.StoreError{Op: "list teams", Err: err}
	}
	if teams == nil {
		teams = []appraisal.Team{}
	}
	return teams, nil
}

func (s *Service) CreateUser(ctx context.Context, user appraisal.User) (appraisal.User, error) {
	if strings.TrimSpace(user.Name) == "" {
		return appraisal.User{}, &appraisal.ValidationError{Issues: []appraisal.ValidationIssue{{Field: "name", Reason: "is required"}}}
	}
	role, err := appraisal.ParseRole(string(user.Role))
	if err != nil {
		return appraisal.User{}, err
	}
	user.Name = strings.TrimSpace(user.Name)
	user.Email = strings.TrimSpace(user.Email)
	user.Role = role
	user.Teams = nil
	id, err := s.store.CreateUser(ctx, user)
	if err != nil {
		return appraisal.User{}, &appraisal.StoreError{Op: "create user", Err: err}
	}
	user.ID = id
	user.Teams = []string{}
	return user, nil
}

func (s *Service) UserByID(ctx context.Context, id string) (appraisal.User, error) {
	user, err := s.store.UserByID(ctx, id)
	if err != nil {
		return appraisal.User{}, classify("get user", "user", id, err)
	}
	return user, nil
}

// ListUsers returns every user, or only those holding role when it is set.
func (s *Service) ListUsers(ctx context.Context, role string) ([]appraisal.User, error) {
	var filter appraisal.Role
	if strings.TrimSpace(role) != "" {
		parsed, err := appraisal.ParseRole(role)
		if err != nil {
			return nil, err
		}
		filter = parsed
	}
	users, err := s.store.ListUsers(ctx, filter)
	if err != nil {
		return nil, &appraisal.StoreError{Op: "list users", Err: err}
	}
	if users == nil {
		users = []appraisal.User{}
	}
	return users, nil
}

func classify(op, entity, id string, err error) error {
	if errors.Is(err, appraisal.ErrNotFound) {
		return &appraisal.NotFoundError{Entity: entity, ID: id}
	}
	return &appraisal.StoreError{Op: op, Err: err}
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}
