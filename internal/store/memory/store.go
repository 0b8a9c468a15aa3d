// Package memory is an in-process implementation of the appraisal and
// catalog stores. Every read returns a deep copy, so callers can never
// mutate stored documents without going through an update call.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"appraisal/internal/domain/appraisal"
	"appraisal/internal/domain/audit"
)

type Store struct {
	mu          sync.RWMutex
	answerLists map[string]appraisal.AnswerList
	surveys     map[string]appraisal.Survey
	surveyOrder []string
	teams       map[string]appraisal.Team
	teamOrder   []string
	users       map[string]appraisal.User
	userOrder   []string
	replies     map[string]savedReply
	audit       []audit.Event
	now         func() time.Time
}

func New() *Store {
	return &Store{
		answerLists: map[string]appraisal.AnswerList{},
		surveys:     map[string]appraisal.Survey{},
		teams:       map[string]appraisal.Team{},
		users:       map[string]appraisal.User{},
		replies:     map[string]savedReply{},
		now:         time.Now,
	}
}

func notFound(entity, id string) error {
	return fmt.Errorf("%s %s: %w", entity, id, appraisal.ErrNotFound)
}

func (s *Store) CreateAnswerList(ctx context.Context, list appraisal.AnswerList) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	list.ID = uuid.NewString()
	s.mu.Lock()
	s.answerLists[list.ID] = cloneAnswerList(list)
	s.mu.Unlock()
	return list.ID, nil
}

func (s *Store) AnswerListByID(ctx context.Context, id string) (appraisal.AnswerList, error) {
	if err := ctx.Err(); err != nil {
		return appraisal.AnswerList{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	list, ok := s.answerLists[id]
	if !ok {
		return appraisal.AnswerList{}, notFound("answer list", id)
	}
	return cloneAnswerList(list), nil
}

func (s *Store) UpdateAnswerList(ctx context.Context, list appraisal.AnswerList) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.answerLists[list.ID]; !ok {
		return notFound("answer list", list.ID)
	}
	s.answerLists[list.ID] = cloneAnswerList(list)
	return nil
}

func (s *Store) ListAnswerLists(ctx context.Context, filter appraisal.StoreFilter) ([]appraisal.AnswerList, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]appraisal.AnswerList, 0)
	for _, list := range s.answerLists {
		if matches(list, filter) {
			out = append(out, cloneAnswerList(list))
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func matches(list appraisal.AnswerList, f appraisal.StoreFilter) bool {
	if f.RevieweeID != "" && list.RevieweeID != f.RevieweeID {
		return false
	}
	if f.ReviewerID != "" && list.ReviewerID != f.ReviewerID {
		return false
	}
	if f.SurveyID != "" && list.SurveyID != f.SurveyID {
		return false
	}
	if f.Role != "" && list.Role != f.Role {
		return false
	}
	if f.IsCompleted != nil && list.IsCompleted != *f.IsCompleted {
		return false
	}
	return true
}

func (s *Store) CreateSurvey(ctx context.Context, survey appraisal.Survey) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	survey.ID = uuid.NewString()
	if survey.CreatedAt.IsZero() {
		survey.CreatedAt = nowUTC()
	}
	s.mu.Lock()
	s.surveys[survey.ID] = cloneSurvey(survey)
	s.surveyOrder = append(s.surveyOrder, survey.ID)
	s.mu.Unlock()
	return survey.ID, nil
}

// PutSurvey stores survey under its own id, replacing any previous version.
func (s *Store) PutSurvey(survey appraisal.Survey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.surveys[survey.ID]; !ok {
		s.surveyOrder = append(s.surveyOrder, survey.ID)
	}
	s.surveys[survey.ID] = cloneSurvey(survey)
}

func (s *Store) SurveyByID(ctx context.Context, id string) (appraisal.Survey, error) {
	if err := ctx.Err(); err != nil {
		return appraisal.Survey{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	survey, ok := s.surveys[id]
	if !ok {
		return appraisal.Survey{}, notFound("survey", id)
	}
	return cloneSurvey(survey), nil
}

// ListSurveys returns surveys newest first.
func (s *Store) ListSurveys(ctx context.Context, creatorID string) ([]appraisal.Survey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []appraisal.Survey{}
	for i := len(s.surveyOrder) - 1; i >= 0; i-- {
		survey := s.surveys[s.surveyOrder[i]]
		if creatorID == "" || survey.CreatorID == creatorID {
			out = append(out, cloneSurvey(survey))
		}
	}
	return out, nil
}

func (s *Store) CreateTeam(ctx context.Context, team appraisal.Team) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	team.ID = uuid.NewString()
	team.Members = slices.Clone(team.Members)
	s.mu.Lock()
	s.teams[team.ID] = team
	s.teamOrder = append(s.teamOrder, team.ID)
	s.mu.Unlock()
	return team.ID, nil
}

func (s *Store) TeamByID(ctx context.Context, id string) (appraisal.Team, error) {
	if err := ctx.Err(); err != nil {
		return appraisal.Team{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	team, ok := s.teams[id]
	if !ok {
		return appraisal.Team{}, notFound("team", id)
	}
	team.Members = slices.Clone(team.Members)
	return team, nil
}

func (s *Store) UpdateTeamMembers(ctx context.Context, id string, members []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	team, ok := s.teams[id]
	if !ok {
		return notFound("team", id)
	}
	team.Members = slices.Clone(members)
	s.teams[id] = team
	return nil
}

func (s *Store) ListTeamsForMember(ctx context.Context, userID string) ([]appraisal.Team, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []appraisal.Team{}
	for _, id := range s.teamOrder {
		team := s.teams[id]
		if slices.Contains(team.Members, userID) {
			team.Members = slices.Clone(team.Members)
			out = append(out, team)
		}
	}
	return out, nil
}

func (s *Store) MembersOf(ctx context.Context, teamID string) ([]string, error) {
	team, err := s.TeamByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return team.Members, nil
}

func (s *Store) CreateUser(ctx context.Context, user appraisal.User) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	user.ID = uuid.NewString()
	user.Teams = nil
	s.mu.Lock()
	s.users[user.ID] = user
	s.userOrder = append(s.userOrder, user.ID)
	s.mu.Unlock()
	return user.ID, nil
}

func (s *Store) UserByID(ctx context.Context, id string) (appraisal.User, error) {
	if err := ctx.Err(); err != nil {
		return appraisal.User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return appraisal.User{}, notFound("user", id)
	}
	user.Teams = s.teamsOfLocked(id)
	return user, nil
}

func (s *Store) ListUsers(ctx context.Context, role appraisal.Role) ([]appraisal.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []appraisal.User{}
	for _, id := range s.userOrder {
		user := s.users[id]
		if role != "" && user.Role != role {
			continue
		}
		user.Teams = s.teamsOfLocked(id)
		out = append(out, user)
	}
	return out, nil
}

func (s *Store) RoleOf(ctx context.Context, userID string) (appraisal.Role, error) {
	user, err := s.UserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Role, nil
}

func (s *Store) teamsOfLocked(userID string) []string {
	ids := []string{}
	for _, id := range s.teamOrder {
		if slices.Contains(s.teams[id].Members, userID) {
			ids = append(ids, id)
		}
	}
	return ids
}
