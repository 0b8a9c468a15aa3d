package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"appraisal/internal/domain/appraisal"
)

func (s *Store) CreateSurvey(ctx context.Context, survey appraisal.Survey) (string, error) {
	listsJSON, err := json.Marshal(survey.RoleQuestionLists)
	if err != nil {
		return "", fmt.Errorf("encode question lists: %w", err)
	}
	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO surveys (name, creator_id, role_question_lists)
    VALUES ($1,$2,$3)
    RETURNING id::text
  `, survey.Name, survey.CreatorID, listsJSON).Scan(&id); err != nil {
		return "", fmt.Errorf("insert survey: %w", err)
	}
	return id, nil
}

func (s *Store) SurveyByID(ctx context.Context, id string) (appraisal.Survey, error) {
	if !validID(id) {
		return appraisal.Survey{}, notFound("survey", id)
	}
	row := s.DB.QueryRow(ctx, `
    SELECT id::text, name, creator_id, role_question_lists, created_at
    FROM surveys
    WHERE id = $1
  `, id)
	survey, err := scanSurvey(row)
	if err != nil {
		return appraisal.Survey{}, rowErr("survey", id, err)
	}
	return survey, nil
}

func (s *Store) ListSurveys(ctx context.Context, creatorID string) ([]appraisal.Survey, error) {
	query := `
    SELECT id::text, name, creator_id, role_question_lists, created_at
    FROM surveys
  `
	args := []any{}
	if creatorID != "" {
		query += " WHERE creator_id = $1"
		args = append(args, creatorID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query surveys: %w", err)
	}
	defer rows.Close()

	surveys := []appraisal.Survey{}
	for rows.Next() {
		survey, err := scanSurvey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan survey: %w", err)
		}
		surveys = append(surveys, survey)
	}
	return surveys, rows.Err()
}

func scanSurvey(row rowScanner) (appraisal.Survey, error) {
	var survey appraisal.Survey
	var listsJSON []byte
	if err := row.Scan(&survey.ID, &survey.Name, &survey.CreatorID, &listsJSON, &survey.CreatedAt); err != nil {
		return appraisal.Survey{}, err
	}
	if err := json.Unmarshal(listsJSON, &survey.RoleQuestionLists); err != nil {
		return appraisal.Survey{}, fmt.Errorf("decode question lists for %s: %w", survey.ID, err)
	}
	survey.CreatedAt = survey.CreatedAt.UTC()
	return survey, nil
}

func (s *Store) CreateTeam(ctx context.Context, team appraisal.Team) (string, error) {
	var id string
	if err := s.DB.QueryRow(ctx, "INSERT INTO teams (name) VALUES ($1) RETURNING id::text", team.Name).Scan(&id); err != nil {
		return "", fmt.Errorf("insert team: %w", err)
	}
	if err := s.replaceMembers(ctx, id, team.Members); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) TeamByID(ctx context.Context, id string) (appraisal.Team, error) {
	if !validID(id) {
		return appraisal.Team{}, notFound("team", id)
	}
	team := appraisal.Team{}
	if err := s.DB.QueryRow(ctx, "SELECT id::text, name FROM teams WHERE id = $1", id).Scan(&team.ID, &team.Name); err != nil {
		return appraisal.Team{}, rowErr("team", id, err)
	}
	members, err := s.teamMembers(ctx, id)
	if err != nil {
		return appraisal.Team{}, err
	}
	team.Members = members
	return team, nil
}

func (s *Store) MembersOf(ctx context.Context, teamID string) ([]string, error) {
	team, err := s.TeamByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return team.Members, nil
}

func (s *Store) UpdateTeamMembers(ctx context.Context, id string, members []string) error {
	if !validID(id) {
		return notFound("team", id)
	}
	var exists bool
	if err := s.DB.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM teams WHERE id = $1)", id).Scan(&exists); err != nil {
		return fmt.Errorf("lookup team: %w", err)
	}
	if !exists {
		return notFound("team", id)
	}
	return s.replaceMembers(ctx, id, members)
}

// replaceMembers rewrites the membership of a team in one statement batch.
// Positions keep the member order stable across reads.
func (s *Store) replaceMembers(ctx context.Context, teamID string, members []string) error {
	batch := &pgx.Batch{}
	batch.Queue("DELETE FROM team_members WHERE team_id = $1", teamID)
	for i, member := range members {
		batch.Queue("INSERT INTO team_members (team_id, user_id, position) VALUES ($1,$2,$3) ON CONFLICT DO NOTHING", teamID, member, i)
	}
	sender, ok := s.DB.(interface {
		SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	})
	if !ok {
		for _, q := range batch.QueuedQueries {
			if _, err := s.DB.Exec(ctx, q.SQL, q.Arguments...); err != nil {
				return fmt.Errorf("update team members: %w", err)
			}
		}
		return nil
	}
	if err := sender.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("update team members: %w", err)
	}
	return nil
}

func (s *Store) teamMembers(ctx context.Context, teamID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, "SELECT user_id FROM team_members WHERE team_id = $1 ORDER BY position, user_id", teamID)
	if err != nil {
		return nil, fmt.Errorf("query team members: %w", err)
	}
	members, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan team members: %w", err)
	}
	if members == nil {
		members = []string{}
	}
	return members, nil
}

func (s *Store) ListTeamsForMember(ctx context.Context, userID string) ([]appraisal.Team, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT t.id::text
    FROM teams t
    JOIN team_members m ON m.team_id = t.id
    WHERE m.user_id = $1
    ORDER BY t.created_at
  `, userID)
	if err != nil {
		return nil, fmt.Errorf("query member teams: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan member teams: %w", err)
	}
	teams := make([]appraisal.Team, 0, len(ids))
	for _, id := range ids {
		team, err := s.TeamByID(ctx, id)
		if err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}
	return teams, nil
}

func (s *Store) CreateUser(ctx context.Context, user appraisal.User) (string, error) {
	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO users (name, email, role)
    VALUES ($1,$2,$3)
    RETURNING id::text
  `, user.Name, user.Email, string(user.Role)).Scan(&id); err != nil {
		return "", fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

func (s *Store) UserByID(ctx context.Context, id string) (appraisal.User, error) {
	if !validID(id) {
		return appraisal.User{}, notFound("user", id)
	}
	var user appraisal.User
	var role string
	if err := s.DB.QueryRow(ctx, "SELECT id::text, name, email, role FROM users WHERE id = $1", id).Scan(&user.ID, &user.Name, &user.Email, &role); err != nil {
		return appraisal.User{}, rowErr("user", id, err)
	}
	user.Role = appraisal.Role(role)
	teams, err := s.userTeams(ctx, id)
	if err != nil {
		return appraisal.User{}, err
	}
	user.Teams = teams
	return user, nil
}

func (s *Store) ListUsers(ctx context.Context, role appraisal.Role) ([]appraisal.User, error) {
	query := "SELECT id::text, name, email, role FROM users"
	args := []any{}
	if role != "" {
		query += " WHERE role = $1"
		args = append(args, string(role))
	}
	query += " ORDER BY created_at"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []appraisal.User{}
	for rows.Next() {
		var user appraisal.User
		var r string
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &r); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		user.Role = appraisal.Role(r)
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	for i := range users {
		teams, err := s.userTeams(ctx, users[i].ID)
		if err != nil {
			return nil, err
		}
		users[i].Teams = teams
	}
	return users, nil
}

func (s *Store) RoleOf(ctx context.Context, userID string) (appraisal.Role, error) {
	if !validID(userID) {
		return "", notFound("user", userID)
	}
	var role string
	if err := s.DB.QueryRow(ctx, "SELECT role FROM users WHERE id = $1", userID).Scan(&role); err != nil {
		return "", rowErr("user", userID, err)
	}
	return appraisal.Role(role), nil
}

func (s *Store) userTeams(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, "SELECT team_id::text FROM team_members WHERE user_id = $1 ORDER BY team_id", userID)
	if err != nil {
		return nil, fmt.Errorf("query user teams: %w", err)
	}
	teams, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan user teams: %w", err)
	}
	if teams == nil {
		teams = []string{}
	}
	return teams, nil
}
