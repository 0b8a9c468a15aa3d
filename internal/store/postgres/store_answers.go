package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"appraisal/internal/domain/appraisal"
)

const answerListColumns = "id::text, survey_id, reviewer_id, reviewee_id, role, answers, is_completed, created_at, updated_at"

func (s *Store) CreateAnswerList(ctx context.Context, list appraisal.AnswerList) (string, error) {
	answersJSON, err := json.Marshal(entriesOrEmpty(list.Answers))
	if err != nil {
		return "", fmt.Errorf("encode answers: %w", err)
	}
	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO answer_lists (survey_id, reviewer_id, reviewee_id, role, answers, is_completed, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING id::text
  `, list.SurveyID, list.ReviewerID, list.RevieweeID, string(list.Role), answersJSON, list.IsCompleted, list.CreatedAt, list.UpdatedAt).Scan(&id); err != nil {
		return "", fmt.Errorf("insert answer list: %w", err)
	}
	return id, nil
}

func (s *Store) AnswerListByID(ctx context.Context, id string) (appraisal.AnswerList, error) {
	if !validID(id) {
		return appraisal.AnswerList{}, notFound("answer list", id)
	}
	row := s.DB.QueryRow(ctx, "SELECT "+answerListColumns+" FROM answer_lists WHERE id = $1", id)
	list, err := scanAnswerList(row)
	if err != nil {
		return appraisal.AnswerList{}, rowErr("answer list", id, err)
	}
	return list, nil
}

func (s *Store) UpdateAnswerList(ctx context.Context, list appraisal.AnswerList) error {
	if !validID(list.ID) {
		return notFound("answer list", list.ID)
	}
	answersJSON, err := json.Marshal(entriesOrEmpty(list.Answers))
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	tag, err := s.DB.Exec(ctx, `
    UPDATE answer_lists
    SET answers = $1, is_completed = $2, updated_at = $3
    WHERE id = $4
  `, answersJSON, list.IsCompleted, list.UpdatedAt, list.ID)
	if err != nil {
		return fmt.Errorf("update answer list: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("answer list", list.ID)
	}
	return nil
}

func (s *Store) ListAnswerLists(ctx context.Context, filter appraisal.StoreFilter) ([]appraisal.AnswerList, error) {
	query, args := buildAnswerListQuery(filter)
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query answer lists: %w", err)
	}
	defer rows.Close()

	lists := []appraisal.AnswerList{}
	for rows.Next() {
		list, err := scanAnswerList(rows)
		if err != nil {
			return nil, fmt.Errorf("scan answer list: %w", err)
		}
		lists = append(lists, list)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answer lists: %w", err)
	}
	return lists, nil
}

func buildAnswerListQuery(filter appraisal.StoreFilter) (string, []any) {
	query := "SELECT " + answerListColumns + " FROM answer_lists WHERE 1=1"
	args := []any{}
	if filter.RevieweeID != "" {
		args = append(args, filter.RevieweeID)
		query += fmt.Sprintf(" AND reviewee_id = $%d", len(args))
	}
	if filter.ReviewerID != "" {
		args = append(args, filter.ReviewerID)
		query += fmt.Sprintf(" AND reviewer_id = $%d", len(args))
	}
	if filter.SurveyID != "" {
		args = append(args, filter.SurveyID)
		query += fmt.Sprintf(" AND survey_id = $%d", len(args))
	}
	if filter.Role != "" {
		args = append(args, string(filter.Role))
		query += fmt.Sprintf(" AND role = $%d", len(args))
	}
	if filter.IsCompleted != nil {
		args = append(args, *filter.IsCompleted)
		query += fmt.Sprintf(" AND is_completed = $%d", len(args))
	}
	query += " ORDER BY created_at, id"
	return query, args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnswerList(row rowScanner) (appraisal.AnswerList, error) {
	var list appraisal.AnswerList
	var role string
	var answersJSON []byte
	if err := row.Scan(&list.ID, &list.SurveyID, &list.ReviewerID, &list.RevieweeID, &role, &answersJSON, &list.IsCompleted, &list.CreatedAt, &list.UpdatedAt); err != nil {
		return appraisal.AnswerList{}, err
	}
	list.Role = appraisal.Role(role)
	if err := json.Unmarshal(answersJSON, &list.Answers); err != nil {
		return appraisal.AnswerList{}, fmt.Errorf("decode answers for %s: %w", list.ID, err)
	}
	list.CreatedAt = list.CreatedAt.UTC()
	list.UpdatedAt = list.UpdatedAt.UTC()
	return list, nil
}

func entriesOrEmpty(entries []appraisal.AnswerEntry) []appraisal.AnswerEntry {
	if entries == nil {
		return []appraisal.AnswerEntry{}
	}
	return entries
}
