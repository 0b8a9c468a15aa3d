package appraisal

import (
	"context"
	"time"
)

// StoreFilter is the equality filter pushed down to the answer list store.
// Empty strings and a nil IsCompleted match everything.
type StoreFilter struct {
	RevieweeID  string
	ReviewerID  string
	SurveyID    string
	Role        Role
	IsCompleted *bool
}

// AnswerListStore persists answer lists. Implementations must return an
// error wrapping ErrNotFound for absent ids and must write each list
// atomically. ListAnswerLists returns lists ordered by CreatedAt, then ID.
type AnswerListStore interface {
	CreateAnswerList(ctx context.Context, list AnswerList) (string, error)
	AnswerListByID(ctx context.Context, id string) (AnswerList, error)
	UpdateAnswerList(ctx context.Context, list AnswerList) error
	ListAnswerLists(ctx context.Context, filter StoreFilter) ([]AnswerList, error)
}

type SurveyCatalog interface {
	SurveyByID(ctx context.Context, id string) (Survey, error)
}

type TeamDirectory interface {
	MembersOf(ctx context.Context, teamID string) ([]string, error)
}

type UserDirectory interface {
	RoleOf(ctx context.Context, userID string) (Role, error)
}

// Observer receives engine telemetry. A nil Observer is valid.
type Observer interface {
	RecordDistribution(role Role, created, failed int, duration time.Duration)
	RecordSubmission(outcome string, duration time.Duration)
	RecordAggregation(kind string, lists int, duration time.Duration)
}
