// Package audit keeps an append-only trail of who distributed surveys,
// submitted answers and changed the catalog.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	ActionSurveyCreate     = "survey.create"
	ActionSurveyDistribute = "survey.distribute"
	ActionAnswersSubmit    = "answers.submit"
	ActionTeamCreate       = "team.create"
	ActionTeamMemberAdd    = "team.member.add"
	ActionTeamMemberRemove = "team.member.remove"
	ActionUserCreate       = "user.create"
)

type Event struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actorId"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	RequestID  string          `json:"requestId"`
	IP         string          `json:"ip"`
	CreatedAt  time.Time       `json:"createdAt"`
	Details    json.RawMessage `json:"details,omitempty"`
}

type Filter struct {
	Action     string
	EntityType string
	EntityID   string
	ActorID    string
}

// Store appends and reads events. ListAudit returns newest first; limit 0
// means no limit.
type Store interface {
	AppendAudit(ctx context.Context, evt Event) error
	ListAudit(ctx context.Context, filter Filter, limit, offset int) ([]Event, error)
	CountAudit(ctx context.Context, filter Filter) (int, error)
}

type Service struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Record appends one event. A nil Service records nothing.
func (s *Service) Record(ctx context.Context, actorID, action, entityType, entityID, requestID, ip string, details any) error {
	if s == nil || s.store == nil {
		return nil
	}
	var detailsJSON []byte
	if details != nil {
		payload, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("encode audit details: %w", err)
		}
		detailsJSON = payload
	}
	if strings.TrimSpace(actorID) == "" {
		actorID = "anonymous"
	}
	return s.store.AppendAudit(ctx, Event{
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		RequestID:  requestID,
		IP:         ip,
		CreatedAt:  s.now().UTC(),
		Details:    detailsJSON,
	})
}

func (s *Service) Count(ctx context.Context, filter Filter) (int, error) {
	return s.store.CountAudit(ctx, filter)
}

func (s *Service) List(ctx context.Context, filter Filter, includeDetails bool, limit, offset int) ([]Event, error) {
	events, err := s.store.ListAudit(ctx, filter, limit, offset)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []Event{}
	}
	if !includeDetails {
		for i := range events {
			events[i].Details = nil
		}
	}
	return events, nil
}

func (s *Service) ListExport(ctx context.Context, filter Filter) ([]Event, error) {
	return s.List(ctx, filter, false, 0, 0)
}
