package appraisal

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidRole         = errors.New("invalid role")
	ErrValidation          = errors.New("validation failed")
	ErrPartialDistribution = errors.New("distribution partially failed")
	ErrStore               = errors.New("store operation failed")
)

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

type InvalidRoleError struct {
	Value string
}

func (e *InvalidRoleError) Error() string {
	return fmt.Sprintf("invalid role %q", e.Value)
}

func (e *InvalidRoleError) Is(target error) bool {
	return target == ErrInvalidRole
}

type ValidationIssue struct {
	Field    string `json:"field"`
	Question string `json:"question,omitempty"`
	Reason   string `json:"reason"`
}

type ValidationError struct {
	Issues []ValidationIssue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Field+" "+issue.Reason)
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// PartialDistributionError is returned alongside a DistributionResult when at
// least one reviewer failed. Created may be empty when every reviewer failed.
type PartialDistributionError struct {
	Created []string
	Failed  []DistributionFailure
}

func (e *PartialDistributionError) Error() string {
	ids := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		ids = append(ids, f.ReviewerID)
	}
	return fmt.Sprintf("distribution failed for %d of %d reviewers: %s",
		len(e.Failed), len(e.Failed)+len(e.Created), strings.Join(ids, ", "))
}

func (e *PartialDistributionError) Is(target error) bool {
	return target == ErrPartialDistribution
}

type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

// storeErr classifies an error from a collaborator: absent rows become a
// NotFoundError for entity/id, anything else is wrapped as a StoreError.
func storeErr(op, entity, id string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return &NotFoundError{Entity: entity, ID: id}
	}
	return &StoreError{Op: op, Err: err}
}
