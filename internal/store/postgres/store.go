// Package postgres stores surveys, answer lists, teams and users in
// PostgreSQL. Answer entries and role question lists are JSONB documents so
// each answer list is written by a single statement.
package postgres

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"appraisal/internal/domain/appraisal"
	"appraisal/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func notFound(entity, id string) error {
	return fmt.Errorf("%s %s: %w", entity, id, appraisal.ErrNotFound)
}

// validID reports whether id can name a row; ids are UUIDs, so anything
// else is treated as absent instead of surfacing a cast error.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func rowErr(entity, id string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound(entity, id)
	}
	return err
}
