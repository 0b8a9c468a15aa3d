// Package cache keeps recently used surveys in memory in front of a
// SurveyCatalog. Surveys are immutable once created, so entries only leave the
// cache through LRU eviction or TTL expiry.
package cache

import (
	"context"
	"maps"
	"slices"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"appraisal/internal/domain/appraisal"
)

const (
	defaultSize = 256
	defaultTTL  = 5 * time.Minute
)

type surveyEntry struct {
	survey   appraisal.Survey
	storedAt time.Time
}

type SurveyCache struct {
	next  appraisal.SurveyCatalog
	cache *lru.Cache[string, surveyEntry]
	ttl   time.Duration
	now   func() time.Time
}

// NewSurveyCache wraps next with an LRU of the given size. Non-positive size
// or ttl fall back to defaults.
func NewSurveyCache(next appraisal.SurveyCatalog, size int, ttl time.Duration) *SurveyCache {
	if size <= 0 {
		size = defaultSize
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	// lru.New only fails for a non-positive size.
	c, _ := lru.New[string, surveyEntry](size)
	return &SurveyCache{next: next, cache: c, ttl: ttl, now: time.Now}
}

func (c *SurveyCache) SurveyByID(ctx context.Context, id string) (appraisal.Survey, error) {
	if entry, ok := c.cache.Get(id); ok {
		if c.now().Sub(entry.storedAt) < c.ttl {
			return cloneSurvey(entry.survey), nil
		}
		c.cache.Remove(id)
	}

	survey, err := c.next.SurveyByID(ctx, id)
	if err != nil {
		return appraisal.Survey{}, err
	}
	c.cache.Add(id, surveyEntry{survey: cloneSurvey(survey), storedAt: c.now()})
	return survey, nil
}

func cloneSurvey(survey appraisal.Survey) appraisal.Survey {
	lists := maps.Clone(survey.RoleQuestionLists)
	for role, questions := range lists {
		lists[role] = slices.Clone(questions)
	}
	survey.RoleQuestionLists = lists
	return survey
}

var _ appraisal.SurveyCatalog = (*SurveyCache)(nil)
