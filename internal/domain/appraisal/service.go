package appraisal

import (
	"time"
)

const defaultConcurrency = 8

type Deps struct {
	Answers  AnswerListStore
	Surveys  SurveyCatalog
	Teams    TeamDirectory
	Users    UserDirectory
	Observer Observer
}

// Service bundles the distribution engine, the response recorder and the
// aggregation engine over the injected collaborators. It holds no mutable
// state of its own and is safe for concurrent use.
type Service struct {
	answers     AnswerListStore
	surveys     SurveyCatalog
	teams       TeamDirectory
	users       UserDirectory
	observer    Observer
	now         func() time.Time
	concurrency int
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithConcurrency bounds the number of answer lists created in parallel
// during one distribution. Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func NewService(deps Deps, opts ...Option) *Service {
	s := &Service{
		answers:     deps.Answers,
		surveys:     deps.Surveys,
		teams:       deps.Teams,
		users:       deps.Users,
		observer:    deps.Observer,
		now:         time.Now,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) observeDistribution(role Role, created, failed int, started time.Time) {
	if s.observer != nil {
		s.observer.RecordDistribution(role, created, failed, time.Since(started))
	}
}

func (s *Service) observeSubmission(outcome string, started time.Time) {
	if s.observer != nil {
		s.observer.RecordSubmission(outcome, time.Since(started))
	}
}

func (s *Service) observeAggregation(kind string, lists int, started time.Time) {
	if s.observer != nil {
		s.observer.RecordAggregation(kind, lists, time.Since(started))
	}
}
