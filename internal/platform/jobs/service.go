// Package jobs runs background maintenance on a single worker goroutine.
package jobs

import (
	"context"
	"log/slog"
	"time"
)

const JobIdempotencyPurge = "idempotency_purge"

// Purger removes idempotency replies saved before a cutoff.
type Purger interface {
	PurgeIdempotency(ctx context.Context, before time.Time) (int64, error)
}

type Service struct {
	Purger   Purger
	TTL      time.Duration
	Interval time.Duration
	now      func() time.Time
	queue    chan job
}

type job struct {
	Type string
	Run  func(context.Context) (any, error)
}

// New returns a runner that purges replies older than ttl every interval.
// An interval of zero disables the schedule; jobs can still be enqueued.
func New(purger Purger, ttl, interval time.Duration) *Service {
	return &Service{
		Purger:   purger,
		TTL:      ttl,
		Interval: interval,
		now:      time.Now,
		queue:    make(chan job, 128),
	}
}

// Start launches the worker and scheduler. Both stop when ctx is done.
func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	if s.Interval > 0 && s.Purger != nil {
		go s.schedulePurge(ctx, s.Interval)
	}
}

func (s *Service) Enqueue(jobType string, run func(context.Context) (any, error)) {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
	default:
		slog.Warn("job queue full", "jobType", jobType)
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

// PurgeIdempotency deletes replies older than the configured TTL and
// returns how many were removed.
func (s *Service) PurgeIdempotency(ctx context.Context) (int64, error) {
	details, err := s.RunNow(ctx, JobIdempotencyPurge, s.purge)
	removed, _ := details.(int64)
	return removed, err
}

func (s *Service) purge(ctx context.Context) (any, error) {
	return s.Purger.PurgeIdempotency(ctx, s.now().Add(-s.TTL))
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	started := time.Now()
	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	slog.Info("job run", "jobType", j.Type, "status", status, "details", details, "duration", time.Since(started))
	return details, err
}

func (s *Service) schedulePurge(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue(JobIdempotencyPurge, s.purge)
		}
	}
}
