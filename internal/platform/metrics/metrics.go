package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"appraisal/internal/domain/appraisal"
)

const namespace = "appraisal"

// Collector exports HTTP and engine metrics to Prometheus. It satisfies
// appraisal.Observer so the service reports distribution, submission and
// aggregation timings through it.
type Collector struct {
	gatherer prometheus.Gatherer

	requests        *prometheus.CounterVec
	requestDuration prometheus.Histogram

	distributions       *prometheus.CounterVec
	distributionResults *prometheus.CounterVec
	distributionSeconds prometheus.Histogram

	submissions       *prometheus.CounterVec
	submissionSeconds prometheus.Histogram

	aggregationSeconds *prometheus.HistogramVec
	aggregationLists   *prometheus.HistogramVec
}

// New builds a collector on a private registry that also carries the Go
// runtime and process collectors.
func New() (*Collector, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return NewWithRegistry(reg, reg)
}

func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	c := &Collector{gatherer: gatherer}

	var err error
	if c.requests, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by status class.",
	}, []string{"class"})); err != nil {
		return nil, err
	}
	if c.requestDuration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	})); err != nil {
		return nil, err
	}
	if c.distributions, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "distributions_total",
		Help:      "Distribution batches by role.",
	}, []string{"role"})); err != nil {
		return nil, err
	}
	if c.distributionResults, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "distributed_answer_lists_total",
		Help:      "Answer lists created or failed during distribution.",
	}, []string{"role", "result"})); err != nil {
		return nil, err
	}
	if c.distributionSeconds, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "distribution_duration_seconds",
		Help:      "Latency of a whole distribution batch.",
		Buckets:   prometheus.DefBuckets,
	})); err != nil {
		return nil, err
	}
	if c.submissions, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "submissions_total",
		Help:      "Answer submissions by outcome.",
	}, []string{"outcome"})); err != nil {
		return nil, err
	}
	if c.submissionSeconds, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "submission_duration_seconds",
		Help:      "Latency of answer submissions.",
		Buckets:   prometheus.DefBuckets,
	})); err != nil {
		return nil, err
	}
	if c.aggregationSeconds, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "aggregation_duration_seconds",
		Help:      "Latency of aggregation queries by kind.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})); err != nil {
		return nil, err
	}
	if c.aggregationLists, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "aggregation_answer_lists",
		Help:      "Answer lists read per aggregation query.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 7),
	}, []string{"kind"})); err != nil {
		return nil, err
	}
	return c, nil
}

// register adds col to reg, reusing an identical collector that is already
// registered there.
func register[T prometheus.Collector](reg prometheus.Registerer, col T) (T, error) {
	if err := reg.Register(col); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		var zero T
		return zero, fmt.Errorf("register metric: %w", err)
	}
	return col, nil
}

func (c *Collector) Record(status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.requests.WithLabelValues(statusClass(status)).Inc()
	c.requestDuration.Observe(duration.Seconds())
}

func (c *Collector) RecordDistribution(role appraisal.Role, created, failed int, duration time.Duration) {
	if c == nil {
		return
	}
	c.distributions.WithLabelValues(string(role)).Inc()
	c.distributionResults.WithLabelValues(string(role), "created").Add(float64(created))
	c.distributionResults.WithLabelValues(string(role), "failed").Add(float64(failed))
	c.distributionSeconds.Observe(duration.Seconds())
}

func (c *Collector) RecordSubmission(outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	c.submissions.WithLabelValues(outcome).Inc()
	c.submissionSeconds.Observe(duration.Seconds())
}

func (c *Collector) RecordAggregation(kind string, lists int, duration time.Duration) {
	if c == nil {
		return
	}
	c.aggregationSeconds.WithLabelValues(kind).Observe(duration.Seconds())
	c.aggregationLists.WithLabelValues(kind).Observe(float64(lists))
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func statusClass(status int) string {
	switch {
	case status == http.StatusTooManyRequests:
		return "429"
	case status >= 100 && status < 600:
		return strconv.Itoa(status/100) + "xx"
	}
	return "other"
}

var _ appraisal.Observer = (*Collector)(nil)
