// Package metrics instruments a collection.Strategy with Prometheus
// request counters and latency histograms.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/mirror/internal/collection"
	"github.com/roach88/mirror/internal/value"
)

const (
	MetricCrudRequests = "crud_requests_total"
	MetricCrudDuration = "crud_duration_seconds"

	namespace = "mirror"
)

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Collector holds the CRUD metric vectors.
type Collector struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewCollector creates the metric vectors and registers them with reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      MetricCrudRequests,
				Help:      "CRUD strategy calls by entity, operation and outcome.",
			},
			[]string{"entity", "op", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      MetricCrudDuration,
				Help:      "CRUD strategy call latency.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"entity", "op"},
		),
	}
	for _, col := range []prometheus.Collector{c.requests, c.duration} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) observe(entity, op string, start time.Time, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	c.requests.WithLabelValues(entity, op, outcome).Inc()
	c.duration.WithLabelValues(entity, op).Observe(time.Since(start).Seconds())
}

// Strategy wraps another strategy and records every call.
type Strategy struct {
	next collection.Strategy
	c    *Collector
}

// Instrument returns next wrapped with c.
func Instrument(next collection.Strategy, c *Collector) *Strategy {
	return &Strategy{next: next, c: c}
}

// Fetch implements collection.Strategy.
func (s *Strategy) Fetch(ctx context.Context, id string, fields []string, entity string) (value.Object, error) {
	start := time.Now()
	rec, err := s.next.Fetch(ctx, id, fields, entity)
	s.c.observe(entity, "fetch", start, err)
	return rec, err
}

// FetchList implements collection.Strategy.
func (s *Strategy) FetchList(ctx context.Context, where value.Object, fields []string, entity string) ([]value.Object, error) {
	start := time.Now()
	recs, err := s.next.FetchList(ctx, where, fields, entity)
	s.c.observe(entity, "fetchList", start, err)
	return recs, err
}

// Upsert implements collection.Strategy.
func (s *Strategy) Upsert(ctx context.Context, dto value.Object, entity string) (value.Object, error) {
	start := time.Now()
	rec, err := s.next.Upsert(ctx, dto, entity)
	s.c.observe(entity, "upsert", start, err)
	return rec, err
}

// Destroy implements collection.Strategy.
func (s *Strategy) Destroy(ctx context.Context, id string, entity string) error {
	start := time.Now()
	err := s.next.Destroy(ctx, id, entity)
	s.c.observe(entity, "destroy", start, err)
	return err
}

// DestroyMultiple implements collection.Strategy.
func (s *Strategy) DestroyMultiple(ctx context.Context, ids []string, entity string) error {
	start := time.Now()
	err := s.next.DestroyMultiple(ctx, ids, entity)
	s.c.observe(entity, "destroyMultiple", start, err)
	return err
}
