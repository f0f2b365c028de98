package aggregator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/pfrederiksen/skate-feed/internal/event"
	"github.com/pfrederiksen/skate-feed/internal/logger"
	"github.com/pfrederiksen/skate-feed/internal/source"
	"github.com/pfrederiksen/skate-feed/internal/telemetry"
)

var (
	// ErrTimeout is reported for a source that did not finish before its deadline.
	ErrTimeout = errors.New("source timed out")
	// ErrPanic is reported for a source whose fetch panicked.
	ErrPanic = errors.New("source panicked")
)

// Config holds aggregator configuration.
type Config struct {
	Timeout     time.Duration // Per-source deadline (default: 30s)
	Concurrency int           // Max sources fetched at once (default: 4)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:     30 * time.Second,
		Concurrency: 4,
	}
}

// Aggregator collects events from a set of sources.
type Aggregator struct {
	cfg     Config
	log     *logger.Logger
	metrics *logger.Metrics
}

// New creates an Aggregator. A nil log or metrics uses the package defaults.
func New(cfg Config, log *logger.Logger, metrics *logger.Metrics) *Aggregator {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if log == nil {
		log = logger.Default()
	}
	if metrics == nil {
		metrics = logger.DefaultMetrics()
	}
	return &Aggregator{cfg: cfg, log: log, metrics: metrics}
}

// Result is the outcome of one source fetch.
type Result struct {
	Source   string
	Events   []event.Event
	Err      error
	Duration time.Duration
}

// Collect fetches every source and returns the concatenation of their
// events in source order. It never fails.
func (a *Aggregator) Collect(ctx context.Context, sources []source.Source) []event.Event {
	var events []event.Event
	for _, r := range a.CollectResults(ctx, sources) {
		events = append(events, r.Events...)
	}
	return events
}

// CollectResults fetches every source and returns one Result per source,
// in source order.
func (a *Aggregator) CollectResults(ctx context.Context, sources []source.Source) []Result {
	ctx, span := telemetry.StartSpan(ctx, "aggregator.Collect")
	defer span.End()

	results := make([]Result, len(sources))

	var g errgroup.Group
	g.SetLimit(a.cfg.Concurrency)
	for i, src := range sources {
		g.Go(func() error {
			results[i] = a.fetch(ctx, src)
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, r := range results {
		total += len(r.Events)
	}
	span.SetAttributes(
		attribute.Int("sources", len(sources)),
		attribute.Int("events", total),
	)

	return results
}

type outcome struct {
	events []event.Event
	err    error
}

func (a *Aggregator) fetch(ctx context.Context, src source.Source) Result {
	name := src.Name()
	start := time.Now()

	ctx, span := telemetry.StartSpan(ctx, "source.Fetch")
	span.SetAttributes(attribute.String("source", name))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: %v", ErrPanic, r)}
			}
		}()
		events, err := src.Fetch(ctx)
		done <- outcome{events: events, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			out = outcome{err: fmt.Errorf("%w after %s", ErrTimeout, a.cfg.Timeout)}
		} else {
			out = outcome{err: ctx.Err()}
		}
	}

	r := Result{Source: name, Events: out.events, Err: out.err, Duration: time.Since(start)}
	a.record(r)

	span.SetAttributes(attribute.Int("events", len(r.Events)))
	if r.Err != nil {
		span.RecordError(r.Err)
		span.SetStatus(codes.Error, r.Err.Error())
	}
	return r
}

func (a *Aggregator) record(r Result) {
	a.metrics.RecordTiming("source."+r.Source+".fetch", r.Duration)
	a.metrics.SetGauge("source."+r.Source+".events", float64(len(r.Events)))

	fields := logger.Fields{
		"source":      r.Source,
		"events":      len(r.Events),
		"duration_ms": r.Duration.Milliseconds(),
	}
	if r.Err != nil {
		a.metrics.IncrCounter("source." + r.Source + ".failure")
		a.log.Warn("Source failed", fields, r.Err)
		return
	}
	a.metrics.IncrCounter("source." + r.Source + ".success")
	a.log.Info("Fetched source", fields)
}
