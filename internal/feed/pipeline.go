package feed

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/pfrederiksen/skate-feed/internal/aggregator"
	"github.com/pfrederiksen/skate-feed/internal/clock"
	"github.com/pfrederiksen/skate-feed/internal/event"
	"github.com/pfrederiksen/skate-feed/internal/filter"
	"github.com/pfrederiksen/skate-feed/internal/source"
	"github.com/pfrederiksen/skate-feed/internal/telemetry"
)

// Pipeline computes the feed: aggregate, window, dedup, sort.
type Pipeline struct {
	Sources    []source.Source
	Aggregator *aggregator.Aggregator
	Clock      clock.Clock
	Horizon    time.Duration
}

// Compute runs every source once and returns the ordered, duplicate-free
// list of sessions starting within the horizon. Source failures only shrink
// the result; Compute fails only when ctx is done before the feed is ready.
func (p *Pipeline) Compute(ctx context.Context) ([]event.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "feed.Compute")
	defer span.End()

	agg := p.Aggregator
	if agg == nil {
		agg = aggregator.New(aggregator.DefaultConfig(), nil, nil)
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystem(nil)
	}
	horizon := p.Horizon
	if horizon <= 0 {
		horizon = filter.DefaultHorizon
	}

	raw := agg.Collect(ctx, p.Sources)
	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("computing feed: %w", err)
	}

	events := Assemble(raw, clk.Now(), horizon)

	span.SetAttributes(
		attribute.Int("feed.raw", len(raw)),
		attribute.Int("feed.events", len(events)),
	)

	return events, nil
}

// Assemble applies the window, dedup and ordering stages to raw adapter
// output.
func Assemble(raw []event.Event, now time.Time, horizon time.Duration) []event.Event {
	return Sort(Dedup(filter.Window(raw, now, horizon)))
}
