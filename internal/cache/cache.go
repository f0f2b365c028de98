// Package cache holds the computed feed between recomputations.
//
// A Cache serves the stored feed while it is younger than its TTL and
// recomputes it on demand otherwise. Concurrent callers that miss share a
// single computation. Invalidate bumps a generation counter: a computation
// that started under an older generation still answers the callers waiting
// on it but never overwrites the store.
package cache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pfrederiksen/skate-feed/internal/clock"
	"github.com/pfrederiksen/skate-feed/internal/event"
	"github.com/pfrederiksen/skate-feed/internal/logger"
	"github.com/pfrederiksen/skate-feed/internal/telemetry"
)

// DefaultTTL is how long a computed feed is served before recomputation.
const DefaultTTL = 12 * time.Hour

// ComputeFunc produces a fresh feed.
type ComputeFunc func(ctx context.Context) ([]event.Event, error)

// Options configures a Cache. Zero values select the defaults.
type Options struct {
	TTL     time.Duration
	Store   Store
	Clock   clock.Clock
	Logger  *logger.Logger
	Metrics *logger.Metrics
}

// Cache manages the computed feed with TTL
type Cache struct {
	compute ComputeFunc
	store   Store
	ttl     time.Duration
	clock   clock.Clock
	log     *logger.Logger
	metrics *logger.Metrics

	group singleflight.Group

	// mu orders Invalidate against stores of finished computations.
	mu         sync.Mutex
	generation uint64
}

// New creates a cache around compute.
func New(compute ComputeFunc, opts Options) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	if opts.Clock == nil {
		opts.Clock = clock.NewSystem(nil)
	}
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = logger.DefaultMetrics()
	}

	return &Cache{
		compute: compute,
		store:   opts.Store,
		ttl:     opts.TTL,
		clock:   opts.Clock,
		log:     opts.Logger,
		metrics: opts.Metrics,
	}
}

// Get returns the stored feed if it is still fresh, and otherwise computes,
// stores and returns a new one. A failed computation returns its error and
// leaves the stored feed untouched.
func (c *Cache) Get(ctx context.Context) ([]event.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "cache.Get")
	defer span.End()

	if entry, ok := c.fresh(ctx); ok {
		c.metrics.IncrCounter("cache.hit")
		return entry.Events, nil
	}
	c.metrics.IncrCounter("cache.miss")

	gen := c.Generation()
	ch := c.group.DoChan(strconv.FormatUint(gen, 10), func() (interface{}, error) {
		return c.recompute(context.WithoutCancel(ctx), gen)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			span.RecordError(res.Err)
			return nil, res.Err
		}
		return res.Val.([]event.Event), nil
	}
}

func (c *Cache) recompute(ctx context.Context, gen uint64) ([]event.Event, error) {
	// A flight of this generation may have stored a feed after our caller's
	// freshness check.
	if entry, ok := c.fresh(ctx); ok {
		return entry.Events, nil
	}

	start := time.Now()
	events, err := c.compute(ctx)
	c.metrics.RecordTiming("cache.compute", time.Since(start))
	if err != nil {
		c.metrics.IncrCounter("cache.compute.failure")
		c.log.Error("Feed computation failed", logger.Fields{"generation": gen}, err)
		return nil, err
	}
	if events == nil {
		events = []event.Event{}
	}
	c.metrics.SetGauge("feed.events", float64(len(events)))

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation != gen {
		c.log.Info("Discarding feed computed before invalidation", logger.Fields{
			"generation": gen,
			"current":    c.generation,
			"events":     len(events),
		})
		return events, nil
	}

	entry := Entry{Events: events, ComputedAt: c.clock.Now()}
	if err := c.store.Save(ctx, entry); err != nil {
		c.metrics.IncrCounter("cache.store.failure")
		c.log.Error("Failed to store feed", logger.Fields{"events": len(events)}, err)
		return events, nil
	}

	c.log.Info("Feed computed", logger.Fields{
		"generation": gen,
		"events":     len(events),
		"duration":   time.Since(start).String(),
	})
	return events, nil
}

// fresh loads the stored entry and reports whether it is younger than the TTL.
// Store read errors are logged and treated as a miss.
func (c *Cache) fresh(ctx context.Context) (Entry, bool) {
	entry, err := c.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.metrics.IncrCounter("cache.store.failure")
			c.log.Warn("Failed to load stored feed", nil, err)
		}
		return Entry{}, false
	}
	return entry, c.clock.Now().Sub(entry.ComputedAt) < c.ttl
}

// Invalidate clears the stored feed. The next Get recomputes it.
func (c *Cache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.metrics.IncrCounter("cache.invalidate")
	if err := c.store.Clear(ctx); err != nil {
		c.log.Error("Failed to clear stored feed", logger.Fields{"generation": c.generation}, err)
		return err
	}
	c.log.Info("Feed cache cleared", logger.Fields{"generation": c.generation})
	return nil
}

// Generation returns the number of invalidations so far.
func (c *Cache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Info describes the cache state.
type Info struct {
	Generation uint64    `json:"generation"`
	Cached     bool      `json:"cached"`
	Fresh      bool      `json:"fresh"`
	ComputedAt time.Time `json:"computed_at,omitempty"`
	Age        string    `json:"age,omitempty"`
	Events     int       `json:"events"`
	TTL        string    `json:"ttl"`
}

// Info reports the generation and the age and size of the stored feed.
func (c *Cache) Info(ctx context.Context) Info {
	info := Info{
		Generation: c.Generation(),
		TTL:        c.ttl.String(),
	}

	entry, err := c.store.Load(ctx)
	if err != nil {
		return info
	}

	age := c.clock.Now().Sub(entry.ComputedAt)
	info.Cached = true
	info.Fresh = age < c.ttl
	info.ComputedAt = entry.ComputedAt
	info.Age = age.Round(time.Second).String()
	info.Events = len(entry.Events)
	return info
}
