package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pfrederiksen/skate-feed/internal/aggregator"
	"github.com/pfrederiksen/skate-feed/internal/arenas"
	"github.com/pfrederiksen/skate-feed/internal/cache"
	"github.com/pfrederiksen/skate-feed/internal/clock"
	"github.com/pfrederiksen/skate-feed/internal/config"
	"github.com/pfrederiksen/skate-feed/internal/feed"
	"github.com/pfrederiksen/skate-feed/internal/logger"
	"github.com/pfrederiksen/skate-feed/internal/source"
)

// Options lets tests replace the collaborators of the commands.
type Options struct {
	// Sources builds the adapter registry. Defaults to arenas.Default.
	Sources func(deps source.Deps) []source.Source
	// Clock defaults to the system clock in the feed time zone.
	Clock clock.Clock
	// Stdout and Stderr default to the process streams.
	Stdout io.Writer
	Stderr io.Writer
}

func (o Options) withDefaults() Options {
	if o.Sources == nil {
		o.Sources = arenas.Default
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	return o
}

// app is the wired dependency graph shared by the commands.
type app struct {
	cfg        *config.Config
	log        *logger.Logger
	metrics    *logger.Metrics
	clock      clock.Clock
	sources    []source.Source
	aggregator *aggregator.Aggregator
}

func newApp(cfg *config.Config, opts Options, logOut io.Writer) *app {
	loc := cfg.Feed.Location()

	log := logger.New(cfg.LogLevel(), logOut)
	logger.SetDefault(log)
	metrics := logger.DefaultMetrics()

	clk := opts.Clock
	if clk == nil {
		clk = clock.NewSystem(loc)
	}

	deps := source.Deps{
		Client:   source.NewClient(),
		Location: loc,
		Clock:    clk,
	}.WithDefaults()

	return &app{
		cfg:        cfg,
		log:        log,
		metrics:    metrics,
		clock:      clk,
		sources:    opts.Sources(deps),
		aggregator: aggregator.New(cfg.AggregatorConfig(), log, metrics),
	}
}

func (a *app) pipeline(sources []source.Source) *feed.Pipeline {
	return &feed.Pipeline{
		Sources:    sources,
		Aggregator: a.aggregator,
		Clock:      a.clock,
		Horizon:    a.cfg.Feed.Horizon,
	}
}

// store opens the configured cache backend. The returned close function is
// never nil.
func (a *app) store(ctx context.Context) (cache.Store, func() error, error) {
	switch a.cfg.Cache.Backend {
	case config.BackendRedis:
		rs, err := cache.ConnectRedis(ctx, a.cfg.RedisConfig(), a.cfg.Feed.TTL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		a.log.Info("Using redis feed cache", logger.Fields{"addr": a.cfg.Redis.Addr(), "key": a.cfg.Redis.Key})
		return rs, rs.Close, nil
	default:
		return cache.NewMemoryStore(), func() error { return nil }, nil
	}
}

// selectSources narrows the registry to names, rejecting unknown ones.
func selectSources(sources []source.Source, names []string) ([]source.Source, error) {
	known := make(map[string]bool, len(sources))
	for _, s := range sources {
		known[s.Name()] = true
	}
	for _, n := range names {
		if !known[n] {
			return nil, fmt.Errorf("unknown source %q (see 'skate-feed sources')", n)
		}
	}
	return source.Select(sources, names), nil
}
