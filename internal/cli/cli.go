package cli

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/skate-feed/internal/aggregator"
	"github.com/pfrederiksen/skate-feed/internal/cache"
	"github.com/pfrederiksen/skate-feed/internal/config"
	"github.com/pfrederiksen/skate-feed/internal/event"
	"github.com/pfrederiksen/skate-feed/internal/feed"
	"github.com/pfrederiksen/skate-feed/internal/filter"
	"github.com/pfrederiksen/skate-feed/internal/logger"
	"github.com/pfrederiksen/skate-feed/internal/server"
	"github.com/pfrederiksen/skate-feed/internal/source"
	"github.com/pfrederiksen/skate-feed/internal/telemetry"
)

const (
	ExitSuccess = 0
	ExitError   = 1
	ExitPartial = 2
)

// ErrPartial is returned by fetch when at least one source reported an error.
// The feed was still printed.
var ErrPartial = errors.New("some sources failed")

type rootFlags struct {
	configPath string
	logLevel   string
}

// NewRootCmd creates the root command
func NewRootCmd(opts Options) *cobra.Command {
	opts = opts.withDefaults()
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "skate-feed",
		Short: "Public skating and stick & puck sessions at Twin Cities south metro arenas",
		Long: `Collects open skate and stick & puck sessions from arena websites,
calendars and PDF schedules, and publishes the next two days as one feed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(opts.Stdout)
	cmd.SetErr(opts.Stderr)

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to a .env config file (default: ./.env if present)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides LOG_LEVEL)")

	cmd.AddCommand(
		newServeCmd(opts, flags),
		newFetchCmd(opts, flags),
		newSourcesCmd(opts, flags),
	)

	return cmd
}

func (f *rootFlags) load() (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.logLevel != "" {
		cfg.App.LogLevel = f.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func newServeCmd(opts Options, flags *rootFlags) *cobra.Command {
	var (
		port int
		warm bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the feed over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cfg, opts, warm)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Listen port (overrides SERVER_PORT)")
	cmd.Flags().BoolVar(&warm, "warm", true, "Compute the feed in the background at startup")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, opts Options, warm bool) error {
	a := newApp(cfg, opts, opts.Stderr)
	defer a.log.Sync()

	if err := cfg.ValidateServe(len(a.sources)); err != nil {
		return err
	}

	tel, err := telemetry.Init(ctx, cfg.TelemetryConfig())
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			a.log.Warn("Telemetry shutdown failed", nil, err)
		}
	}()

	store, closeStore, err := a.store(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	feedCache := cache.New(a.pipeline(a.sources).Compute, cache.Options{
		TTL:     cfg.Feed.TTL,
		Store:   store,
		Clock:   a.clock,
		Logger:  a.log,
		Metrics: a.metrics,
	})

	a.log.Info("Starting skate-feed", logger.Fields{
		"version":  cfg.App.Version,
		"env":      cfg.App.Environment,
		"sources":  len(a.sources),
		"timezone": cfg.Feed.Location().String(),
		"horizon":  cfg.Feed.Horizon.String(),
		"ttl":      cfg.Feed.TTL.String(),
		"cache":    cfg.Cache.Backend,
	})

	if warm {
		go func() {
			if _, err := feedCache.Get(ctx); err != nil && ctx.Err() == nil {
				a.log.Warn("Initial feed computation failed", nil, err)
			}
		}()
	}

	srv := server.New(cfg.ServerConfig(), server.Options{
		Feed:     feedCache,
		Location: cfg.Feed.Location(),
		Clock:    a.clock,
		Sources:  source.Names(a.sources),
		Logger:   a.log,
		Metrics:  a.metrics,
	})
	return srv.Run(ctx)
}

type fetchFlags struct {
	format   string
	sources  []string
	horizon  time.Duration
	sort     string
	types    []string
	arenas   []string
	cities   []string
	maxCost  string
	weekends bool
	dates    string
	verbose  bool
}

// query expresses the filter flags as the HTTP query parameters understood
// by filter.FromQuery.
func (f *fetchFlags) query() url.Values {
	q := url.Values{}
	q["type"] = f.types
	q["arena"] = f.arenas
	q["city"] = f.cities
	if f.maxCost != "" {
		q.Set("max_cost", f.maxCost)
	}
	if f.weekends {
		q.Set("weekends", strconv.FormatBool(f.weekends))
	}
	if f.dates != "" {
		q.Set("dates", f.dates)
	}
	return q
}

func newFetchCmd(opts Options, flags *rootFlags) *cobra.Command {
	ff := &fetchFlags{}

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch every source once and print the feed",
		Long: `Fetch runs the arena adapters once, without the cache, and prints the
resulting feed. It exits with status 2 when any source reported an error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			return runFetch(cmd.Context(), cfg, opts, ff)
		},
	}

	cmd.Flags().StringVar(&ff.format, "format", "text", "Output format: text, json or ics")
	cmd.Flags().StringSliceVar(&ff.sources, "source", nil, "Only fetch these sources (repeatable)")
	cmd.Flags().DurationVar(&ff.horizon, "horizon", 0, "How far ahead to look (overrides FEED_HORIZON)")
	cmd.Flags().StringVar(&ff.sort, "sort", "time", "Sort order: time, arena or cost")
	cmd.Flags().StringSliceVar(&ff.types, "type", nil, "Session types: open_skate, stick_and_puck")
	cmd.Flags().StringSliceVar(&ff.arenas, "arena", nil, "Arena name substrings")
	cmd.Flags().StringSliceVar(&ff.cities, "city", nil, "City substrings")
	cmd.Flags().StringVar(&ff.maxCost, "max-cost", "", "Maximum admission (0 for free sessions only)")
	cmd.Flags().BoolVar(&ff.weekends, "weekends", false, "Saturday and Sunday sessions only")
	cmd.Flags().StringVar(&ff.dates, "dates", "", "Date range, e.g. 'Dec 27-28'")
	cmd.Flags().BoolVar(&ff.verbose, "verbose", false, "Show notes, addresses and IDs")

	return cmd
}

func runFetch(ctx context.Context, cfg *config.Config, opts Options, ff *fetchFlags) error {
	format, err := ParseOutputFormat(ff.format)
	if err != nil {
		return err
	}
	order, err := feed.ParseSortOrder(ff.sort)
	if err != nil {
		return err
	}
	if ff.horizon > 0 {
		cfg.Feed.Horizon = ff.horizon
	}

	a := newApp(cfg, opts, opts.Stderr)
	defer a.log.Sync()

	now := a.clock.Now()
	f, err := filter.FromQuery(ff.query(), now, cfg.Feed.Location())
	if err != nil {
		return err
	}

	sources, err := selectSources(a.sources, ff.sources)
	if err != nil {
		return err
	}

	results := a.aggregator.CollectResults(ctx, sources)

	var raw []event.Event
	var failures []SourceFailure
	for _, r := range results {
		raw = append(raw, r.Events...)
		if r.Err != nil {
			failures = append(failures, failure(r))
		}
	}

	events := feed.Assemble(raw, now, cfg.Feed.Horizon)
	events = f.Apply(events)
	if order != feed.SortByTime {
		events = feed.SortBy(events, order)
	}

	result := &OutputResult{
		FetchedAt:  now,
		Location:   cfg.Feed.Location(),
		Horizon:    cfg.Feed.Horizon,
		Sources:    source.Names(sources),
		Events:     events,
		EventCount: len(events),
		Failures:   failures,
	}
	if !f.IsEmpty() {
		result.Filter = f.String()
	}

	if err := WriteOutput(opts.Stdout, result, format, ff.verbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if len(failures) > 0 {
		return ErrPartial
	}
	return nil
}

func failure(r aggregator.Result) SourceFailure {
	return SourceFailure{Source: r.Source, Error: r.Err.Error(), Events: len(r.Events)}
}

func newSourcesCmd(opts Options, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the registered arena sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			a := newApp(cfg, opts, opts.Stderr)
			for _, name := range source.Names(a.sources) {
				fmt.Fprintln(opts.Stdout, name)
			}
			return nil
		},
	}
}

// Execute runs the CLI
func Execute() {
	err := NewRootCmd(Options{}).ExecuteContext(context.Background())
	switch {
	case err == nil:
		os.Exit(ExitSuccess)
	case errors.Is(err, ErrPartial):
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		os.Exit(ExitPartial)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}
