package source

import (
	"context"

	"github.com/pfrederiksen/skate-feed/internal/event"
)

// Source fetches the upcoming sessions of one arena or one schedule feed.
type Source interface {
	// Name identifies the source in logs, metrics and the --source flag.
	Name() string
	// Fetch returns the events the source could build. Events returned with
	// a non-nil error are still used.
	Fetch(ctx context.Context) ([]event.Event, error)
}

// Func adapts a plain fetch function to the Source interface.
type Func struct {
	SourceName string
	FetchFunc  func(ctx context.Context) ([]event.Event, error)
}

// NewFunc returns a Source named name that calls fetch.
func NewFunc(name string, fetch func(ctx context.Context) ([]event.Event, error)) Func {
	return Func{SourceName: name, FetchFunc: fetch}
}

func (f Func) Name() string {
	return f.SourceName
}

func (f Func) Fetch(ctx context.Context) ([]event.Event, error) {
	return f.FetchFunc(ctx)
}

// Names returns the names of sources in order.
func Names(sources []Source) []string {
	names := make([]string, 0, len(sources))
	for _, s := range sources {
		names = append(names, s.Name())
	}
	return names
}

// Select returns the sources whose names appear in names, keeping
// registration order. An empty names list selects everything.
func Select(sources []Source, names []string) []Source {
	if len(names) == 0 {
		return sources
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	selected := make([]Source, 0, len(names))
	for _, s := range sources {
		if want[s.Name()] {
			selected = append(selected, s)
		}
	}
	return selected
}
