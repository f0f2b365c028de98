package aggregator

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/skate-feed/internal/event"
	"github.com/pfrederiksen/skate-feed/internal/logger"
	"github.com/pfrederiksen/skate-feed/internal/source"
)

var testLoc = time.FixedZone("CST", -6*60*60)

func evt(arena string, hour int) event.Event {
	start := time.Date(2025, 12, 28, hour, 0, 0, 0, testLoc)
	return event.New(event.OpenSkate, event.Arena{Name: arena}, start, start.Add(90*time.Minute), event.Cost{Amount: 5}, "")
}

func fixed(name string, events ...event.Event) source.Source {
	return source.NewFunc(name, func(context.Context) ([]event.Event, error) {
		return events, nil
	})
}

// MockSource is a testify mock of source.Source.
type MockSource struct {
	mock.Mock
}

func (m *MockSource) Name() string {
	return m.Called().String(0)
}

func (m *MockSource) Fetch(ctx context.Context) ([]event.Event, error) {
	args := m.Called(ctx)
	events, _ := args.Get(0).([]event.Event)
	return events, args.Error(1)
}

func newTestAggregator(cfg Config) (*Aggregator, *bytes.Buffer, *logger.Metrics) {
	var buf bytes.Buffer
	metrics := logger.NewMetrics()
	return New(cfg, logger.New(logger.LevelDebug, &buf), metrics), &buf, metrics
}

func TestCollectConcatenatesInSourceOrder(t *testing.T) {
	agg, _, _ := newTestAggregator(Config{Timeout: time.Second, Concurrency: 3})

	slow := source.NewFunc("slow", func(context.Context) ([]event.Event, error) {
		time.Sleep(30 * time.Millisecond)
		return []event.Event{evt("A", 10), evt("A", 12)}, nil
	})

	got := agg.Collect(context.Background(), []source.Source{
		slow,
		fixed("fast", evt("B", 9)),
		fixed("empty"),
	})

	require.Len(t, got, 3)
	assert.Equal(t, "A", got[0].Arena.Name)
	assert.Equal(t, "A", got[1].Arena.Name)
	assert.Equal(t, "B", got[2].Arena.Name)
}

func TestCollectIsolatesFailures(t *testing.T) {
	tests := []struct {
		name    string
		middle  source.Source
		wantErr error
	}{
		{
			name: "panic",
			middle: source.NewFunc("broken", func(context.Context) ([]event.Event, error) {
				panic("unexpected markup")
			}),
			wantErr: ErrPanic,
		},
		{
			name: "error",
			middle: source.NewFunc("broken", func(context.Context) ([]event.Event, error) {
				return nil, errors.New("unexpected status code: 503")
			}),
		},
		{
			name: "timeout ignoring context",
			middle: source.NewFunc("broken", func(context.Context) ([]event.Event, error) {
				time.Sleep(2 * time.Second)
				return []event.Event{evt("Late", 8)}, nil
			}),
			wantErr: ErrTimeout,
		},
		{
			name: "timeout honouring context",
			middle: source.NewFunc("broken", func(ctx context.Context) ([]event.Event, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg, logs, metrics := newTestAggregator(Config{Timeout: 50 * time.Millisecond, Concurrency: 3})

			started := time.Now()
			results := agg.CollectResults(context.Background(), []source.Source{
				fixed("first", evt("First", 10)),
				tt.middle,
				fixed("third", evt("Third", 11)),
			})
			assert.Less(t, time.Since(started), time.Second, "aggregator must not wait out a stuck source")

			require.Len(t, results, 3)
			assert.NoError(t, results[0].Err)
			assert.Error(t, results[1].Err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, results[1].Err, tt.wantErr)
			}
			assert.Empty(t, results[1].Events)
			assert.NoError(t, results[2].Err)

			var names []string
			for _, r := range results {
				for _, e := range r.Events {
					names = append(names, e.Arena.Name)
				}
			}
			assert.Equal(t, []string{"First", "Third"}, names)

			assert.Equal(t, int64(1), metrics.Counter("source.broken.failure"))
			assert.Equal(t, int64(1), metrics.Counter("source.first.success"))
			assert.Equal(t, 3, strings.Count(logs.String(), "\n"), "one log record per source")
			assert.Contains(t, logs.String(), `"source":"broken"`)
		})
	}
}

func TestCollectKeepsPartialResults(t *testing.T) {
	agg, logs, _ := newTestAggregator(Config{Timeout: time.Second})

	partial := new(MockSource)
	partial.On("Name").Return("partial")
	partial.On("Fetch", mock.Anything).Return([]event.Event{evt("Partial", 14)}, errors.New("1 row unreadable"))

	got := agg.Collect(context.Background(), []source.Source{partial, fixed("ok", evt("OK", 15))})

	require.Len(t, got, 2)
	assert.Equal(t, "Partial", got[0].Arena.Name)
	assert.Contains(t, logs.String(), "1 row unreadable")
	partial.AssertExpectations(t)
}

func TestCollectBoundsConcurrency(t *testing.T) {
	agg, _, _ := newTestAggregator(Config{Timeout: time.Second, Concurrency: 2})

	var running, peak atomic.Int32
	busy := func(name string) source.Source {
		return source.NewFunc(name, func(context.Context) ([]event.Event, error) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			running.Add(-1)
			return nil, nil
		})
	}

	agg.Collect(context.Background(), []source.Source{busy("a"), busy("b"), busy("c"), busy("d"), busy("e")})

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.GreaterOrEqual(t, peak.Load(), int32(1))
}

func TestCollectPassesDeadline(t *testing.T) {
	agg, _, _ := newTestAggregator(Config{Timeout: 5 * time.Second})

	var hasDeadline atomic.Bool
	agg.Collect(context.Background(), []source.Source{
		source.NewFunc("probe", func(ctx context.Context) ([]event.Event, error) {
			_, ok := ctx.Deadline()
			hasDeadline.Store(ok)
			return nil, nil
		}),
	})

	assert.True(t, hasDeadline.Load())
}

func TestCollectNoSources(t *testing.T) {
	agg, _, _ := newTestAggregator(DefaultConfig())
	assert.Empty(t, agg.Collect(context.Background(), nil))
}
