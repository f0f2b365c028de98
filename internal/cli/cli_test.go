package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/skate-feed/internal/clock"
	"github.com/pfrederiksen/skate-feed/internal/event"
	"github.com/pfrederiksen/skate-feed/internal/logger"
	"github.com/pfrederiksen/skate-feed/internal/source"
)

var chicago = mustLoad("America/Chicago")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// Saturday morning.
var now = time.Date(2025, 12, 27, 9, 0, 0, 0, chicago)

func arena(name, city string) event.Arena {
	return event.Arena{
		Name:    name,
		Address: event.Address{Street: "1 Rink Rd", City: city, State: "MN", Zip: "55000"},
	}
}

func at(day, hour, minute int) time.Time {
	return time.Date(2025, 12, day, hour, minute, 0, 0, chicago)
}

func testSources(deps source.Deps) []source.Source {
	eagan := arena("Eagan Civic Arena", "Eagan")
	burnsville := arena("Burnsville Ice Center", "Burnsville")

	return []source.Source{
		source.NewFunc("eagan", func(ctx context.Context) ([]event.Event, error) {
			return []event.Event{
				event.New(event.OpenSkate, eagan, at(27, 13, 30), at(27, 15, 0), event.Cost{Amount: 7}, "Open Skate"),
				event.New(event.OpenSkate, eagan, at(30, 13, 30), at(30, 15, 0), event.Cost{Amount: 7}, "too far"),
			}, nil
		}),
		source.NewFunc("burnsville", func(ctx context.Context) ([]event.Event, error) {
			return []event.Event{
				event.New(event.StickAndPuck, burnsville, at(28, 11, 0), at(28, 12, 0), event.Cost{Amount: 10}, ""),
			}, errors.New("parsing month page: bad row")
		}),
		source.NewFunc("richfield", func(ctx context.Context) ([]event.Event, error) {
			return nil, nil
		}),
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	previous := logger.Default()
	t.Cleanup(func() { logger.SetDefault(previous) })

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd(Options{
		Sources: testSources,
		Clock:   clock.NewFixed(now),
		Stdout:  &stdout,
		Stderr:  &stderr,
	})
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestFetch_Text(t *testing.T) {
	out, err := run(t, "fetch", "--verbose")

	assert.ErrorIs(t, err, ErrPartial)
	assert.Contains(t, out, "Sat Dec 27")
	assert.Contains(t, out, "13:30-15:00  Open Skate      Eagan Civic Arena ($7.00)")
	assert.Contains(t, out, "Sun Dec 28")
	assert.Contains(t, out, "Stick and Puck  Burnsville Ice Center ($10.00)")
	assert.Contains(t, out, "Notes: Open Skate")
	assert.NotContains(t, out, "too far")
	assert.Contains(t, out, "Total: 2 sessions from 3 sources")
	assert.Contains(t, out, "burnsville: parsing month page: bad row (1 events kept)")
}

func TestFetch_JSON(t *testing.T) {
	out, err := run(t, "fetch", "--format", "json")
	assert.ErrorIs(t, err, ErrPartial)

	var result struct {
		EventCount int      `json:"event_count"`
		Horizon    string   `json:"horizon"`
		Sources    []string `json:"sources"`
		Events     []struct {
			EventType string `json:"event_type"`
			StartTime string `json:"start_time"`
		} `json:"events"`
		Failures []SourceFailure `json:"failures"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))

	assert.Equal(t, 2, result.EventCount)
	assert.Equal(t, "48h0m0s", result.Horizon)
	assert.Equal(t, []string{"eagan", "burnsville", "richfield"}, result.Sources)
	require.Len(t, result.Events, 2)
	assert.Equal(t, "Open Skate", result.Events[0].EventType)
	assert.Equal(t, "2025-12-27 13:30", result.Events[0].StartTime)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "burnsville", result.Failures[0].Source)
}

func TestFetch_ICS(t *testing.T) {
	out, err := run(t, "fetch", "--format", "ics", "--source", "eagan")
	require.NoError(t, err)

	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Equal(t, 1, strings.Count(out, "BEGIN:VEVENT"))
}

func TestFetch_Options(t *testing.T) {
	t.Run("longer horizon", func(t *testing.T) {
		out, err := run(t, "fetch", "--source", "eagan", "--horizon", "96h")
		require.NoError(t, err)
		assert.Contains(t, out, "Tue Dec 30")
	})

	t.Run("filters", func(t *testing.T) {
		out, err := run(t, "fetch", "--type", "stick_and_puck", "--max-cost", "12")
		assert.ErrorIs(t, err, ErrPartial)
		assert.NotContains(t, out, "Eagan Civic Arena")
		assert.Contains(t, out, "Burnsville Ice Center")
		assert.Contains(t, out, "Filter: Types: Stick and Puck | Max cost: $12.00")
	})

	t.Run("weekday only sessions filtered by weekends", func(t *testing.T) {
		out, err := run(t, "fetch", "--source", "eagan", "--weekends", "--horizon", "96h")
		require.NoError(t, err)
		assert.Contains(t, out, "Total: 1 sessions")
	})

	t.Run("sort by cost", func(t *testing.T) {
		out, err := run(t, "fetch", "--sort", "cost", "--format", "json")
		assert.ErrorIs(t, err, ErrPartial)
		assert.Less(t, strings.Index(out, "Open Skate"), strings.Index(out, "Stick and Puck"))
	})
}

func TestFetch_InvalidFlags(t *testing.T) {
	tests := [][]string{
		{"fetch", "--format", "xml"},
		{"fetch", "--sort", "title"},
		{"fetch", "--source", "nowhere"},
		{"fetch", "--type", "curling"},
		{"fetch", "--max-cost", "cheap"},
		{"--log-level", "loud", "fetch"},
	}

	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			_, err := run(t, args...)
			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrPartial)
		})
	}
}

func TestSources(t *testing.T) {
	out, err := run(t, "sources")
	require.NoError(t, err)
	assert.Equal(t, "eagan\nburnsville\nrichfield\n", out)
}

func TestSelectSources(t *testing.T) {
	all := testSources(source.Deps{})

	got, err := selectSources(all, []string{"richfield", "eagan"})
	require.NoError(t, err)
	assert.Equal(t, []string{"eagan", "richfield"}, source.Names(got))

	got, err = selectSources(all, nil)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	_, err = selectSources(all, []string{"edina"})
	assert.Error(t, err)
}

func TestParseOutputFormat(t *testing.T) {
	for _, s := range []string{"text", "JSON", "ics"} {
		_, err := ParseOutputFormat(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseOutputFormat("yaml")
	assert.Error(t, err)
}

func TestWriteOutput_Empty(t *testing.T) {
	var buf bytes.Buffer
	err := WriteOutput(&buf, &OutputResult{Horizon: 48 * time.Hour, Sources: []string{"eagan"}}, FormatText, false)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No sessions in the next 48h0m0s.")
	assert.Contains(t, buf.String(), "Total: 0 sessions from 1 sources")

	buf.Reset()
	require.NoError(t, WriteOutput(&buf, &OutputResult{}, FormatJSON, false))
	assert.Contains(t, buf.String(), `"events": []`)
}
