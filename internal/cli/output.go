package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pfrederiksen/skate-feed/internal/calendar"
	"github.com/pfrederiksen/skate-feed/internal/event"
	"github.com/pfrederiksen/skate-feed/internal/server"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatICS  OutputFormat = "ics"
)

// ParseOutputFormat validates a --format value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch format := OutputFormat(strings.ToLower(strings.TrimSpace(s))); format {
	case FormatText, FormatJSON, FormatICS:
		return format, nil
	default:
		return "", fmt.Errorf("invalid format: %s (must be 'text', 'json' or 'ics')", s)
	}
}

// SourceFailure describes a source whose fetch did not fully succeed.
type SourceFailure struct {
	Source string `json:"source"`
	Error  string `json:"error"`
	Events int    `json:"events"`
}

// OutputResult contains data to be output
type OutputResult struct {
	FetchedAt  time.Time       `json:"fetched_at"`
	Location   *time.Location  `json:"-"`
	Horizon    time.Duration   `json:"-"`
	Sources    []string        `json:"sources"`
	Events     []event.Event   `json:"-"`
	EventCount int             `json:"event_count"`
	Failures   []SourceFailure `json:"failures,omitempty"`
	Filter     string          `json:"filter,omitempty"`
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result, verbose)
	case FormatICS:
		_, err := io.WriteString(w, calendar.GenerateICS(result.Events, result.FetchedAt))
		return err
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON, with events in the HTTP wire format
func writeJSON(w io.Writer, result *OutputResult) error {
	payload := struct {
		*OutputResult
		Horizon string         `json:"horizon"`
		Events  []server.Event `json:"events"`
	}{
		OutputResult: result,
		Horizon:      result.Horizon.String(),
		Events:       server.ToWire(result.Events, result.loc()),
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}

func (r *OutputResult) loc() *time.Location {
	if r.Location == nil {
		return time.Local
	}
	return r.Location
}

// writeText outputs results as human-readable text, grouped by day
func writeText(w io.Writer, result *OutputResult, verbose bool) error {
	loc := result.loc()

	if result.EventCount == 0 {
		fmt.Fprintf(w, "No sessions in the next %s.\n", result.Horizon)
	}

	var day string
	for _, evt := range result.Events {
		start := evt.Start.In(loc)
		if d := start.Format("Mon Jan 2"); d != day {
			day = d
			fmt.Fprintf(w, "\n%s\n", day)
		}

		fmt.Fprintf(w, "  %s-%s  %-14s  %s (%s)\n",
			start.Format("15:04"), evt.End.In(loc).Format("15:04"),
			evt.Type.Label(), evt.Arena.Name, formatCost(evt.Cost))

		if verbose {
			if evt.Notes != "" {
				fmt.Fprintf(w, "       Notes: %s\n", evt.Notes)
			}
			if evt.Arena.Address.Street != "" {
				fmt.Fprintf(w, "       Address: %s\n", evt.Arena.Address)
			}
			fmt.Fprintf(w, "       ID: %s\n", evt.ID())
		}
	}

	if result.Filter != "" {
		fmt.Fprintf(w, "\nFilter: %s\n", result.Filter)
	}
	fmt.Fprintf(w, "\nTotal: %d sessions from %d sources\n", result.EventCount, len(result.Sources))

	if len(result.Failures) > 0 {
		fmt.Fprintf(w, "\nSources with errors (%d):\n", len(result.Failures))
		for _, f := range result.Failures {
			fmt.Fprintf(w, "  %s: %s (%d events kept)\n", f.Source, f.Error, f.Events)
		}
	}

	return nil
}

func formatCost(c event.Cost) string {
	if c.Amount == 0 {
		return "free"
	}
	s := fmt.Sprintf("$%.2f", c.Amount)
	if c.Notes != "" {
		s += ", " + c.Notes
	}
	return s
}
