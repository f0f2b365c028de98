package filter

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pfrederiksen/skate-feed/internal/event"
)

// DefaultHorizon is how far ahead of now the feed looks.
const DefaultHorizon = 48 * time.Hour

// Window keeps the events whose start lies in [now, now+horizon], both
// bounds inclusive. The relative order of kept events is preserved and the
// input slice is not modified.
func Window(events []event.Event, now time.Time, horizon time.Duration) []event.Event {
	limit := now.Add(horizon)
	kept := make([]event.Event, 0, len(events))
	for _, e := range events {
		if e.Start.Before(now) || e.Start.After(limit) {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}

// Filter represents criteria for narrowing a feed.
type Filter struct {
	// DateFrom filters events starting on or after this date
	DateFrom *time.Time `json:"date_from,omitempty"`

	// DateTo filters events starting on or before this date
	DateTo *time.Time `json:"date_to,omitempty"`

	// Types limits the feed to the listed session types
	Types []event.Type `json:"types,omitempty"`

	// Arenas filters by arena name (case-insensitive substring match)
	Arenas []string `json:"arenas,omitempty"`

	// Cities filters by arena city (case-insensitive substring match)
	Cities []string `json:"cities,omitempty"`

	// MaxCost filters out sessions costing more than this amount.
	// A zero value keeps free sessions only; nil disables the check.
	MaxCost *float64 `json:"max_cost,omitempty"`

	// WeekendsOnly filters for Saturday/Sunday sessions only
	WeekendsOnly bool `json:"weekends_only,omitempty"`
}

// NewFilter creates a new empty filter
func NewFilter() *Filter {
	return &Filter{}
}

// IsEmpty returns true if no filter criteria are set
func (f *Filter) IsEmpty() bool {
	return f.DateFrom == nil &&
		f.DateTo == nil &&
		len(f.Types) == 0 &&
		len(f.Arenas) == 0 &&
		len(f.Cities) == 0 &&
		f.MaxCost == nil &&
		!f.WeekendsOnly
}

// Matches returns true if the event matches all filter criteria
func (f *Filter) Matches(e event.Event) bool {
	if f.DateFrom != nil && e.Start.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && e.Start.After(*f.DateTo) {
		return false
	}

	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if e.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(f.Arenas) > 0 && !containsAny(e.Arena.Name, f.Arenas) {
		return false
	}

	if len(f.Cities) > 0 && !containsAny(e.Arena.Address.City, f.Cities) {
		return false
	}

	if f.MaxCost != nil && e.Cost.Cents() > (event.Cost{Amount: *f.MaxCost}).Cents() {
		return false
	}

	if f.WeekendsOnly {
		weekday := e.Start.Weekday()
		if weekday != time.Saturday && weekday != time.Sunday {
			return false
		}
	}

	return true
}

func containsAny(value string, needles []string) bool {
	value = strings.ToLower(value)
	for _, n := range needles {
		if strings.Contains(value, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

// Apply filters a list of events and returns only matching events.
// The order of the input is preserved.
func (f *Filter) Apply(events []event.Event) []event.Event {
	if f == nil || f.IsEmpty() {
		return events
	}

	filtered := make([]event.Event, 0, len(events))
	for _, e := range events {
		if f.Matches(e) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// String returns a human-readable description of the filter
func (f *Filter) String() string {
	if f.IsEmpty() {
		return "No active filters"
	}

	var parts []string

	if f.DateFrom != nil && f.DateTo != nil {
		parts = append(parts, fmt.Sprintf("Dates: %s - %s",
			f.DateFrom.Format("Jan 2"), f.DateTo.Format("Jan 2, 2006")))
	} else if f.DateFrom != nil {
		parts = append(parts, fmt.Sprintf("From: %s", f.DateFrom.Format("Jan 2, 2006")))
	} else if f.DateTo != nil {
		parts = append(parts, fmt.Sprintf("Until: %s", f.DateTo.Format("Jan 2, 2006")))
	}

	if len(f.Types) > 0 {
		labels := make([]string, len(f.Types))
		for i, t := range f.Types {
			labels[i] = t.Label()
		}
		parts = append(parts, fmt.Sprintf("Types: %s", strings.Join(labels, ", ")))
	}

	if len(f.Arenas) > 0 {
		parts = append(parts, fmt.Sprintf("Arenas: %s", strings.Join(f.Arenas, ", ")))
	}

	if len(f.Cities) > 0 {
		parts = append(parts, fmt.Sprintf("Cities: %s", strings.Join(f.Cities, ", ")))
	}

	if f.MaxCost != nil {
		parts = append(parts, fmt.Sprintf("Max cost: $%.2f", *f.MaxCost))
	}

	if f.WeekendsOnly {
		parts = append(parts, "Weekends only")
	}

	return strings.Join(parts, " | ")
}

// Clone creates a deep copy of the filter
func (f *Filter) Clone() *Filter {
	clone := &Filter{
		WeekendsOnly: f.WeekendsOnly,
	}

	if f.DateFrom != nil {
		t := *f.DateFrom
		clone.DateFrom = &t
	}
	if f.DateTo != nil {
		t := *f.DateTo
		clone.DateTo = &t
	}
	if f.MaxCost != nil {
		c := *f.MaxCost
		clone.MaxCost = &c
	}

	if len(f.Types) > 0 {
		clone.Types = append([]event.Type(nil), f.Types...)
	}
	if len(f.Arenas) > 0 {
		clone.Arenas = append([]string(nil), f.Arenas...)
	}
	if len(f.Cities) > 0 {
		clone.Cities = append([]string(nil), f.Cities...)
	}

	return clone
}

// FromQuery builds a filter from request parameters:
//
//	type=open_skate&type=stick_and_puck  session types (repeatable, or comma separated)
//	arena=bloomington                    arena name substring (repeatable)
//	city=eagan                           city substring (repeatable)
//	max_cost=10                          maximum admission
//	weekends=true                        Saturday and Sunday only
//	dates=Dec 27-28                      date range, see ParseDateRange
//
// now and loc anchor the year inference of the dates parameter.
func FromQuery(q url.Values, now time.Time, loc *time.Location) (*Filter, error) {
	f := NewFilter()

	for _, raw := range splitValues(q["type"]) {
		t, err := event.ParseType(raw)
		if err != nil {
			return nil, fmt.Errorf("type: %w", err)
		}
		f.Types = append(f.Types, t)
	}

	f.Arenas = splitValues(q["arena"])
	f.Cities = splitValues(q["city"])

	if raw := strings.TrimSpace(q.Get("max_cost")); raw != "" {
		amount, err := strconv.ParseFloat(strings.TrimPrefix(raw, "$"), 64)
		if err != nil || amount < 0 {
			return nil, fmt.Errorf("max_cost: invalid amount %q", raw)
		}
		f.MaxCost = &amount
	}

	if raw := strings.TrimSpace(q.Get("weekends")); raw != "" {
		weekends, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("weekends: invalid boolean %q", raw)
		}
		f.WeekendsOnly = weekends
	}

	if raw := strings.TrimSpace(q.Get("dates")); raw != "" {
		from, to, err := ParseDateRange(raw, now, loc)
		if err != nil {
			return nil, fmt.Errorf("dates: %w", err)
		}
		f.DateFrom, f.DateTo = from, to
	}

	return f, nil
}

func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
