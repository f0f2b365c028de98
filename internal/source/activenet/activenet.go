// Package activenet reads ActiveCommunities (ActiveNet) online calendars.
//
// The calendar is queried with a JSON POST naming the calendar, the center
// and optionally the event types. Each returned event carries a title, naive
// "2006-01-02 15:04:05" times and the facility (rink) it is booked on.
package activenet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/skate-feed/internal/event"
	"github.com/pfrederiksen/skate-feed/internal/source"
)

const timeLayout = "2006-01-02 15:04:05"

// ErrNoCenter is returned when the response lists no center events.
var ErrNoCenter = errors.New("no center events in response")

// Request is the body of the online calendar query.
type Request struct {
	CalendarID             int    `json:"calendar_id"`
	CenterIDs              []int  `json:"center_ids"`
	DisplayAll             int    `json:"display_all"`
	SearchStartTime        string `json:"search_start_time"`
	SearchEndTime          string `json:"search_end_time"`
	FacilityIDs            []int  `json:"facility_ids"`
	ActivityCategoryIDs    []int  `json:"activity_category_ids"`
	ActivitySubCategoryIDs []int  `json:"activity_sub_category_ids"`
	ActivityIDs            []int  `json:"activity_ids"`
	ActivityMinAge         *int   `json:"activity_min_age"`
	ActivityMaxAge         *int   `json:"activity_max_age"`
	EventTypeIDs           []int  `json:"event_type_ids"`
}

// NewRequest returns a query for one calendar and center. Empty ID lists are
// sent as [] rather than null.
func NewRequest(calendarID, centerID int, eventTypeIDs ...int) Request {
	if eventTypeIDs == nil {
		eventTypeIDs = []int{}
	}
	return Request{
		CalendarID:             calendarID,
		CenterIDs:              []int{centerID},
		FacilityIDs:            []int{},
		ActivityCategoryIDs:    []int{},
		ActivitySubCategoryIDs: []int{},
		ActivityIDs:            []int{},
		EventTypeIDs:           eventTypeIDs,
	}
}

// Response is the subset of the calendar response the adapter reads.
type Response struct {
	Body struct {
		CenterEvents []struct {
			Events []Item `json:"events"`
		} `json:"center_events"`
	} `json:"body"`
}

// Item is one calendar entry.
type Item struct {
	Title       string `json:"title"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Description string `json:"description"`
	Facilities  []struct {
		FacilityName string `json:"facility_name"`
	} `json:"facilities"`
}

func (it Item) rink() string {
	if len(it.Facilities) == 0 {
		return ""
	}
	return it.Facilities[0].FacilityName
}

// Rule maps titles containing Contains to a type and price.
type Rule struct {
	Contains string
	Type     event.Type
	Cost     event.Cost
}

// Config describes one ActiveNet calendar.
type Config struct {
	Name    string
	URL     string
	Request Request
	Arena   event.Arena
	Rules   []Rule

	// WithDescription appends the item description to the event notes.
	WithDescription bool
}

// Source fetches one ActiveNet calendar.
type Source struct {
	cfg  Config
	deps source.Deps
}

// New returns a Source for cfg.
func New(cfg Config, deps source.Deps) *Source {
	return &Source{cfg: cfg, deps: deps.WithDefaults()}
}

func (s *Source) Name() string {
	return s.cfg.Name
}

// Fetch posts the calendar query and converts matching items to events.
func (s *Source) Fetch(ctx context.Context) ([]event.Event, error) {
	var resp Response
	if err := s.deps.Client.PostJSON(ctx, s.cfg.URL, s.cfg.Request, &resp); err != nil {
		return nil, err
	}
	if len(resp.Body.CenterEvents) == 0 {
		return nil, ErrNoCenter
	}
	return s.convert(resp.Body.CenterEvents[0].Events)
}

func (s *Source) convert(items []Item) ([]event.Event, error) {
	var (
		events []event.Event
		errs   []error
	)

	for _, it := range items {
		rule, ok := s.rule(it.Title)
		if !ok {
			continue
		}

		start, err := time.ParseInLocation(timeLayout, it.StartTime, s.deps.Location)
		if err != nil {
			errs = append(errs, fmt.Errorf("parsing start of %q: %w", it.Title, err))
			continue
		}
		end, err := time.ParseInLocation(timeLayout, it.EndTime, s.deps.Location)
		if err != nil {
			errs = append(errs, fmt.Errorf("parsing end of %q: %w", it.Title, err))
			continue
		}

		rink := it.rink()
		notes := rink
		if s.cfg.WithDescription && strings.TrimSpace(it.Description) != "" {
			notes += " - " + strings.TrimSpace(it.Description)
		}

		events = append(events, event.New(rule.Type, s.cfg.Arena.WithNotes(rink), start, end, rule.Cost, notes))
	}

	return events, errors.Join(errs...)
}

func (s *Source) rule(title string) (Rule, bool) {
	for _, r := range s.cfg.Rules {
		if strings.Contains(title, r.Contains) {
			return r, true
		}
	}
	return Rule{}, false
}
