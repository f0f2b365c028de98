// Package finnly reads FinnlyConnect schedule pages.
//
// A FinnlyConnect page embeds its schedule as a JavaScript assignment
// ("_onlineScheduleList = [...];") inside the script block that also defines
// eventTypeResourceList. Each entry names the booking account (the session
// title), the facility (rink) and naive start and end timestamps.
package finnly

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/skate-feed/internal/event"
	"github.com/pfrederiksen/skate-feed/internal/source"
)

const (
	scriptMarker   = "eventTypeResourceList"
	scheduleMarker = "_onlineScheduleList = "
	timeLayout     = "2006-01-02T15:04:05"
)

// ErrNoSchedule is returned when the page carries no schedule list.
var ErrNoSchedule = errors.New("schedule list not found")

// Entry is one row of the embedded schedule list.
type Entry struct {
	FacilityName   string `json:"FacilityName"`
	AccountName    string `json:"AccountName"`
	EventStartTime string `json:"EventStartTime"`
	EventEndTime   string `json:"EventEndTime"`
	ScheduleNotes  string `json:"ScheduleNotes"`
}

// Rule maps booking account names to an event type and price. Exact is
// compared to the trimmed account name; otherwise Contains is searched for.
type Rule struct {
	Exact    string
	Contains string
	Type     event.Type
	Cost     event.Cost
}

func (r Rule) matches(account string) bool {
	account = strings.TrimSpace(account)
	if r.Exact != "" {
		return account == r.Exact
	}
	return r.Contains != "" && strings.Contains(account, r.Contains)
}

// NotesFunc builds the event notes of an entry.
type NotesFunc func(Entry) string

// FacilityNotes renders "account - facility".
func FacilityNotes(e Entry) string {
	return e.AccountName + " - " + e.FacilityName
}

// ScheduleNotes renders "account - schedule notes".
func ScheduleNotes(e Entry) string {
	return e.AccountName + " - " + e.ScheduleNotes
}

// Config describes one FinnlyConnect schedule.
type Config struct {
	Name  string
	URL   string
	Arena event.Arena
	Rules []Rule

	// Facilities maps facility names to dedicated arenas. When nil, every
	// entry uses Arena with the facility name as its notes.
	Facilities map[string]event.Arena

	// Notes defaults to FacilityNotes.
	Notes NotesFunc
}

// Source fetches one FinnlyConnect schedule.
type Source struct {
	cfg  Config
	deps source.Deps
}

// New returns a Source for cfg.
func New(cfg Config, deps source.Deps) *Source {
	if cfg.Notes == nil {
		cfg.Notes = FacilityNotes
	}
	return &Source{cfg: cfg, deps: deps.WithDefaults()}
}

func (s *Source) Name() string {
	return s.cfg.Name
}

// Fetch downloads the schedule page and converts matching entries to events.
func (s *Source) Fetch(ctx context.Context) ([]event.Event, error) {
	doc, err := s.deps.Client.GetDocument(ctx, s.cfg.URL)
	if err != nil {
		return nil, err
	}

	entries, err := ExtractSchedule(doc)
	if err != nil {
		return nil, err
	}

	return s.convert(entries)
}

// ExtractSchedule finds and decodes the embedded schedule list.
func ExtractSchedule(doc *goquery.Document) ([]Entry, error) {
	var (
		entries []Entry
		found   bool
		err     error
	)

	doc.Find("script").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		script := sel.Text()
		if !strings.Contains(script, scriptMarker) {
			return true
		}
		for _, line := range strings.Split(script, "\n") {
			_, list, ok := strings.Cut(line, scheduleMarker)
			if !ok {
				continue
			}
			list = strings.TrimSuffix(strings.TrimSpace(list), ";")
			found = true
			if err = json.Unmarshal([]byte(list), &entries); err != nil {
				err = fmt.Errorf("decoding schedule list: %w", err)
			}
			return false
		}
		return true
	})

	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNoSchedule
	}
	return entries, nil
}

func (s *Source) convert(entries []Entry) ([]event.Event, error) {
	var (
		events []event.Event
		errs   []error
	)

	for _, entry := range entries {
		rule, ok := s.rule(entry.AccountName)
		if !ok {
			continue
		}

		start, err := time.ParseInLocation(timeLayout, entry.EventStartTime, s.deps.Location)
		if err != nil {
			errs = append(errs, fmt.Errorf("parsing start of %q: %w", entry.AccountName, err))
			continue
		}
		end, err := time.ParseInLocation(timeLayout, entry.EventEndTime, s.deps.Location)
		if err != nil {
			errs = append(errs, fmt.Errorf("parsing end of %q: %w", entry.AccountName, err))
			continue
		}

		events = append(events, event.New(rule.Type, s.arena(entry.FacilityName), start, end, rule.Cost, s.cfg.Notes(entry)))
	}

	return events, errors.Join(errs...)
}

func (s *Source) rule(account string) (Rule, bool) {
	if account == "" {
		return Rule{}, false
	}
	for _, r := range s.cfg.Rules {
		if r.matches(account) {
			return r, true
		}
	}
	return Rule{}, false
}

func (s *Source) arena(facility string) event.Arena {
	if s.cfg.Facilities == nil {
		return s.cfg.Arena.WithNotes(facility)
	}
	if a, ok := s.cfg.Facilities[facility]; ok {
		return a
	}
	return event.Arena{Name: facility, Notes: "Unknown rink facility"}
}
