// Package ical reads iCalendar feeds whose events are described in free
// text, such as municipal facility calendars.
package ical

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/pfrederiksen/skate-feed/internal/event"
	"github.com/pfrederiksen/skate-feed/internal/source"
)

// Rule selects events whose description contains Match.
type Rule struct {
	Match string
	Type  event.Type
}

// Config describes one iCalendar feed.
type Config struct {
	Name  string
	URL   string
	Arena event.Arena
	Rules []Rule
}

// Source fetches one iCalendar feed.
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

// Fetch downloads and parses the feed.
func (s *Source) Fetch(ctx context.Context) ([]event.Event, error) {
	body, err := s.deps.Client.Get(ctx, s.cfg.URL)
	if err != nil {
		return nil, err
	}

	cal, err := ics.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing calendar: %w", err)
	}

	return s.convert(cal.Events())
}

func (s *Source) convert(vevents []*ics.VEvent) ([]event.Event, error) {
	var (
		events []event.Event
		errs   []error
	)

	for _, ve := range vevents {
		description := text(ve, ics.ComponentPropertyDescription)
		rule, ok := s.rule(description)
		if !ok {
			continue
		}

		start, err := s.timeProp(ve, ics.ComponentPropertyDtStart)
		if err != nil {
			errs = append(errs, fmt.Errorf("reading start of %q: %w", ve.Id(), err))
			continue
		}
		end, err := s.timeProp(ve, ics.ComponentPropertyDtEnd)
		if err != nil {
			errs = append(errs, fmt.Errorf("reading end of %q: %w", ve.Id(), err))
			continue
		}

		notes := strings.ReplaceAll(description, "\n", " - ")
		if notes == "" {
			notes = text(ve, ics.ComponentPropertySummary)
		}

		events = append(events, event.New(rule.Type, s.cfg.Arena, start, end, event.Cost{Amount: ParseAdmission(description)}, notes))
	}

	return events, errors.Join(errs...)
}

func (s *Source) rule(description string) (Rule, bool) {
	for _, r := range s.cfg.Rules {
		if strings.Contains(description, r.Match) {
			return r, true
		}
	}
	return Rule{}, false
}

// timeProp reads a DTSTART or DTEND value. Floating times (no TZID and no
// trailing Z) are wall-clock times in the feed location. Seconds are dropped.
func (s *Source) timeProp(ve *ics.VEvent, prop ics.ComponentProperty) (time.Time, error) {
	var (
		t   time.Time
		err error
	)
	if prop == ics.ComponentPropertyDtStart {
		t, err = ve.GetStartAt()
	} else {
		t, err = ve.GetEndAt()
	}
	if err != nil {
		return time.Time{}, err
	}

	p := ve.GetProperty(prop)
	_, hasTZ := p.ICalParameters[string(ics.ParameterTzid)]
	if !hasTZ && !strings.HasSuffix(p.Value, "Z") {
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, s.deps.Location), nil
	}
	return t.In(s.deps.Location).Truncate(time.Minute), nil
}

func text(ve *ics.VEvent, prop ics.ComponentProperty) string {
	p := ve.GetProperty(prop)
	if p == nil {
		return ""
	}
	v := strings.NewReplacer(`\n`, "\n", `\N`, "\n", `\,`, ",", `\;`, ";", `\\`, `\`).Replace(p.Value)
	return strings.TrimRight(v, " \t\r\n")
}

// ParseAdmission reads the price from an "Admission: $6/person & ..." line.
// It returns 0 when no admission line is present or the price is unreadable.
func ParseAdmission(description string) float64 {
	for _, line := range strings.Split(description, "\n") {
		if !strings.Contains(line, "Admission") {
			continue
		}
		_, value, ok := strings.Cut(line, ":")
		if !ok {
			return 0
		}
		value, _, _ = strings.Cut(value, "&")
		value, _, _ = strings.Cut(value, "/")
		value = strings.TrimPrefix(strings.TrimSpace(value), "$")
		amount, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return 0
		}
		return amount
	}
	return 0
}
