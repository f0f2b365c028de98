// Package recurring derives sessions from fixed weekly schedules for arenas
// that publish no machine-readable calendar.
package recurring

import (
	"context"
	"time"

	"github.com/pfrederiksen/skate-feed/internal/event"
	"github.com/pfrederiksen/skate-feed/internal/source"
)

// Slot is one weekly session.
type Slot struct {
	Weekday time.Weekday
	Start   event.TimeOfDay
	End     event.TimeOfDay
}

// MonthDay is a calendar day without a year.
type MonthDay struct {
	Month time.Month
	Day   int
}

// Season bounds a schedule that only runs part of the year. A season whose
// End is before its Start runs across New Year.
type Season struct {
	Start MonthDay
	End   MonthDay
}

// Bounds returns the first and last day of the season that contains t, or
// of the next season when t is between seasons. The last day is inclusive.
func (s Season) Bounds(t time.Time) (time.Time, time.Time) {
	loc := t.Location()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	wraps := s.End.Month < s.Start.Month || (s.End.Month == s.Start.Month && s.End.Day < s.Start.Day)

	for year := t.Year() - 1; ; year++ {
		start := time.Date(year, s.Start.Month, s.Start.Day, 0, 0, 0, 0, loc)
		endYear := year
		if wraps {
			endYear++
		}
		end := time.Date(endYear, s.End.Month, s.End.Day, 0, 0, 0, 0, loc)
		if !end.Before(day) {
			return start, end
		}
	}
}

// Config describes one recurring schedule.
type Config struct {
	Name  string
	Arena event.Arena
	Type  event.Type
	Cost  event.Cost
	Notes string
	Slots []Slot

	// Days limits generation to this many days starting today. Zero means
	// until the end of the season.
	Days int
	// Season, when set, restricts sessions to the season.
	Season *Season
	// Limit caps the number of sessions returned. Zero means no cap.
	Limit int
	// SkipHolidays drops sessions on New Year's Day, Thanksgiving and Christmas.
	SkipHolidays bool
}

// Source generates the sessions of one recurring schedule.
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

// Fetch returns the upcoming sessions. It never fails.
func (s *Source) Fetch(ctx context.Context) ([]event.Event, error) {
	return s.Sessions(s.deps.Now()), nil
}

// Sessions returns the sessions starting at or after now, in time order.
func (s *Source) Sessions(now time.Time) []event.Event {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	first, last := today, time.Time{}

	if s.cfg.Season != nil {
		start, end := s.cfg.Season.Bounds(now)
		if start.After(first) {
			first = start
		}
		last = end
	}
	if s.cfg.Days > 0 {
		limit := today.AddDate(0, 0, s.cfg.Days-1)
		if last.IsZero() || limit.Before(last) {
			last = limit
		}
	}
	if last.IsZero() {
		return nil
	}

	var events []event.Event
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		if s.cfg.SkipHolidays && IsHoliday(day) {
			continue
		}
		for _, slot := range s.cfg.Slots {
			if day.Weekday() != slot.Weekday {
				continue
			}
			start := slot.Start.On(day)
			if start.Before(now) {
				continue
			}
			events = append(events, event.New(s.cfg.Type, s.cfg.Arena, start, slot.End.On(day), s.cfg.Cost, s.cfg.Notes))
			if s.cfg.Limit > 0 && len(events) == s.cfg.Limit {
				return events
			}
		}
	}
	return events
}
