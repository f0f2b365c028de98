package event

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// DateTimeLayouts are the timestamp layouts published by schedule sources.
// ParseDateTime tries them in order.
var DateTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"January 2 2006 3:04 PM",
	"January 2, 2006 3:04 PM",
	"Jan 2 2006 3:04 PM",
}

// ParseDateTime parses a naive source timestamp in loc.
// Supports formats: "2025-12-28T13:30:00", "2025-12-28 13:30:00", "December 28 2025 1:30 PM"
func ParseDateTime(text string, loc *time.Location) (time.Time, error) {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if loc == nil {
		loc = time.Local
	}

	for _, layout := range DateTimeLayouts {
		if t, err := time.ParseInLocation(layout, text, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", text)
}

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// On returns the time of day on the calendar date of d, in d's location.
func (c TimeOfDay) On(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour, c.Minute, 0, 0, d.Location())
}

func (c TimeOfDay) before(o TimeOfDay) bool {
	return c.Hour < o.Hour || (c.Hour == o.Hour && c.Minute < o.Minute)
}

type meridiem int

const (
	noMeridiem meridiem = iota
	am
	pm
)

// ParseTimeOfDay parses clock text such as "1:30 PM", "11:30a", "3:00pm" or "13:30".
// When the text carries no am/pm marker it is read as 24-hour time,
// unless assumePM is set, in which case hours 1-11 are afternoon hours.
func ParseTimeOfDay(text string, assumePM bool) (TimeOfDay, error) {
	clean, mer := splitMeridiem(text)
	if mer == noMeridiem && assumePM {
		mer = pm
	}
	return parseClock(clean, mer, text)
}

// ParseTimeRange parses ranges like "12:30 PM - 2:00 PM", "11:30a-1:00p" or
// "1:30-3:00pm". A start without a marker inherits the end's marker unless
// that would put it after the end, in which case it is read as morning.
func ParseTimeRange(text string, assumePM bool) (TimeOfDay, TimeOfDay, error) {
	text = strings.NewReplacer("–", "-", "—", "-").Replace(text)
	parts := strings.Split(text, "-")
	if len(parts) != 2 {
		return TimeOfDay{}, TimeOfDay{}, fmt.Errorf("invalid time range %q", text)
	}

	endClean, endMer := splitMeridiem(parts[1])
	if endMer == noMeridiem && assumePM {
		endMer = pm
	}
	end, err := parseClock(endClean, endMer, parts[1])
	if err != nil {
		return TimeOfDay{}, TimeOfDay{}, err
	}

	startClean, startMer := splitMeridiem(parts[0])
	if startMer != noMeridiem {
		start, err := parseClock(startClean, startMer, parts[0])
		return start, end, err
	}

	start, err := parseClock(startClean, endMer, parts[0])
	if err != nil {
		return TimeOfDay{}, TimeOfDay{}, err
	}
	if endMer == pm && end.before(start) {
		start, err = parseClock(startClean, am, parts[0])
	}
	return start, end, err
}

// splitMeridiem strips whitespace, non-ASCII characters and any trailing
// am/pm marker ("a", "am", "a.m.", "p", "pm", "p.m."), case-insensitively.
func splitMeridiem(text string) (string, meridiem) {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if r > unicode.MaxASCII || unicode.IsSpace(r) || r == '.' {
			continue
		}
		b.WriteRune(r)
	}
	s := b.String()

	switch {
	case strings.HasSuffix(s, "am"):
		return strings.TrimSuffix(s, "am"), am
	case strings.HasSuffix(s, "pm"):
		return strings.TrimSuffix(s, "pm"), pm
	case strings.HasSuffix(s, "a"):
		return strings.TrimSuffix(s, "a"), am
	case strings.HasSuffix(s, "p"):
		return strings.TrimSuffix(s, "p"), pm
	}
	return s, noMeridiem
}

func parseClock(s string, mer meridiem, original string) (TimeOfDay, error) {
	hourText, minuteText, hasMinutes := strings.Cut(s, ":")
	hour, err := strconv.Atoi(hourText)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time %q", strings.TrimSpace(original))
	}
	minute := 0
	if hasMinutes {
		minute, err = strconv.Atoi(minuteText)
		if err != nil || minute < 0 || minute > 59 {
			return TimeOfDay{}, fmt.Errorf("invalid time %q", strings.TrimSpace(original))
		}
	}

	switch mer {
	case noMeridiem:
		if hour < 0 || hour > 23 {
			return TimeOfDay{}, fmt.Errorf("invalid time %q", strings.TrimSpace(original))
		}
	default:
		if hour < 1 || hour > 12 {
			return TimeOfDay{}, fmt.Errorf("invalid time %q", strings.TrimSpace(original))
		}
		if hour == 12 {
			hour = 0
		}
		if mer == pm {
			hour += 12
		}
	}

	return TimeOfDay{Hour: hour, Minute: minute}, nil
}
