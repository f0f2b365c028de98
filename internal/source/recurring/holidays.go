package recurring

import "time"

// Thanksgiving returns the fourth Thursday of November of year.
func Thanksgiving(year int, loc *time.Location) time.Time {
	first := time.Date(year, time.November, 1, 0, 0, 0, 0, loc)
	offset := (int(time.Thursday) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+21)
}

// IsHoliday reports whether t falls on New Year's Day, Thanksgiving or
// Christmas Day, the days the recurring schedules are closed.
func IsHoliday(t time.Time) bool {
	switch {
	case t.Month() == time.January && t.Day() == 1:
		return true
	case t.Month() == time.December && t.Day() == 25:
		return true
	}
	tg := Thanksgiving(t.Year(), t.Location())
	return t.Month() == tg.Month() && t.Day() == tg.Day()
}
