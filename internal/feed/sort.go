package feed

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pfrederiksen/skate-feed/internal/event"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByTime  SortOrder = "time"
	SortByArena SortOrder = "arena"
	SortByCost  SortOrder = "cost"
)

// ParseSortOrder validates a sort order name. Empty means SortByTime.
func ParseSortOrder(s string) (SortOrder, error) {
	switch order := SortOrder(strings.ToLower(strings.TrimSpace(s))); order {
	case "":
		return SortByTime, nil
	case SortByTime, SortByArena, SortByCost:
		return order, nil
	default:
		return "", fmt.Errorf("invalid sort order %q (use time, arena or cost)", s)
	}
}

// Sort returns a copy of events ordered by event.Compare. The sort is
// stable, so events that compare equal keep their input order.
func Sort(events []event.Event) []event.Event {
	return SortBy(events, SortByTime)
}

// SortBy returns a stably sorted copy of events. SortByArena and SortByCost
// fall back to the canonical order when their keys tie.
func SortBy(events []event.Event, order SortOrder) []event.Event {
	sorted := make([]event.Event, len(events))
	copy(sorted, events)

	switch order {
	case SortByArena:
		sort.SliceStable(sorted, func(i, j int) bool {
			a, b := sorted[i], sorted[j]
			if an, bn := strings.ToLower(a.Arena.Name), strings.ToLower(b.Arena.Name); an != bn {
				return an < bn
			}
			return event.Compare(a, b) < 0
		})
	case SortByCost:
		sort.SliceStable(sorted, func(i, j int) bool {
			a, b := sorted[i], sorted[j]
			if ac, bc := a.Cost.Cents(), b.Cost.Cents(); ac != bc {
				return ac < bc
			}
			return event.Compare(a, b) < 0
		})
	default:
		sort.SliceStable(sorted, func(i, j int) bool {
			return event.Compare(sorted[i], sorted[j]) < 0
		})
	}

	return sorted
}
