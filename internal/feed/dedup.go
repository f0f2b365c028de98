package feed

import "github.com/pfrederiksen/skate-feed/internal/event"

// Dedup removes events that describe the same session, keeping the first
// occurrence of each in input order. Dedup(Dedup(x)) == Dedup(x).
func Dedup(events []event.Event) []event.Event {
	seen := make(map[event.Key]struct{}, len(events))
	unique := make([]event.Event, 0, len(events))
	for _, e := range events {
		k := e.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, e)
	}
	return unique
}
