package server

import (
	"time"

	"github.com/pfrederiksen/skate-feed/internal/event"
)

// WireTimeLayout is the timestamp format of the JSON feed.
const WireTimeLayout = "2006-01-02 15:04"

// Cost is the wire form of an event's admission price.
type Cost struct {
	Cost float64 `json:"cost"`
}

// Event is the wire form of one session.
type Event struct {
	Arena     event.Arena `json:"arena"`
	EventType string      `json:"event_type"`
	StartTime string      `json:"start_time"`
	EndTime   string      `json:"end_time"`
	Notes     string      `json:"notes"`
	Cost      Cost        `json:"cost"`
}

// ToWire converts events to their wire form with times rendered in loc.
// The result is never nil, so an empty feed encodes as [].
func ToWire(events []event.Event, loc *time.Location) []Event {
	out := make([]Event, len(events))
	for i, e := range events {
		out[i] = Event{
			Arena:     e.Arena,
			EventType: e.Type.Label(),
			StartTime: e.Start.In(loc).Format(WireTimeLayout),
			EndTime:   e.End.In(loc).Format(WireTimeLayout),
			Notes:     e.Notes,
			Cost:      Cost{Cost: e.Cost.Amount},
		}
	}
	return out
}
