// Package calendar exports the feed as an iCalendar document so it can be
// subscribed to from calendar apps.
package calendar

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/pfrederiksen/skate-feed/internal/event"
)

// ProductID identifies this service in exported calendars.
const ProductID = "-//Skate Feed//skate-feed//EN"

// UIDDomain is appended to event IDs to form globally unique UIDs.
const UIDDomain = "skate-feed"

// GenerateICS generates an iCalendar (.ics) document with one VEVENT per
// event. UIDs derive from event.ID, so re-exporting the same session keeps
// its UID stable across refreshes.
func GenerateICS(events []event.Event, now time.Time) string {
	cal := ics.NewCalendar()
	cal.SetProductId(ProductID)
	cal.SetMethod(ics.MethodPublish)
	cal.SetName("Public Skate Sessions")

	stamp := now.UTC()
	for _, e := range events {
		vevent := cal.AddEvent(UID(e))
		vevent.SetDtStampTime(stamp)
		vevent.SetStartAt(e.Start)
		vevent.SetEndAt(e.End)
		vevent.SetSummary(Summary(e))
		vevent.SetDescription(Description(e))
		vevent.SetLocation(Location(e))
		vevent.SetStatus(ics.ObjectStatusConfirmed)
	}

	return cal.Serialize()
}

// UID returns the calendar UID of an event.
func UID(e event.Event) string {
	return fmt.Sprintf("%s@%s", e.ID(), UIDDomain)
}

// Summary is the one-line title, e.g. "Open Skate - Eagan Civic Arena".
func Summary(e event.Event) string {
	return fmt.Sprintf("%s - %s", e.Type.Label(), e.Arena.Name)
}

// Description lists notes and pricing, one item per line.
func Description(e event.Event) string {
	var lines []string
	if e.Notes != "" {
		lines = append(lines, e.Notes)
	}
	if e.Arena.Notes != "" && e.Arena.Notes != e.Notes {
		lines = append(lines, e.Arena.Notes)
	}

	cost := fmt.Sprintf("Cost: $%.2f", e.Cost.Amount)
	if e.Cost.Amount == 0 {
		cost = "Cost: Free"
	}
	if e.Cost.Notes != "" {
		cost += " (" + e.Cost.Notes + ")"
	}
	lines = append(lines, cost)

	return strings.Join(lines, "\n")
}

// Location is the arena name followed by its address when one is known.
func Location(e event.Event) string {
	if e.Arena.Address.Street == "" {
		return e.Arena.Name
	}
	return fmt.Sprintf("%s, %s", e.Arena.Name, e.Arena.Address)
}
