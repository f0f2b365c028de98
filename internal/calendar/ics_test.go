package calendar

import (
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/pfrederiksen/skate-feed/internal/event"
)

var testLoc = time.FixedZone("CST", -6*60*60)

func testEvent() event.Event {
	arena := event.Arena{
		Name: "Bloomington Ice Garden",
		Address: event.Address{
			Street: "3600 W 98th St",
			City:   "Bloomington",
			State:  "MN",
			Zip:    "55431",
		},
		Notes: "Rink 2",
	}
	start := time.Date(2025, 12, 28, 13, 30, 0, 0, testLoc)
	return event.New(event.OpenSkate, arena, start, start.Add(90*time.Minute),
		event.Cost{Amount: 8, Notes: "Skate rental $4"}, "Open Skate; all ages")
}

func TestGenerateICS(t *testing.T) {
	evt := testEvent()
	now := time.Date(2025, 12, 27, 8, 0, 0, 0, time.UTC)

	out := GenerateICS([]event.Event{evt}, now)

	requiredFields := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + ProductID,
		"METHOD:PUBLISH",
		"BEGIN:VEVENT",
		"UID:" + evt.ID() + "@skate-feed",
		"DTSTAMP:20251227T080000Z",
		"DTSTART:20251228T193000Z",
		"DTEND:20251228T210000Z",
		"END:VEVENT",
		"END:VCALENDAR",
	}

	for _, field := range requiredFields {
		if !strings.Contains(out, field) {
			t.Errorf("ICS missing required field: %s", field)
		}
	}

	if !strings.Contains(out, "\r\n") {
		t.Error("ICS should use \\r\\n line endings")
	}
}

func TestGenerateICS_RoundTrip(t *testing.T) {
	evt := testEvent()
	out := GenerateICS([]event.Event{evt}, time.Now())

	cal, err := ics.ParseCalendar(strings.NewReader(out))
	if err != nil {
		t.Fatalf("ParseCalendar() error: %v", err)
	}

	events := cal.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	vevent := events[0]

	if got := vevent.Id(); got != UID(evt) {
		t.Errorf("UID = %q, want %q", got, UID(evt))
	}

	start, err := vevent.GetStartAt()
	if err != nil {
		t.Fatalf("GetStartAt() error: %v", err)
	}
	if !start.Equal(evt.Start) {
		t.Errorf("start = %v, want %v", start, evt.Start)
	}

	summary := vevent.GetProperty(ics.ComponentPropertySummary)
	if summary == nil || summary.Value != "Open Skate - Bloomington Ice Garden" {
		t.Errorf("summary = %+v", summary)
	}
}

func TestGenerateICS_Empty(t *testing.T) {
	out := GenerateICS(nil, time.Now())

	if !strings.Contains(out, "BEGIN:VCALENDAR") || !strings.Contains(out, "END:VCALENDAR") {
		t.Error("empty feed should still produce a calendar")
	}
	if strings.Contains(out, "BEGIN:VEVENT") {
		t.Error("empty feed should have no events")
	}
}

func TestGenerateICS_StableUIDs(t *testing.T) {
	evt := testEvent()
	first := GenerateICS([]event.Event{evt}, time.Now())

	renamed := evt
	renamed.Notes = "different notes"
	second := GenerateICS([]event.Event{renamed}, time.Now().Add(time.Hour))

	uid := "UID:" + UID(evt)
	if !strings.Contains(first, uid) || !strings.Contains(second, uid) {
		t.Error("UID should not depend on notes or export time")
	}
}

func TestDescription(t *testing.T) {
	evt := testEvent()
	want := "Open Skate; all ages\nRink 2\nCost: $8.00 (Skate rental $4)"
	if got := Description(evt); got != want {
		t.Errorf("Description() = %q, want %q", got, want)
	}

	free := evt
	free.Notes = ""
	free.Arena.Notes = ""
	free.Cost = event.Cost{}
	if got := Description(free); got != "Cost: Free" {
		t.Errorf("Description() = %q, want %q", got, "Cost: Free")
	}
}

func TestLocation(t *testing.T) {
	evt := testEvent()
	want := "Bloomington Ice Garden, 3600 W 98th St, Bloomington, MN 55431"
	if got := Location(evt); got != want {
		t.Errorf("Location() = %q, want %q", got, want)
	}

	evt.Arena.Address = event.Address{}
	if got := Location(evt); got != "Bloomington Ice Garden" {
		t.Errorf("Location() = %q", got)
	}
}
