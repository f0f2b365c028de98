package finnly

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/skate-feed/internal/event"
	"github.com/pfrederiksen/skate-feed/internal/source"
)

var testLoc = time.FixedZone("CST", -6*60*60)

const schedulePage = `<html><head>
<script>var x = 1;</script>
<script>
  var eventTypeResourceList = [];
  var _onlineScheduleList = [{"FacilityName":"Rink 1","AccountName":"Open Skating","EventStartTime":"2025-12-28T13:00:00","EventEndTime":"2025-12-28T14:30:00","ScheduleNotes":""},{"FacilityName":"Rink 2","AccountName":"Developmental Ice - Youth","EventStartTime":"2025-12-28T15:00:00","EventEndTime":"2025-12-28T16:00:00","ScheduleNotes":null},{"FacilityName":"Rink 1","AccountName":"Figure Skating Club","EventStartTime":"2025-12-28T16:00:00","EventEndTime":"2025-12-28T17:00:00","ScheduleNotes":""},{"FacilityName":"Rink 1","AccountName":"Open Skating","EventStartTime":"bad","EventEndTime":"2025-12-28T18:00:00","ScheduleNotes":""}];
</script>
</head><body></body></html>`

func serve(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func bloomington(url string) *Source {
	return New(Config{
		Name:  "bloomington",
		URL:   url,
		Arena: event.Arena{Name: "Bloomington Ice Garden"},
		Rules: []Rule{
			{Contains: "Developmental Ice", Type: event.StickAndPuck, Cost: event.Cost{Amount: 12}},
			{Contains: "Open Skating", Type: event.OpenSkate, Cost: event.Cost{Amount: 5}},
		},
	}, source.Deps{Location: testLoc})
}

func TestFetch(t *testing.T) {
	server := serve(t, schedulePage)

	events, err := bloomington(server.URL).Fetch(context.Background())

	// the malformed row is reported but the others are kept
	assert.Error(t, err)
	require.Len(t, events, 2)

	open := events[0]
	assert.Equal(t, event.OpenSkate, open.Type)
	assert.Equal(t, 5.0, open.Cost.Amount)
	assert.Equal(t, "Rink 1", open.Arena.Notes)
	assert.Equal(t, "Open Skating - Rink 1", open.Notes)
	assert.True(t, open.Start.Equal(time.Date(2025, 12, 28, 13, 0, 0, 0, testLoc)))
	assert.True(t, open.End.Equal(time.Date(2025, 12, 28, 14, 30, 0, 0, testLoc)))

	stick := events[1]
	assert.Equal(t, event.StickAndPuck, stick.Type)
	assert.Equal(t, 12.0, stick.Cost.Amount)
	assert.Equal(t, "Rink 2", stick.Arena.Notes)

	// arena notes are per event, never shared
	assert.Equal(t, "Rink 1", events[0].Arena.Notes)
}

func TestFetchFacilities(t *testing.T) {
	page := `<script>eventTypeResourceList = {};
_onlineScheduleList = [{"FacilityName":"3.Hasse Arena","AccountName":"PUBLIC OPEN SKATING","EventStartTime":"2025-12-28T13:00:00","EventEndTime":"2025-12-28T14:00:00","ScheduleNotes":"Skate rental available"},{"FacilityName":"9.Somewhere","AccountName":"PUBLIC STICK & PUCK - ALL AGES","EventStartTime":"2025-12-28T15:00:00","EventEndTime":"2025-12-28T16:00:00","ScheduleNotes":"Helmets required"},{"FacilityName":"3.Hasse Arena","AccountName":"PUBLIC OPEN SKATING - LATE","EventStartTime":"2025-12-28T20:00:00","EventEndTime":"2025-12-28T21:00:00","ScheduleNotes":""}];
</script>`
	server := serve(t, page)

	hasse := event.Arena{Name: "Hasse Arena", Address: event.Address{City: "Lakeville"}}
	src := New(Config{
		Name: "lakeville",
		URL:  server.URL,
		Rules: []Rule{
			{Exact: "PUBLIC STICK & PUCK - ALL AGES", Type: event.StickAndPuck, Cost: event.Cost{Amount: 10}},
			{Exact: "PUBLIC OPEN SKATING", Type: event.OpenSkate, Cost: event.Cost{Amount: 10}},
		},
		Facilities: map[string]event.Arena{"3.Hasse Arena": hasse},
		Notes:      ScheduleNotes,
	}, source.Deps{Location: testLoc})

	events, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, hasse, events[0].Arena)
	assert.Equal(t, "PUBLIC OPEN SKATING - Skate rental available", events[0].Notes)

	assert.Equal(t, "9.Somewhere", events[1].Arena.Name)
	assert.Equal(t, "Unknown rink facility", events[1].Arena.Notes)
	assert.Equal(t, event.StickAndPuck, events[1].Type)
}

func TestFetchNoSchedule(t *testing.T) {
	server := serve(t, `<html><script>var nothing = true;</script></html>`)

	events, err := bloomington(server.URL).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrNoSchedule)
	assert.Empty(t, events)
}

func TestFetchMalformedList(t *testing.T) {
	server := serve(t, `<script>eventTypeResourceList = 1;
_onlineScheduleList = [{"FacilityName":;
</script>`)

	_, err := bloomington(server.URL).Fetch(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSchedule)
}
