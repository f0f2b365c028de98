package civicplus

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/skate-feed/internal/clock"
	"github.com/pfrederiksen/skate-feed/internal/event"
	"github.com/pfrederiksen/skate-feed/internal/source"
)

var testLoc = time.FixedZone("CST", -6*60*60)

const listPage = `<html><body><div id="CID99"><ol>
<li><h3><a href="/Calendar.aspx?EID=100"><span>Public Skating</span></a></h3>
  <div class="date">December 28, 2025, 1:30 PM - 3:00 PM</div></li>
<li><h3><a href="/Calendar.aspx?EID=101"><span>Stick and Puck</span></a></h3>
  <div class="date">December 29, 2025, 10:00 AM – 11:15 AM</div></li>
<li><h3><a href="/Calendar.aspx?EID=102"><span>Learn to Skate</span></a></h3>
  <div class="date">December 29, 2025, 9:00 AM - 10:00 AM</div></li>
<li><h3><a href="/Calendar.aspx?EID=100"><span>Public Skating</span></a></h3>
  <div class="date">December 30, 2025, 1:30 PM - 3:00 PM</div></li>
</ol></div></body></html>`

const costPage = `<html><body><div id="costDiv">
  $8 per skater
  Skate rental $3
</div></body></html>`

const monthPage = `<html><body><table><tr>
<td><div class="monthItem"><a href="#"><span>Open Skate Session</span></a>
  <div class="tooltipInner"><a href="/Calendar.aspx?EID=4411&month=1&year=2026&day=4&calType=0">details</a>
  <div><dl><dt>Time</dt><dd>12:30 PM - 2:00 PM</dd></dl></div></div></div></td>
<td><div class="monthItem"><a href="#"><span>Stick &amp; Puck Session</span></a>
  <div class="tooltipInner"><a href="/Calendar.aspx?EID=4412&month=1&year=2026&day=5&calType=0">details</a>
  <div><dl><dt>Time</dt><dd>6:00 PM - 7:00 PM</dd></dl></div></div></div></td>
<td><div class="monthItem"><a href="#"><span>City Council</span></a>
  <div class="tooltipInner"><a href="/Calendar.aspx?EID=4413&month=1&year=2026&day=6&calType=0">details</a>
  <div><dl><dt>Time</dt><dd>7:00 PM - 9:00 PM</dd></dl></div></div></div></td>
</tr></table></body></html>`

func TestFetchListLayout(t *testing.T) {
	var costHits, calendarHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/calendar.aspx", func(w http.ResponseWriter, r *http.Request) {
		calendarHits.Add(1)
		assert.Equal(t, "99", r.URL.Query().Get("CID"))
		assert.Equal(t, "12", r.URL.Query().Get("month"))
		assert.Equal(t, "2025", r.URL.Query().Get("year"))
		fmt.Fprint(w, listPage)
	})
	mux.HandleFunc("/Calendar.aspx", func(w http.ResponseWriter, r *http.Request) {
		costHits.Add(1)
		fmt.Fprint(w, costPage)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	src := New(Config{
		Name:         "burnsville",
		CalendarURL:  server.URL + "/calendar.aspx?CID=99",
		Layout:       ListLayout,
		Arena:        event.Arena{Name: "Burnsville Ice Center"},
		ListSelector: "#CID99 li",
		CostSelector: "#costDiv",
		Rules: []Rule{
			{Titles: []string{"Public Skating"}, Type: event.OpenSkate, Cost: event.Cost{Amount: 8}},
			{Titles: []string{"Stick and Puck"}, Type: event.StickAndPuck, Cost: event.Cost{Amount: 8}},
		},
		NextMonthWithin: 3,
	}, source.Deps{
		Location: testLoc,
		Clock:    clock.NewFixed(time.Date(2025, 12, 10, 9, 0, 0, 0, testLoc)),
	})

	events, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, int32(1), calendarHits.Load(), "next month is not fetched mid-month")
	assert.Equal(t, int32(2), costHits.Load(), "cost pages are fetched once per link")

	assert.Equal(t, event.OpenSkate, events[0].Type)
	assert.True(t, events[0].Start.Equal(time.Date(2025, 12, 28, 13, 30, 0, 0, testLoc)))
	assert.True(t, events[0].End.Equal(time.Date(2025, 12, 28, 15, 0, 0, 0, testLoc)))
	assert.Equal(t, "$8 per skater Skate rental $3", events[0].Cost.Notes)
	assert.Equal(t, 8.0, events[0].Cost.Amount)

	assert.Equal(t, event.StickAndPuck, events[1].Type)
	assert.True(t, events[1].End.Equal(time.Date(2025, 12, 29, 11, 15, 0, 0, testLoc)))
}

func TestFetchMonthLayout(t *testing.T) {
	var (
		mu     sync.Mutex
		months []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		months = append(months, r.URL.Query().Get("month"))
		mu.Unlock()
		assert.Equal(t, "26,27", r.URL.Query().Get("CID"))
		if r.URL.Query().Get("month") == "1" {
			fmt.Fprint(w, monthPage)
			return
		}
		fmt.Fprint(w, `<html><body></body></html>`)
	}))
	defer server.Close()

	src := New(Config{
		Name:        "south-st-paul",
		CalendarURL: server.URL + "/calendar.aspx?CID=26,27",
		Layout:      MonthLayout,
		Arena:       event.Arena{Name: "Doug Woog Arena"},
		Rules: []Rule{
			{Titles: []string{"Open Skate Session"}, Type: event.OpenSkate, Cost: event.Cost{Amount: 5}},
			{Titles: []string{"Stick & Puck Session", "Stick and Puck Session"}, Type: event.StickAndPuck, Cost: event.Cost{Amount: 5}},
		},
		NextMonthWithin: 31,
	}, source.Deps{
		Location: testLoc,
		Clock:    clock.NewFixed(time.Date(2025, 12, 10, 9, 0, 0, 0, testLoc)),
	})

	events, err := src.Fetch(context.Background())
	require.NoError(t, err)
	mu.Lock()
	assert.Equal(t, []string{"12", "1"}, months)
	mu.Unlock()
	require.Len(t, events, 2)

	assert.Equal(t, event.OpenSkate, events[0].Type)
	assert.True(t, events[0].Start.Equal(time.Date(2026, 1, 4, 12, 30, 0, 0, testLoc)))
	assert.True(t, events[0].End.Equal(time.Date(2026, 1, 4, 14, 0, 0, 0, testLoc)))
	assert.Equal(t, event.StickAndPuck, events[1].Type)
	assert.True(t, events[1].Start.Equal(time.Date(2026, 1, 5, 18, 0, 0, 0, testLoc)))
}

func TestFetchPartialFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("month") == "1" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, listPage)
	}))
	defer server.Close()

	src := New(Config{
		Name:         "burnsville",
		CalendarURL:  server.URL + "/calendar.aspx?CID=99",
		ListSelector: "#CID99 li",
		Rules: []Rule{
			{Titles: []string{"Public Skating"}, Type: event.OpenSkate, Cost: event.Cost{Amount: 8}},
		},
		NextMonthWithin: 3,
	}, source.Deps{
		Location: testLoc,
		Clock:    clock.NewFixed(time.Date(2025, 12, 30, 9, 0, 0, 0, testLoc)),
	})

	events, err := src.Fetch(context.Background())
	assert.Error(t, err)
	assert.Len(t, events, 2, "current month is kept when next month fails")
}

func TestDaysLeftInMonth(t *testing.T) {
	tests := []struct {
		day  time.Time
		want int
	}{
		{time.Date(2025, 12, 28, 0, 0, 0, 0, testLoc), 3},
		{time.Date(2025, 12, 31, 0, 0, 0, 0, testLoc), 0},
		{time.Date(2024, 2, 1, 0, 0, 0, 0, testLoc), 28},
		{time.Date(2025, 2, 1, 0, 0, 0, 0, testLoc), 27},
	}
	for _, tt := range tests {
		t.Run(tt.day.Format("2006-01-02"), func(t *testing.T) {
			assert.Equal(t, tt.want, DaysLeftInMonth(tt.day))
		})
	}
}

func TestParseListDate(t *testing.T) {
	start, end, err := ParseListDate("January 4, 2026, 11:30 AM - 1:00 PM", testLoc)
	require.NoError(t, err)
	assert.True(t, start.Equal(time.Date(2026, 1, 4, 11, 30, 0, 0, testLoc)))
	assert.True(t, end.Equal(time.Date(2026, 1, 4, 13, 0, 0, 0, testLoc)))

	_, _, err = ParseListDate("January 4 2026 11:30 AM", testLoc)
	assert.Error(t, err)
}

func TestParseDayLink(t *testing.T) {
	day, err := ParseDayLink("/Calendar.aspx?EID=4411&month=12&year=2025&day=28&calType=0", testLoc)
	require.NoError(t, err)
	assert.True(t, day.Equal(time.Date(2025, 12, 28, 0, 0, 0, 0, testLoc)))

	_, err = ParseDayLink("/Calendar.aspx?EID=4411&month=12", testLoc)
	assert.Error(t, err)
}
