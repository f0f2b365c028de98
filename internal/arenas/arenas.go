// Package arenas holds the static registry of schedule sources: one entry
// per arena, with its address, prices and the adapter that reads it.
package arenas

import (
	"time"

	"github.com/pfrederiksen/skate-feed/internal/event"
	"github.com/pfrederiksen/skate-feed/internal/source"
	"github.com/pfrederiksen/skate-feed/internal/source/activenet"
	"github.com/pfrederiksen/skate-feed/internal/source/civicplus"
	"github.com/pfrederiksen/skate-feed/internal/source/finnly"
	"github.com/pfrederiksen/skate-feed/internal/source/ical"
	"github.com/pfrederiksen/skate-feed/internal/source/pdfcal"
	"github.com/pfrederiksen/skate-feed/internal/source/recurring"
)

// Source names.
const (
	AppleValley       = "apple-valley"
	Burnsville        = "burnsville"
	Lakeville         = "lakeville"
	Eagan             = "eagan"
	Rosemount         = "rosemount"
	Bloomington       = "bloomington"
	InverGroveHeights = "inver-grove-heights"
	Richfield         = "richfield"
	SouthStPaul       = "south-st-paul"
	Farmington        = "farmington"
	Shakopee          = "shakopee"
)

// Default returns every configured source in registration order.
func Default(deps source.Deps) []source.Source {
	deps = deps.WithDefaults()
	return []source.Source{
		recurring.New(appleValley(), deps),
		civicplus.New(burnsville(), deps),
		finnly.New(lakeville(), deps),
		ical.New(eagan(), deps),
		pdfcal.New(rosemount(), deps),
		finnly.New(bloomington(), deps),
		activenet.New(inverGroveHeights(), deps),
		activenet.New(richfield(), deps),
		civicplus.New(southStPaul(), deps),
		recurring.New(farmington(), deps),
		finnly.New(shakopee(), deps),
	}
}

func cost(amount float64) event.Cost {
	return event.Cost{Amount: amount}
}

func appleValley() recurring.Config {
	return recurring.Config{
		Name: AppleValley,
		Arena: event.Arena{
			Name:    "Apple Valley Sports Arena",
			Address: event.Address{Street: "14452 Hayes Rd", City: "Apple Valley", State: "MN", Zip: "55124"},
		},
		Type: event.OpenSkate,
		Cost: cost(5),
		Slots: []recurring.Slot{
			{Weekday: time.Sunday, Start: event.TimeOfDay{Hour: 15, Minute: 30}, End: event.TimeOfDay{Hour: 18}},
		},
		Season: &recurring.Season{
			Start: recurring.MonthDay{Month: time.October, Day: 19},
			End:   recurring.MonthDay{Month: time.February, Day: 22},
		},
		Limit: 4,
	}
}

func burnsville() civicplus.Config {
	return civicplus.Config{
		Name:        Burnsville,
		CalendarURL: "https://www.burnsvillemn.gov/calendar.aspx?CID=99",
		Layout:      civicplus.ListLayout,
		Arena: event.Arena{
			Name:    "Burnsville Ice Center",
			Address: event.Address{Street: "251 Civic Center Parkway", City: "Burnsville", State: "MN", Zip: "55337"},
		},
		Rules: []civicplus.Rule{
			{Titles: []string{"Public Skating"}, Type: event.OpenSkate, Cost: cost(8)},
			{Titles: []string{"Stick and Puck"}, Type: event.StickAndPuck, Cost: cost(8)},
		},
		ListSelector:    "#CID99 li",
		CostSelector:    "#ctl00_ctl00_MainContent_ModuleContent_ctl00_ctl04_costDiv",
		NextMonthWithin: 3,
	}
}

func lakeville() finnly.Config {
	ames := event.Address{Street: "19900 Ipava Ave", City: "Lakeville", State: "MN", Zip: "55044"}
	return finnly.Config{
		Name: Lakeville,
		URL:  "https://lakevillepublicopenskate.finnlyconnect.com/schedule/132",
		Rules: []finnly.Rule{
			{Exact: "PUBLIC STICK & PUCK - ALL AGES", Type: event.StickAndPuck, Cost: cost(10)},
			{Exact: "PUBLIC OPEN SKATING", Type: event.OpenSkate, Cost: cost(10)},
		},
		Facilities: map[string]event.Arena{
			"1.Ames Arena-Lakeview Bank Rink": {Name: "Ames Arena - Lakeview Bank Rink", Address: ames},
			"2.Ames Arena-Genz-Ryan Rink":     {Name: "Ames Arena - Genz-Ryan Rink", Address: ames},
			"3.Hasse Arena": {
				Name:    "Hasse Arena",
				Address: event.Address{Street: "8525 215th St W", City: "Lakeville", State: "MN", Zip: "55044"},
			},
		},
		Notes: finnly.ScheduleNotes,
	}
}

func eagan() ical.Config {
	return ical.Config{
		Name: Eagan,
		URL:  "https://cityofeagan.com/index.php?option=com_dpcalendar&task=ical.download&id=934",
		Arena: event.Arena{
			Name:    "Eagan Civic Center",
			Address: event.Address{Street: "3870 Pilot Knob Rd", City: "Eagan", State: "MN", Zip: "55122"},
		},
		Rules: []ical.Rule{{Match: "Open Skate - All Ages", Type: event.OpenSkate}},
	}
}

func rosemount() pdfcal.Config {
	return pdfcal.Config{
		Name: Rosemount,
		URL:  "https://www.rosemountmn.gov/DocumentCenter/View/4845/2025-December-Arena-Events",
		Arena: event.Arena{
			Name:    "Rosemount Ice Arena",
			Address: event.Address{Street: "13885 South Robert Trail", City: "Rosemount", State: "MN", Zip: "55068"},
		},
		Match:        "Open Skate",
		Type:         event.OpenSkate,
		Cost:         cost(2),
		VacationCost: cost(6),
	}
}

func bloomington() finnly.Config {
	return finnly.Config{
		Name: Bloomington,
		URL:  "https://big.finnlyconnect.com/schedule/86",
		Arena: event.Arena{
			Name:    "Bloomington Ice Garden",
			Address: event.Address{Street: "3600 W 98th St", City: "Bloomington", State: "MN", Zip: "55431"},
		},
		Rules: []finnly.Rule{
			{Contains: "Developmental Ice", Type: event.StickAndPuck, Cost: cost(12)},
			{Contains: "Open Skating", Type: event.OpenSkate, Cost: cost(5)},
		},
	}
}

func inverGroveHeights() activenet.Config {
	return activenet.Config{
		Name:    InverGroveHeights,
		URL:     "https://anc.apm.activecommunities.com/igh/rest/onlinecalendar/multicenter/events?locale=en-US",
		Request: activenet.NewRequest(8, 2),
		Arena: event.Arena{
			Name:    "Veterans Memorial Community Center",
			Address: event.Address{Street: "8055 Barbara Ave", City: "Inver Grove Heights", State: "MN", Zip: "55077"},
		},
		Rules: []activenet.Rule{
			{Contains: "Open Public Skating", Type: event.OpenSkate, Cost: cost(7)},
			{Contains: "Stick & Puck", Type: event.StickAndPuck, Cost: cost(7)},
			{Contains: "Developmental Ice", Type: event.StickAndPuck, Cost: cost(11)},
		},
		WithDescription: true,
	}
}

func richfield() activenet.Config {
	return activenet.Config{
		Name:    Richfield,
		URL:     "https://anc.apm.activecommunities.com/richfieldrecreation/rest/onlinecalendar/multicenter/events?locale=en-US",
		Request: activenet.NewRequest(5, 26, 29, 28),
		Arena: event.Arena{
			Name:    "Richfield Ice Arena",
			Address: event.Address{Street: "636 E 66th St", City: "Richfield", State: "MN", Zip: "55423"},
		},
		Rules: []activenet.Rule{
			{Contains: "Public Skate", Type: event.OpenSkate, Cost: cost(7)},
			{Contains: "Stick and Puck", Type: event.StickAndPuck, Cost: cost(7)},
		},
	}
}

func southStPaul() civicplus.Config {
	return civicplus.Config{
		Name:        SouthStPaul,
		CalendarURL: "https://www.southstpaul.org/calendar.aspx?CID=26,27",
		Layout:      civicplus.MonthLayout,
		Arena: event.Arena{
			Name:    "Doug Woog Arena",
			Address: event.Address{Street: "141 6th St S", City: "South St Paul", State: "MN", Zip: "55075"},
			Notes:   "$5 per person, $20 punch pass - 5 open skate sessions, $40 punch pass - 10 open skate sessions",
		},
		Rules: []civicplus.Rule{
			{Titles: []string{"Open Skate Session"}, Type: event.OpenSkate, Cost: cost(5)},
			{Titles: []string{"Stick & Puck Session", "Stick and Puck Session"}, Type: event.StickAndPuck, Cost: cost(5)},
		},
		NextMonthWithin: 31,
	}
}

func farmington() recurring.Config {
	return recurring.Config{
		Name: Farmington,
		Arena: event.Arena{
			Name:    "Schmitz-Maki Arena",
			Address: event.Address{Street: "114 West Spruce Street", City: "Farmington", State: "MN", Zip: "55024"},
			Notes:   "Offers skate rentals - $6 a pair",
		},
		Type:  event.OpenSkate,
		Cost:  cost(6),
		Notes: "The open skate daily admission per-person rate is $6. Punch card/10 is $54.",
		Slots: []recurring.Slot{
			{Weekday: time.Wednesday, Start: event.TimeOfDay{Hour: 11}, End: event.TimeOfDay{Hour: 12, Minute: 30}},
			{Weekday: time.Sunday, Start: event.TimeOfDay{Hour: 13, Minute: 30}, End: event.TimeOfDay{Hour: 15}},
		},
		Days:         30,
		SkipHolidays: true,
	}
}

func shakopee() finnly.Config {
	return finnly.Config{
		Name: Shakopee,
		URL:  "https://shakopeeice.finnlyconnect.com/schedule/137",
		Arena: event.Arena{
			Name:    "Shakopee Ice Center",
			Address: event.Address{Street: "1225 Fuller St S", City: "Shakopee", State: "MN", Zip: "55379"},
		},
		Rules: []finnly.Rule{
			{Contains: "Developmental Ice", Type: event.StickAndPuck, Cost: cost(6)},
			{Contains: "Open Skating", Type: event.OpenSkate, Cost: cost(6)},
		},
	}
}
