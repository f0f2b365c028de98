// Package civicplus reads CivicPlus "calendar.aspx" month pages.
//
// Two page layouts are supported. The list layout renders each occurrence as
// an <li> with a title link and a "Month D, YYYY, h:mm PM - h:mm PM" date
// line; the occurrence's own page can carry a cost description. The month
// layout renders a grid of .monthItem cells whose tooltip holds the time
// range and a link whose query string carries the day.
package civicplus

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/skate-feed/internal/event"
	"github.com/pfrederiksen/skate-feed/internal/source"
)

// Layout selects how a calendar page is parsed.
type Layout int

const (
	ListLayout Layout = iota
	MonthLayout
)

const defaultListSelector = "li"

// Rule maps exact calendar titles to a type and price.
type Rule struct {
	Titles []string
	Type   event.Type
	Cost   event.Cost
}

func (r Rule) matches(title string) bool {
	for _, t := range r.Titles {
		if title == t {
			return true
		}
	}
	return false
}

// Config describes one CivicPlus calendar.
type Config struct {
	Name string
	// CalendarURL is the absolute calendar.aspx URL including its CID query.
	CalendarURL string
	Layout      Layout
	Arena       event.Arena
	Rules       []Rule

	// ListSelector selects occurrences in the list layout, e.g. "#CID99 li".
	ListSelector string

	// CostSelector, when set, is looked up on each occurrence page (list
	// layout only) and its text becomes the cost notes.
	CostSelector string

	// NextMonthWithin fetches the next month too when at most this many
	// days are left in the current one. 31 always fetches it.
	NextMonthWithin int
}

// Source fetches one CivicPlus calendar.
type Source struct {
	cfg  Config
	deps source.Deps
}

// New returns a Source for cfg.
func New(cfg Config, deps source.Deps) *Source {
	if cfg.ListSelector == "" {
		cfg.ListSelector = defaultListSelector
	}
	return &Source{cfg: cfg, deps: deps.WithDefaults()}
}

func (s *Source) Name() string {
	return s.cfg.Name
}

// Fetch reads the current month, and the next one when the month is close
// to its end.
func (s *Source) Fetch(ctx context.Context) ([]event.Event, error) {
	now := s.deps.Now()
	months := []time.Time{now}
	if DaysLeftInMonth(now) <= s.cfg.NextMonthWithin {
		months = append(months, firstOfNextMonth(now))
	}

	var (
		events []event.Event
		errs   []error
	)
	for _, m := range months {
		got, err := s.fetchMonth(ctx, m)
		events = append(events, got...)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %d: %w", m.Month(), m.Year(), err))
		}
	}
	return events, errors.Join(errs...)
}

// DaysLeftInMonth returns the number of days after t's day in its month.
func DaysLeftInMonth(t time.Time) int {
	last := time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
	return last - t.Day()
}

func firstOfNextMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location())
}

// MonthURL returns the calendar URL for the month of t.
func (s *Source) MonthURL(t time.Time) string {
	return fmt.Sprintf("%s&month=%d&year=%d", s.cfg.CalendarURL, int(t.Month()), t.Year())
}

func (s *Source) fetchMonth(ctx context.Context, month time.Time) ([]event.Event, error) {
	doc, err := s.deps.Client.GetDocument(ctx, s.MonthURL(month))
	if err != nil {
		return nil, err
	}
	if s.cfg.Layout == MonthLayout {
		return s.parseMonthLayout(doc)
	}
	return s.parseListLayout(ctx, doc)
}

func (s *Source) rule(title string) (Rule, bool) {
	title = strings.TrimSpace(title)
	for _, r := range s.cfg.Rules {
		if r.matches(title) {
			return r, true
		}
	}
	return Rule{}, false
}

func (s *Source) parseListLayout(ctx context.Context, doc *goquery.Document) ([]event.Event, error) {
	var (
		events []event.Event
		errs   []error
		costs  = make(map[string]string)
	)

	doc.Find(s.cfg.ListSelector).Each(func(i int, item *goquery.Selection) {
		title := item.Find("h3 > a > span").First().Text()
		rule, ok := s.rule(title)
		if !ok {
			return
		}

		start, end, err := ParseListDate(item.Find("div.date").First().Text(), s.deps.Location)
		if err != nil {
			errs = append(errs, err)
			return
		}

		cost := rule.Cost
		if s.cfg.CostSelector != "" {
			href, _ := item.Find("h3 > a").First().Attr("href")
			notes, ok := costs[href]
			if !ok {
				notes, err = s.costNotes(ctx, href)
				if err != nil {
					errs = append(errs, err)
				}
				costs[href] = notes
			}
			cost.Notes = notes
		}

		events = append(events, event.New(rule.Type, s.cfg.Arena, start, end, cost, ""))
	})

	return events, errors.Join(errs...)
}

func (s *Source) costNotes(ctx context.Context, href string) (string, error) {
	link, err := s.resolve(href)
	if err != nil {
		return "", err
	}
	doc, err := s.deps.Client.GetDocument(ctx, link)
	if err != nil {
		return "", fmt.Errorf("fetching cost page: %w", err)
	}
	return strings.Join(strings.Fields(doc.Find(s.cfg.CostSelector).First().Text()), " "), nil
}

func (s *Source) resolve(href string) (string, error) {
	base, err := url.Parse(s.cfg.CalendarURL)
	if err != nil {
		return "", fmt.Errorf("parsing calendar URL: %w", err)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parsing link %q: %w", href, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// ParseListDate parses list-layout date lines such as
// "December 28, 2025, 1:30 PM - 3:00 PM".
func ParseListDate(text string, loc *time.Location) (time.Time, time.Time, error) {
	parts := strings.SplitN(text, ",", 3)
	if len(parts) != 3 {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid date line %q", strings.TrimSpace(text))
	}

	dayText := strings.Join(strings.Fields(parts[0]+" "+parts[1]), " ")
	day, err := time.ParseInLocation("January 2 2006", dayText, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parsing date %q: %w", dayText, err)
	}

	from, to, err := event.ParseTimeRange(parts[2], false)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from.On(day), to.On(day), nil
}

func (s *Source) parseMonthLayout(doc *goquery.Document) ([]event.Event, error) {
	var (
		events []event.Event
		errs   []error
	)

	doc.Find(".monthItem").Each(func(i int, item *goquery.Selection) {
		title := item.Find("a > span").First().Text()
		rule, ok := s.rule(title)
		if !ok {
			return
		}

		tooltip := item.Find(".tooltipInner").First()
		href, _ := tooltip.Find("a").First().Attr("href")
		day, err := ParseDayLink(href, s.deps.Location)
		if err != nil {
			errs = append(errs, err)
			return
		}

		from, to, err := event.ParseTimeRange(tooltip.Find("div > dl > dd").First().Text(), false)
		if err != nil {
			errs = append(errs, err)
			return
		}

		events = append(events, event.New(rule.Type, s.cfg.Arena, from.On(day), to.On(day), rule.Cost, ""))
	})

	return events, errors.Join(errs...)
}

// ParseDayLink reads the date from an occurrence link such as
// "/Calendar.aspx?EID=4411&month=12&year=2025&day=28&calType=0".
func ParseDayLink(href string, loc *time.Location) (time.Time, error) {
	u, err := url.Parse(href)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing link %q: %w", href, err)
	}
	q := u.Query()

	var fields [3]int
	for i, key := range []string{"year", "month", "day"} {
		v, err := strconv.Atoi(q.Get(key))
		if err != nil {
			return time.Time{}, fmt.Errorf("link %q has no %s", href, key)
		}
		fields[i] = v
	}
	if fields[1] < 1 || fields[1] > 12 || fields[2] < 1 || fields[2] > 31 {
		return time.Time{}, fmt.Errorf("link %q has an invalid date", href)
	}

	return time.Date(fields[0], time.Month(fields[1]), fields[2], 0, 0, 0, 0, loc), nil
}
