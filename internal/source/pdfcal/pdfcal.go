// Package pdfcal reads monthly facility calendars published as PDF grids.
//
// Each page is one month laid out in seven weekday columns. A day cell starts
// with its day number ("14", or "1/1" when the grid spills into the next
// month) followed by session lines such as "Daytime Open Skate" and their
// time ranges ("11:30a-1:00p", "1:30-3:00pm"). Times without an am/pm marker
// are afternoon times.
package pdfcal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/pfrederiksen/skate-feed/internal/event"
	"github.com/pfrederiksen/skate-feed/internal/source"
)

const weekdays = 7

// ErrNoPage is returned when no page of the document covers the current month.
var ErrNoPage = errors.New("no calendar page for the current month")

var dayCell = regexp.MustCompile(`^(\d{1,2})(?:/(\d{1,2}))?$`)

// Config describes one PDF calendar.
type Config struct {
	Name  string
	URL   string
	Arena event.Arena
	// Match selects session lines, e.g. "Open Skate".
	Match string
	Type  event.Type
	Cost  event.Cost
	// VacationCost applies to sessions whose name contains "Vacation".
	VacationCost event.Cost
}

// Session is one session read from a calendar page.
type Session struct {
	Name  string
	Start time.Time
	End   time.Time
}

// Source fetches one PDF calendar.
type Source struct {
	cfg  Config
	deps source.Deps
}

// New returns a Source for cfg.
func New(cfg Config, deps source.Deps) *Source {
	return &Source{cfg: cfg, deps: deps.WithDefaults()}
}

func (s *Source) Name() string {
	return s.cfg.Name
}

// Fetch downloads the document and reads the page of the current month.
func (s *Source) Fetch(ctx context.Context) ([]event.Event, error) {
	body, err := s.deps.Client.Get(ctx, s.cfg.URL)
	if err != nil {
		return nil, err
	}

	doc, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}

	now := s.deps.Now()
	title := fmt.Sprintf("%s %d", now.Month(), now.Year())

	for i := 1; i <= doc.NumPage(); i++ {
		page := doc.Page(i)
		if page.V.IsNull() {
			continue
		}
		columns, text := ReadPage(page)
		if !strings.Contains(text, title) {
			continue
		}

		var (
			sessions []Session
			errs     []error
		)
		for _, col := range columns {
			got, err := ParseColumn(col, s.cfg.Match, now.Month(), now.Year(), s.deps.Location)
			sessions = append(sessions, got...)
			if err != nil {
				errs = append(errs, err)
			}
		}
		return s.convert(sessions), errors.Join(errs...)
	}

	return nil, fmt.Errorf("%w: %s", ErrNoPage, title)
}

func (s *Source) convert(sessions []Session) []event.Event {
	events := make([]event.Event, 0, len(sessions))
	for _, ss := range sessions {
		cost := s.cfg.Cost
		if strings.Contains(ss.Name, "Vacation") {
			cost = s.cfg.VacationCost
		}
		notes := strings.TrimSpace(strings.ReplaceAll(ss.Name, ":", ""))
		events = append(events, event.New(s.cfg.Type, s.cfg.Arena, ss.Start, ss.End, cost, notes))
	}
	return events
}

// ParseColumn walks the text lines of one weekday column top to bottom.
// month and year are those of the page; "M/D" day cells with a smaller
// month belong to the following year.
func ParseColumn(lines []string, match string, month time.Month, year int, loc *time.Location) ([]Session, error) {
	var (
		sessions []Session
		errs     []error
		day      time.Time
		inCell   bool
	)

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])

		if m := dayCell.FindStringSubmatch(line); m != nil {
			d, err := cellDate(m, month, year, loc)
			if err != nil {
				errs = append(errs, err)
				inCell = false
				continue
			}
			day, inCell = d, true
			continue
		}

		if !inCell || !strings.Contains(line, match) {
			continue
		}

		name, rangeText := line, ""
		if before, after, ok := strings.Cut(line, ":"); ok && strings.ContainsAny(after, "0123456789") && !strings.ContainsAny(before, "0123456789") {
			name, rangeText = before, after
		} else if i+1 < len(lines) {
			name = strings.TrimSuffix(strings.TrimSpace(line), ":")
			i++
			rangeText = lines[i]
		}

		from, to, err := event.ParseTimeRange(rangeText, true)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s on %s: %w", strings.TrimSpace(name), day.Format("Jan 2"), err))
			continue
		}
		sessions = append(sessions, Session{
			Name:  strings.TrimSpace(name),
			Start: from.On(day),
			End:   to.On(day),
		})
	}

	return sessions, errors.Join(errs...)
}

func cellDate(m []string, month time.Month, year int, loc *time.Location) (time.Time, error) {
	first, _ := strconv.Atoi(m[1])
	if m[2] == "" {
		if first < 1 || first > 31 {
			return time.Time{}, fmt.Errorf("invalid day %q", m[0])
		}
		return time.Date(year, month, first, 0, 0, 0, 0, loc), nil
	}

	second, _ := strconv.Atoi(m[2])
	cellMonth := time.Month(first)
	if cellMonth < time.January || cellMonth > time.December || second < 1 || second > 31 {
		return time.Time{}, fmt.Errorf("invalid day %q", m[0])
	}
	if cellMonth < month {
		year++
	}
	return time.Date(year, cellMonth, second, 0, 0, 0, 0, loc), nil
}

// ReadPage returns the text of a page both as weekday columns, each a list
// of lines ordered top to bottom, and as full-width lines joined by newlines.
func ReadPage(page pdf.Page) ([][]string, string) {
	texts := page.Content().Text
	if len(texts) == 0 {
		return nil, ""
	}

	width := page.V.Key("MediaBox").Index(2).Float64()
	if width <= 0 {
		for _, t := range texts {
			width = math.Max(width, t.X+t.W)
		}
		width++
	}
	return Layout(texts, width)
}

type lineKey struct {
	col int
	y   int
}

// Layout groups glyphs into lines. Glyphs on the same baseline within one
// seventh of width form a column line; all glyphs on a baseline form a page line.
func Layout(texts []pdf.Text, width float64) ([][]string, string) {
	colWidth := width / weekdays

	cells := make(map[lineKey][]pdf.Text)
	rows := make(map[lineKey][]pdf.Text)
	for _, t := range texts {
		col := int(t.X / colWidth)
		if col < 0 {
			col = 0
		}
		if col >= weekdays {
			col = weekdays - 1
		}
		y := int(math.Round(t.Y))
		cells[lineKey{col: col, y: y}] = append(cells[lineKey{col: col, y: y}], t)
		rows[lineKey{y: y}] = append(rows[lineKey{y: y}], t)
	}

	columns := make([][]string, weekdays)
	for _, k := range sortedKeys(cells) {
		if line := joinGlyphs(cells[k]); line != "" {
			columns[k.col] = append(columns[k.col], line)
		}
	}

	var lines []string
	for _, k := range sortedKeys(rows) {
		if line := joinGlyphs(rows[k]); line != "" {
			lines = append(lines, line)
		}
	}
	return columns, strings.Join(lines, "\n")
}

func sortedKeys(m map[lineKey][]pdf.Text) []lineKey {
	keys := make([]lineKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].col != keys[j].col {
			return keys[i].col < keys[j].col
		}
		return keys[i].y > keys[j].y
	})
	return keys
}

// joinGlyphs orders the glyphs of one line left to right and inserts a space
// where the gap between two glyphs is wider than a third of the font size.
func joinGlyphs(glyphs []pdf.Text) string {
	sort.SliceStable(glyphs, func(i, j int) bool { return glyphs[i].X < glyphs[j].X })

	var b strings.Builder
	for i, g := range glyphs {
		if i > 0 {
			prev := glyphs[i-1]
			if g.X-(prev.X+prev.W) > g.FontSize/3 && g.S != " " {
				b.WriteByte(' ')
			}
		}
		b.WriteString(g.S)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
