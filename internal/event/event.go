package event

import (
	"crypto/sha1"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrUnknownType is returned by ParseType for unrecognized event types.
var ErrUnknownType = errors.New("unknown event type")

// Type is the kind of ice session an event represents.
type Type int

const (
	OpenSkate Type = iota
	StickAndPuck
)

// Types lists every event type in priority order.
var Types = []Type{OpenSkate, StickAndPuck}

// Label returns the display label used on the wire and for ordering.
func (t Type) Label() string {
	switch t {
	case OpenSkate:
		return "Open Skate"
	case StickAndPuck:
		return "Stick and Puck"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Priority returns the sort rank of the type. Lower ranks come first.
// The feed orders by Label; Priority is exposed for consumers that want
// an explicit ranking.
func (t Type) Priority() int {
	return int(t)
}

func (t Type) String() string {
	return t.Label()
}

// Slug returns the lowercase underscore form used in query parameters.
func (t Type) Slug() string {
	switch t {
	case OpenSkate:
		return "open_skate"
	case StickAndPuck:
		return "stick_and_puck"
	default:
		return ""
	}
}

// ParseType accepts a display label or a slug ("open_skate", "stick-and-puck").
func ParseType(s string) (Type, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", " ", "_", " ", "&", "and").Replace(norm)
	norm = strings.Join(strings.Fields(norm), " ")
	for _, t := range Types {
		if norm == strings.ToLower(t.Label()) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// MarshalText encodes the type as its display label.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.Label()), nil
}

// UnmarshalText decodes a display label or slug.
func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Address is the postal address of an arena.
type Address struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip_code"`
}

// String formats the address on one line: "street, city, state zip".
func (a Address) String() string {
	return fmt.Sprintf("%s, %s, %s %s", a.Street, a.City, a.State, a.Zip)
}

// Arena is a physical ice facility.
//
// Arena is a value type. Events hold their own copy, so changing the Notes
// of an arena after an event was built never alters that event.
type Arena struct {
	Name    string  `json:"name"`
	Address Address `json:"address"`
	Notes   string  `json:"notes"`
}

// WithNotes returns a copy of the arena with its notes replaced.
func (a Arena) WithNotes(notes string) Arena {
	a.Notes = notes
	return a
}

// Cost is the admission price of a session. Notes carry free-text pricing
// details (punch cards, rentals) and are never part of event identity.
type Cost struct {
	Amount float64 `json:"amount"`
	Notes  string  `json:"notes,omitempty"`
}

// Cents returns the amount rounded to whole cents.
func (c Cost) Cents() int64 {
	return int64(math.Round(c.Amount * 100))
}

// Event is one scheduled public session at an arena.
type Event struct {
	Type  Type      `json:"event_type"`
	Arena Arena     `json:"arena"`
	Start time.Time `json:"start_time"`
	End   time.Time `json:"end_time"`
	Cost  Cost      `json:"cost"`
	Notes string    `json:"notes"`
}

// New creates an Event. The arena is copied into the event.
func New(typ Type, arena Arena, start, end time.Time, cost Cost, notes string) Event {
	return Event{
		Type:  typ,
		Arena: arena,
		Start: start,
		End:   end,
		Cost:  cost,
		Notes: notes,
	}
}

// Key is the identity projection of an Event. Two events are the same
// session iff their keys are equal. Notes, cost notes and arena notes are
// deliberately absent, so a Key is safe to use as a map key for dedup.
type Key struct {
	Start     int64
	ArenaName string
	Address   Address
	Type      Type
	End       int64
	CostCents int64
}

// Key returns the identity key of the event.
func (e Event) Key() Key {
	return Key{
		Start:     e.Start.UnixNano(),
		ArenaName: e.Arena.Name,
		Address:   e.Arena.Address,
		Type:      e.Type,
		End:       e.End.UnixNano(),
		CostCents: e.Cost.Cents(),
	}
}

// Equal reports whether two events describe the same session.
func Equal(a, b Event) bool {
	return a.Key() == b.Key()
}

// ID returns a deterministic SHA1 identifier derived from the identity key.
func (e Event) ID() string {
	k := e.Key()
	h := sha1.New()
	fmt.Fprintf(h, "%d|%s|%s|%d|%d|%d", k.Start, k.ArenaName, k.Address, k.Type, k.End, k.CostCents)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Compare orders events by start time, arena name, type label, end time
// and cost amount. It returns a negative number when a sorts before b,
// a positive number when after, and zero when the keys tie.
func Compare(a, b Event) int {
	if c := a.Start.Compare(b.Start); c != 0 {
		return c
	}
	if c := strings.Compare(a.Arena.Name, b.Arena.Name); c != 0 {
		return c
	}
	if c := strings.Compare(a.Type.Label(), b.Type.Label()); c != 0 {
		return c
	}
	if c := a.End.Compare(b.End); c != 0 {
		return c
	}
	switch ac, bc := a.Cost.Cents(), b.Cost.Cents(); {
	case ac < bc:
		return -1
	case ac > bc:
		return 1
	}
	return 0
}

// Duration returns the length of the session.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

func (e Event) String() string {
	return fmt.Sprintf("%s at %s %s-%s ($%.2f)",
		e.Type.Label(), e.Arena.Name,
		e.Start.Format("2006-01-02 15:04"), e.End.Format("15:04"), e.Cost.Amount)
}
