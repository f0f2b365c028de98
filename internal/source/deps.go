package source

import (
	"time"

	"github.com/pfrederiksen/skate-feed/internal/clock"
)

// Deps carries what every adapter needs besides its own arena metadata.
type Deps struct {
	Client *Client
	// Location is the time zone naive source times are interpreted in.
	Location *time.Location
	Clock    clock.Clock
}

// WithDefaults fills unset fields: a default Client, time.Local and the
// system clock in Location.
func (d Deps) WithDefaults() Deps {
	if d.Client == nil {
		d.Client = NewClient()
	}
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.Clock == nil {
		d.Clock = clock.NewSystem(d.Location)
	}
	return d
}

// Now returns the current time in d.Location.
func (d Deps) Now() time.Time {
	return d.Clock.Now().In(d.Location)
}
