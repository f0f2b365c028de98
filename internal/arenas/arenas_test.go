package arenas

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/skate-feed/internal/clock"
	"github.com/pfrederiksen/skate-feed/internal/source"
)

func TestDefaultOrder(t *testing.T) {
	sources := Default(source.Deps{})

	assert.Equal(t, []string{
		AppleValley,
		Burnsville,
		Lakeville,
		Eagan,
		Rosemount,
		Bloomington,
		InverGroveHeights,
		Richfield,
		SouthStPaul,
		Farmington,
		Shakopee,
	}, source.Names(sources))
}

func TestDefaultNamesUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, name := range source.Names(Default(source.Deps{})) {
		assert.False(t, seen[name], "duplicate source %q", name)
		seen[name] = true
	}
}

func TestRecurringSourcesNeedNoNetwork(t *testing.T) {
	loc := time.FixedZone("CST", -6*60*60)
	deps := source.Deps{
		Location: loc,
		Clock:    clock.NewFixed(time.Date(2025, 12, 10, 9, 0, 0, 0, loc)),
	}

	for _, src := range source.Select(Default(deps), []string{AppleValley, Farmington}) {
		events, err := src.Fetch(context.Background())
		require.NoError(t, err, src.Name())
		require.NotEmpty(t, events, src.Name())
		for _, e := range events {
			assert.NotEmpty(t, e.Arena.Address.Street, src.Name())
			assert.False(t, e.Start.Before(deps.Clock.Now()), src.Name())
		}
	}
}
