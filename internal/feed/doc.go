// Package feed turns raw adapter output into the published session feed.
//
// A Pipeline collects events from every registered source, keeps the ones
// starting within the horizon, removes duplicates and sorts the result:
//
//	p := &feed.Pipeline{
//	    Sources:    arenas.Default(deps),
//	    Aggregator: aggregator.New(aggregator.DefaultConfig(), log, metrics),
//	    Clock:      clock.NewSystem(loc),
//	    Horizon:    48 * time.Hour,
//	}
//	events, err := p.Compute(ctx)
//
// Dedup and Sort are also usable on their own. Both return new slices and
// never modify their input.
package feed
