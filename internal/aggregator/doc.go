// Package aggregator fans out to every registered schedule source and
// concatenates what they return.
//
// Each source runs in its own goroutine under its own deadline. A source that
// fails, panics or overruns its deadline contributes whatever events it
// returned (nothing, for panics and timeouts) and never affects the others.
// The aggregator stops waiting on a source whose deadline has passed even
// when that source ignores its context.
package aggregator
