// Package cli implements the command-line interface for skate-feed.
//
// The cli package provides the Cobra-based CLI: serve runs the HTTP feed,
// fetch runs every arena adapter once and prints the resulting feed
// (text, JSON or iCalendar), and sources lists the registered adapters.
// It wires the config, source, aggregator, feed, cache, server and
// telemetry packages together.
package cli
