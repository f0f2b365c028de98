// Package event provides the normalized model shared by every schedule source.
//
// An Event is a value: it embeds a copy of its Arena, so events built from the
// same arena never share mutable state. Identity is defined by Key, a comparable
// projection of (start, arena name and address, type, end, cost in cents) that
// both Equal and map-based deduplication use, keeping equality and hashing in
// agreement. Compare defines the presentation order of the feed.
package event
