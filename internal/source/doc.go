// Package source defines the contract every schedule source implements and
// the HTTP helpers the concrete adapters share.
//
// A Source returns every event it could build. A non-nil error is advisory:
// the aggregator logs it and keeps whatever events were returned alongside it.
// Adapters live in the subpackages (finnly, activenet, civicplus, ical, pdfcal,
// recurring); the registry of configured arenas is in internal/arenas.
package source
