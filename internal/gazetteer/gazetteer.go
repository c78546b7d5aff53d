// Package gazetteer provides the process-wide, lazily loaded, read-only
// name->location lookup the Text/Place Resolver queries. It is the
// concrete backing for the Gazetteer adapter described in the pipeline's
// external interfaces: a pure-Go embedded SQLite store adapted from the
// teacher's MBTiles writer (same connection/pragma/schema pattern,
// repurposed from tile blobs to place-name rows), plus an in-memory
// double for tests.
package gazetteer

import "context"

// Entry is a single gazetteer record: a canonical place name, its
// geographic position, and the population/country used to disambiguate
// when a normalized name resolves to more than one candidate.
type Entry struct {
	Name       string
	Lon        float64
	Lat        float64
	Population int64
	Country    string
}

// Gazetteer resolves a normalized place-name token to zero or more
// candidate locations. Implementations must be safe for concurrent use
// — the Resources handle shares one instance across an entire job, and
// the orchestrator may run multiple jobs concurrently.
type Gazetteer interface {
	Lookup(ctx context.Context, normalized string) ([]Entry, error)
}
