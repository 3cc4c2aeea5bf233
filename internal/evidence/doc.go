// Package evidence persists captured recordings in a local SQLite gallery.
//
// The Store owns the only database handle. Opening is lazy and idempotent:
// every operation funnels through the same handle, concurrent opens collapse
// into one, and a file lock next to the database keeps a second process from
// opening the gallery at the same time. Artifact identifiers are Unix
// milliseconds taken from a monotonic sequence, so later recordings always sort
// first even when two saves land in the same millisecond or the wall clock
// steps backwards.
//
// Schema changes bump schemaVersion in schema.go together with schema.sql.
package evidence
