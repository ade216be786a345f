// Package persist mirrors a spin debug log to a durable key/value slot shared
// by every process context, and reports writes made by other contexts.
//
// # Model
//
// One slot (default key "spin-debug-logs") holds the whole history as a JSON
// array, most recent first. Writes are last-writer-wins: no merge, no
// conflict detection.
//
// A Backend is both a Slot (Get/Set) and a Feed (Watch). Every backend has an
// origin id; a Feed never reports a write made through its own origin.
//
// # Backends
//
//   - memory: MemoryBus shared in-process, one MemorySlot per context
//   - sqlite: slots table in a WAL database, changes found by polling
//     PRAGMA data_version and the row revision
//   - redis: SET plus PUBLISH of an {origin, value} envelope
//   - postgres: upsert plus pg_notify carrying the origin; the value is
//     re-read by the receiver
//
// # Failure policy
//
// Bridge never returns errors. A failed mirror leaves the slot stale until
// the next successful one; a failed hydrate yields an empty history.
package persist
