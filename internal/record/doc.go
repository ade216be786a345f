// Package record defines the spin debug event record and its wire format.
//
// This package contains the leaf types every other internal package builds
// on. record imports nothing internal.
//
// Key constraints:
//   - Type is a closed set of nine tags; anything else is rejected
//   - ID is assigned once by an IDGenerator and never reused in a process
//   - Timestamp is milliseconds on a monotonic clock, only comparable
//     within one process lifetime
//   - Data is opaque: stored and forwarded, never inspected
//
// The persisted form of a history is a JSON array of records, most recent
// first (see MarshalSequence and DecodeSequence).
package record
