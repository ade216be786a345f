// Package logstore holds the bounded, newest-first spin debug log of one
// process context and the listener hub that observes it.
//
// ARCHITECTURE:
//
// A Store owns a fixed-capacity ring of records. Every mutation
// (Insert, Clear, Restore) runs to completion under the store lock, is
// handed to the Mirror (persistence) in mutation order, and then fans out
// to the Hub outside the lock so listeners may read or write the store.
//
// The Store replaces the ambient per-tab global of a browser page: build
// one per process and pass it to producers and readers explicitly.
//
// Listener failures are isolated. A panicking listener is recovered and
// logged and the remaining listeners still run.
package logstore
