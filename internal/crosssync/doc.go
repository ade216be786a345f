// Package crosssync keeps one context's view of the log in step with
// writes made by other contexts sharing the same persistence slot.
//
// A Syncer watches a persist.Feed. Backends never report a context's own
// writes, so applying a change cannot loop back into another change.
package crosssync
