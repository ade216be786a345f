package overlap

import (
	"sort"

	"github.com/roach88/spinlog/internal/record"
)

// Set holds the ids of overlapping requests.
type Set map[string]struct{}

// Contains reports whether id was flagged.
func (s Set) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of flagged requests.
func (s Set) Len() int {
	return len(s)
}

// IDs returns the flagged ids in sorted order.
func (s Set) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Classify replays a newest-first history in chronological order and
// returns the ids of requests made while a spin was in progress.
func Classify(newestFirst []record.Record) Set {
	flagged := make(Set)
	var m Machine
	for i := len(newestFirst) - 1; i >= 0; i-- {
		rec := newestFirst[i]
		if m.Step(rec.Type) {
			flagged[rec.ID] = struct{}{}
		}
	}
	return flagged
}

// ClassifyChronological is Classify for a history already ordered oldest
// first.
func ClassifyChronological(oldestFirst []record.Record) Set {
	flagged := make(Set)
	var m Machine
	for _, rec := range oldestFirst {
		if m.Step(rec.Type) {
			flagged[rec.ID] = struct{}{}
		}
	}
	return flagged
}
