package persist

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// DefaultKey is the slot the spin debug log is stored under.
const DefaultKey = "spin-debug-logs"

// ErrSlotClosed is returned by operations on a closed backend.
var ErrSlotClosed = errors.New("slot closed")

// Slot is a durable key/value cell.
type Slot interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set overwrites the value.
	Set(ctx context.Context, key string, value []byte) error
}

// Change reports that another context wrote a key.
type Change struct {
	Key string
	// Value is the new serialized history when the medium carries it.
	// HasValue is false when the receiver must re-read the slot.
	Value    []byte
	HasValue bool
	// Origin identifies the writer when known.
	Origin string
}

// Feed delivers changes made by other contexts.
type Feed interface {
	// Watch reports changes of key until ctx is done, then closes the
	// channel. Writes made through the watching backend are not reported.
	Watch(ctx context.Context, key string) (<-chan Change, error)
}

// Backend is a slot with a change feed, bound to one origin.
type Backend interface {
	Slot
	Feed
	Origin() string
	Close() error
}

// NewOrigin returns a fresh, time-sortable context id.
func NewOrigin() string {
	return uuid.Must(uuid.NewV7()).String()
}

var nonIdent = regexp.MustCompile(`[^a-z0-9_]+`)

// channelIdent turns a key into a lower-case identifier usable as a
// notification channel name.
func channelIdent(key string) string {
	ident := nonIdent.ReplaceAllString(strings.ToLower(key), "_")
	return "spinlog_" + strings.Trim(ident, "_")
}
