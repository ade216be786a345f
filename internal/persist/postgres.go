package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS spinlog_slots (
    key        TEXT PRIMARY KEY,
    value      BYTEA NOT NULL,
    origin     TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresSlot stores slots in a Postgres table and announces writes with
// NOTIFY. Notification payloads carry only the writer's origin (NOTIFY
// payloads are capped at 8000 bytes), so receivers re-read the slot.
type PostgresSlot struct {
	db     *sql.DB
	dsn    string
	origin string
	logger *slog.Logger
}

// OpenPostgres connects to dsn and ensures the slot table exists.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresSlot, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	s := NewPostgresSlot(db, dsn, "")
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresSlot wraps an open database. dsn is used by Watch to open the
// dedicated listener connection. An empty origin generates one.
func NewPostgresSlot(db *sql.DB, dsn, origin string) *PostgresSlot {
	if origin == "" {
		origin = NewOrigin()
	}
	return &PostgresSlot{
		db:     db,
		dsn:    dsn,
		origin: origin,
		logger: slog.Default().With("component", "persist.postgres"),
	}
}

// EnsureSchema creates the slot table if missing.
func (s *PostgresSlot) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Origin returns this context's id.
func (s *PostgresSlot) Origin() string {
	return s.origin
}

// Close closes the database.
func (s *PostgresSlot) Close() error {
	return s.db.Close()
}

// Get returns the current value of key.
func (s *PostgresSlot) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM spinlog_slots WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get slot: %w", err)
	}
	return value, true, nil
}

// Set upserts key and queues a notification that is delivered when the
// transaction commits.
func (s *PostgresSlot) Set(ctx context.Context, key string, value []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("set slot: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO spinlog_slots (key, value, origin)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			origin = EXCLUDED.origin,
			updated_at = now()
	`, key, value, s.origin)
	if err != nil {
		return fmt.Errorf("set slot: upsert: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, channelIdent(key), s.origin); err != nil {
		return fmt.Errorf("set slot: notify: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("set slot: commit: %w", err)
	}
	return nil
}

// Watch listens for notifications on key's channel. Every foreign write
// and every listener reconnect (when notifications may have been lost) is
// reported without a value.
func (s *PostgresSlot) Watch(ctx context.Context, key string) (<-chan Change, error) {
	if s.dsn == "" {
		return nil, fmt.Errorf("watch slot: no dsn for listener connection")
	}

	listener := pq.NewListener(s.dsn, time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			s.logger.Warn("postgres listener event", "event", int(ev), "error", err)
		}
	})
	if err := listener.Listen(channelIdent(key)); err != nil {
		listener.Close()
		return nil, fmt.Errorf("watch slot: listen: %w", err)
	}

	out := make(chan Change)
	go func() {
		defer close(out)
		defer listener.Close()

		for {
			var n *pq.Notification
			select {
			case <-ctx.Done():
				return
			case n = <-listener.Notify:
			}

			change, ok := s.changeFor(key, n)
			if !ok {
				continue
			}
			select {
			case out <- change:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// changeFor maps a notification to a Change. A nil notification follows a
// reconnect. ok is false for this context's own writes.
func (s *PostgresSlot) changeFor(key string, n *pq.Notification) (Change, bool) {
	if n == nil {
		return Change{Key: key}, true
	}
	if n.Extra == s.origin {
		return Change{}, false
	}
	return Change{Key: key, Origin: n.Extra}, true
}
