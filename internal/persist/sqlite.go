package persist

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - no database yet
// 1 - slots table with origin and revision
const currentSchemaVersion = 1

// DefaultPollInterval is how often a SQLite watcher checks for foreign writes.
const DefaultPollInterval = 250 * time.Millisecond

// SQLiteSlot stores slots in a SQLite database file that several processes
// may open at once.
type SQLiteSlot struct {
	db           *sql.DB
	origin       string
	pollInterval time.Duration
	logger       *slog.Logger
}

// SQLiteOption configures a SQLiteSlot.
type SQLiteOption func(*SQLiteSlot)

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) SQLiteOption {
	return func(s *SQLiteSlot) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithOrigin fixes the origin id instead of generating one.
func WithOrigin(origin string) SQLiteOption {
	return func(s *SQLiteSlot) {
		if origin != "" {
			s.origin = origin
		}
	}
}

// OpenSQLite creates or opens a slot database at path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode so readers in other processes never block the writer
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// This function is idempotent - safe to call multiple times.
func OpenSQLite(path string, opts ...SQLiteOption) (*SQLiteSlot, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// One connection: PRAGMA data_version is per connection, and it only
	// moves when some other connection commits.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &SQLiteSlot{
		db:           db,
		pollInterval: DefaultPollInterval,
		logger:       slog.Default().With("component", "persist.sqlite"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.origin == "" {
		s.origin = NewOrigin()
	}
	return s, nil
}

// Origin returns this context's id.
func (s *SQLiteSlot) Origin() string {
	return s.origin
}

// Close closes the database connection.
func (s *SQLiteSlot) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the current value of key.
func (s *SQLiteSlot) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM slots WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get slot: %w", err)
	}
	return value, true, nil
}

// Set overwrites key, stamping the write with this context's origin and
// bumping the row revision.
func (s *SQLiteSlot) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO slots (key, value, origin)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			origin = excluded.origin,
			revision = slots.revision + 1,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
	`, key, value, s.origin)
	if err != nil {
		return fmt.Errorf("set slot: %w", err)
	}
	return nil
}

// Watch polls for writes to key committed by other connections.
//
// PRAGMA data_version is the cheap gate; the row's revision decides whether
// key itself changed, and its origin filters out this context's own writes.
func (s *SQLiteSlot) Watch(ctx context.Context, key string) (<-chan Change, error) {
	version, err := s.dataVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("watch slot: %w", err)
	}
	revision, _, _, err := s.readRow(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("watch slot: %w", err)
	}

	out := make(chan Change)
	go func() {
		defer close(out)
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			v, err := s.dataVersion(ctx)
			if err != nil {
				s.logger.Debug("data_version poll failed", "error", err)
				continue
			}
			if v == version {
				continue
			}
			version = v

			rev, value, origin, err := s.readRow(ctx, key)
			if err != nil {
				s.logger.Debug("slot poll read failed", "error", err)
				continue
			}
			if rev == revision {
				continue
			}
			revision = rev
			if origin == s.origin {
				continue
			}

			select {
			case out <- Change{Key: key, Value: value, HasValue: value != nil, Origin: origin}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// readRow returns the revision, value and origin of key; revision 0 means
// the key does not exist.
func (s *SQLiteSlot) readRow(ctx context.Context, key string) (int64, []byte, string, error) {
	var (
		revision int64
		value    []byte
		origin   string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT revision, value, origin FROM slots WHERE key = ?`, key,
	).Scan(&revision, &value, &origin)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil, "", nil
	}
	if err != nil {
		return 0, nil, "", err
	}
	return revision, value, origin, nil
}

func (s *SQLiteSlot) dataVersion(ctx context.Context) (int64, error) {
	var v int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA data_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("query data_version: %w", err)
	}
	return v, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and stamps the schema
// version. This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported %d", version, currentSchemaVersion)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *SQLiteSlot) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
