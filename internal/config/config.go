// Package config resolves spinlog settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/roach88/spinlog/internal/logstore"
	"github.com/roach88/spinlog/internal/persist"
)

// Backend names a persistence medium.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendSQLite   Backend = "sqlite"
	BackendRedis    Backend = "redis"
	BackendPostgres Backend = "postgres"
)

// ValidBackends lists the accepted backend names.
var ValidBackends = []Backend{BackendMemory, BackendSQLite, BackendRedis, BackendPostgres}

// DefaultDBPath is the SQLite file used when none is configured.
const DefaultDBPath = "spinlog.db"

// Environment variables read by Load.
const (
	EnvBackend       = "SPINLOG_BACKEND"
	EnvDB            = "SPINLOG_DB"
	EnvRedisAddr     = "SPINLOG_REDIS_ADDR"
	EnvRedisPassword = "SPINLOG_REDIS_PASSWORD"
	EnvRedisDB       = "SPINLOG_REDIS_DB"
	EnvPostgresDSN   = "SPINLOG_POSTGRES_DSN"
	EnvKey           = "SPINLOG_KEY"
	EnvCapacity      = "SPINLOG_CAPACITY"
	EnvPollInterval  = "SPINLOG_POLL_INTERVAL"
	EnvLogLevel      = "SPINLOG_LOG_LEVEL"
)

// Config holds everything needed to open a process context.
type Config struct {
	Backend      Backend
	DBPath       string
	Redis        persist.RedisOptions
	PostgresDSN  string
	Key          string
	Capacity     int
	PollInterval time.Duration
	LogLevel     slog.Level
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Backend:      BackendSQLite,
		DBPath:       DefaultDBPath,
		Redis:        persist.RedisOptions{Addr: "localhost:6379"},
		Key:          persist.DefaultKey,
		Capacity:     logstore.MaxEntries,
		PollInterval: persist.DefaultPollInterval,
		LogLevel:     slog.LevelInfo,
	}
}

// Load reads envFile (if it exists) into the process environment without
// overriding variables already set, then resolves the configuration.
// An empty envFile means ".env".
func Load(envFile string) (Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup resolves the configuration from lookup, on top of Default.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if v, ok := lookup(EnvBackend); ok && v != "" {
		cfg.Backend = Backend(strings.ToLower(strings.TrimSpace(v)))
	}
	if v, ok := lookup(EnvDB); ok && v != "" {
		cfg.DBPath = v
	}
	if v, ok := lookup(EnvRedisAddr); ok && v != "" {
		cfg.Redis.Addr = v
	}
	if v, ok := lookup(EnvRedisPassword); ok {
		cfg.Redis.Password = v
	}
	if v, ok := lookup(EnvRedisDB); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvRedisDB, err)
		}
		cfg.Redis.DB = n
	}
	if v, ok := lookup(EnvPostgresDSN); ok {
		cfg.PostgresDSN = v
	}
	if v, ok := lookup(EnvKey); ok && v != "" {
		cfg.Key = v
	}
	if v, ok := lookup(EnvCapacity); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvCapacity, err)
		}
		cfg.Capacity = n
	}
	if v, ok := lookup(EnvPollInterval); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvPollInterval, err)
		}
		cfg.PollInterval = d
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvLogLevel, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the selected backend has what it needs.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.DBPath == "" {
			return errors.New("sqlite backend requires a database path")
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return errors.New("redis backend requires an address")
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return errors.New("postgres backend requires a DSN")
		}
	default:
		return fmt.Errorf("unknown backend %q (valid: %s)", c.Backend, backendList())
	}
	if c.Capacity < 1 {
		return fmt.Errorf("capacity must be positive, got %d", c.Capacity)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.Key == "" {
		return errors.New("key must not be empty")
	}
	return nil
}

func backendList() string {
	names := make([]string, len(ValidBackends))
	for i, b := range ValidBackends {
		names[i] = string(b)
	}
	return strings.Join(names, ", ")
}
