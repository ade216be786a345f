package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisOptions locates a Redis server.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// RedisSlot stores slots as plain Redis strings and announces every write
// on a pub/sub channel derived from the key.
type RedisSlot struct {
	client *redis.Client
	origin string
	logger *slog.Logger
}

// redisEnvelope is the pub/sub payload announcing a write.
type redisEnvelope struct {
	Origin string `json:"origin"`
	Value  []byte `json:"value"`
}

// OpenRedis connects to Redis and verifies the connection.
func OpenRedis(ctx context.Context, opts RedisOptions) (*RedisSlot, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return NewRedisSlot(client, ""), nil
}

// NewRedisSlot wraps an existing client. An empty origin generates one.
func NewRedisSlot(client *redis.Client, origin string) *RedisSlot {
	if origin == "" {
		origin = NewOrigin()
	}
	return &RedisSlot{
		client: client,
		origin: origin,
		logger: slog.Default().With("component", "persist.redis"),
	}
}

// redisChannel names the pub/sub channel announcing writes to key.
func redisChannel(key string) string {
	return "spinlog:changes:" + key
}

// Origin returns this context's id.
func (s *RedisSlot) Origin() string {
	return s.origin
}

// Close closes the client.
func (s *RedisSlot) Close() error {
	return s.client.Close()
}

// Get returns the current value of key.
func (s *RedisSlot) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return value, true, nil
}

// Set writes key and publishes the new value in one MULTI/EXEC.
func (s *RedisSlot) Set(ctx context.Context, key string, value []byte) error {
	envelope, err := json.Marshal(redisEnvelope{Origin: s.origin, Value: value})
	if err != nil {
		return fmt.Errorf("redis set: encode envelope: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, key, value, 0)
	pipe.Publish(ctx, redisChannel(key), envelope)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Watch subscribes to write announcements for key and skips this context's
// own. An undecodable announcement is reported without a value so the
// receiver re-reads the slot.
func (s *RedisSlot) Watch(ctx context.Context, key string) (<-chan Change, error) {
	sub := s.client.Subscribe(ctx, redisChannel(key))
	// Wait for the subscription confirmation so no write after Watch
	// returns is missed.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	msgs := sub.Channel()
	out := make(chan Change)
	go func() {
		defer close(out)
		defer sub.Close()

		for {
			var msg *redis.Message
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				msg = m
			}

			change, ok := s.decodeAnnouncement(key, msg.Payload)
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

// decodeAnnouncement turns a pub/sub payload into a Change. ok is false for
// this context's own writes.
func (s *RedisSlot) decodeAnnouncement(key, payload string) (Change, bool) {
	var env redisEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		s.logger.Debug("undecodable change announcement", "error", err)
		return Change{Key: key}, true
	}
	if env.Origin == s.origin {
		return Change{}, false
	}
	return Change{Key: key, Value: env.Value, HasValue: env.Value != nil, Origin: env.Origin}, true
}
