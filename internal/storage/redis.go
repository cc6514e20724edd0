package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisEngine implements KVEngine on a Redis server. Every key is stored
// under the configured key prefix so one server can host several stores.
type RedisEngine struct {
	client *goredis.Client
	prefix string
}

// NewRedisEngine connects to Redis and verifies the connection.
func NewRedisEngine(cfg RedisConfig) (*RedisEngine, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis: addr is required")
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Addr, err)
	}

	return NewRedisEngineFromClient(client, cfg.KeyPrefix), nil
}

// NewRedisEngineFromClient wraps an existing client.
func NewRedisEngineFromClient(client *goredis.Client, prefix string) *RedisEngine {
	return &RedisEngine{client: client, prefix: prefix}
}

func (e *RedisEngine) key(key []byte) string {
	return e.prefix + string(key)
}

// Get retrieves a value by key.
func (e *RedisEngine) Get(ctx context.Context, key []byte) ([]byte, error) {
	val, err := e.client.Get(ctx, e.key(key)).Bytes()
	if err == goredis.Nil {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, e.mapErr(err)
	}
	return val, nil
}

// Set stores a key-value pair without expiry.
func (e *RedisEngine) Set(ctx context.Context, key, value []byte) error {
	return e.mapErr(e.client.Set(ctx, e.key(key), value, 0).Err())
}

// Delete removes a key.
func (e *RedisEngine) Delete(ctx context.Context, key []byte) error {
	return e.mapErr(e.client.Del(ctx, e.key(key)).Err())
}

// Apply sends muts in one MULTI/EXEC transaction.
func (e *RedisEngine) Apply(ctx context.Context, muts []Mutation) error {
	if len(muts) == 0 {
		return nil
	}
	_, err := e.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		for _, m := range muts {
			if m.IsDelete() {
				p.Del(ctx, e.key(m.Key))
			} else {
				p.Set(ctx, e.key(m.Key), m.Value, 0)
			}
		}
		return nil
	})
	return e.mapErr(err)
}

// Scan visits keys with the given prefix in key order. Keys deleted while
// scanning are skipped.
func (e *RedisEngine) Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error {
	match := globEscape(e.key(prefix)) + "*"

	var keys []string
	iter := e.client.Scan(ctx, 0, match, 256).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return e.mapErr(err)
	}
	slices.Sort(keys)
	keys = slices.Compact(keys)

	for _, k := range keys {
		val, err := e.client.Get(ctx, k).Bytes()
		if err == goredis.Nil {
			continue
		}
		if err != nil {
			return e.mapErr(err)
		}
		if !fn([]byte(strings.TrimPrefix(k, e.prefix)), val) {
			break
		}
	}
	return nil
}

// GC is a no-op; the server manages its own memory.
func (e *RedisEngine) GC(ctx context.Context) (uint64, error) {
	return 0, nil
}

// Stats reports the key count of the selected database.
func (e *RedisEngine) Stats(ctx context.Context) (*KVStats, error) {
	n, err := e.client.DBSize(ctx).Result()
	if err != nil {
		return nil, e.mapErr(err)
	}
	return &KVStats{Engine: EngineRedis, TotalKeys: uint64(n)}, nil
}

// Close closes the client.
func (e *RedisEngine) Close() error {
	err := e.client.Close()
	if errors.Is(err, goredis.ErrClosed) {
		return nil
	}
	return err
}

func (e *RedisEngine) mapErr(err error) error {
	if errors.Is(err, goredis.ErrClosed) {
		return ErrClosed
	}
	return err
}

// globEscape quotes the SCAN MATCH metacharacters in s.
func globEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
