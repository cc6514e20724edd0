// Package storage provides the persistence layer behind the token tables.
package storage

import (
	"context"
	"errors"
)

// Common errors
var (
	ErrKeyNotFound = errors.New("key not found")
	ErrClosed      = errors.New("kv engine closed")
)

// KVEngine is the key-value store TableStore persists into.
//
// Implementations must be safe for concurrent use.
type KVEngine interface {
	// Get retrieves a value by key.
	// Returns ErrKeyNotFound if key doesn't exist.
	Get(ctx context.Context, key []byte) ([]byte, error)

	// Set stores a key-value pair.
	Set(ctx context.Context, key, value []byte) error

	// Delete removes a key. Missing keys are not an error.
	Delete(ctx context.Context, key []byte) error

	// Apply writes muts in order as one unit: either all take effect or
	// none does, and concurrent readers never see part of the batch.
	Apply(ctx context.Context, muts []Mutation) error

	// Scan iterates over keys with a given prefix.
	// Callback returns false to stop iteration.
	Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error

	// GC reclaims space where the engine needs it. Returns bytes reclaimed.
	GC(ctx context.Context) (uint64, error)

	// Stats returns storage statistics.
	Stats(ctx context.Context) (*KVStats, error)

	// Close releases the engine.
	Close() error
}

// Mutation is one write of an Apply batch. A nil Value deletes Key.
type Mutation struct {
	Key   []byte
	Value []byte
}

// Put returns a mutation storing value under key.
func Put(key, value []byte) Mutation {
	if value == nil {
		value = []byte{}
	}
	return Mutation{Key: key, Value: value}
}

// Del returns a mutation removing key.
func Del(key []byte) Mutation {
	return Mutation{Key: key}
}

// IsDelete reports whether m removes its key.
func (m Mutation) IsDelete() bool {
	return m.Value == nil
}

// KVStats contains storage engine statistics.
type KVStats struct {
	// Engine names the implementation ("memory", "badger", "redis").
	Engine string

	// TotalKeys is the approximate number of keys. Zero when unknown.
	TotalKeys uint64

	// TotalSize is the total disk usage in bytes.
	TotalSize uint64

	// LSMSize is the LSM tree size (Badger).
	LSMSize uint64

	// ValueLogSize is the value log size (Badger).
	ValueLogSize uint64

	// LastGCTime is the last GC run timestamp (Unix milliseconds).
	LastGCTime int64

	// GCBytesReclaimed is the total bytes reclaimed by GC.
	GCBytesReclaimed uint64
}

// Engine names accepted by Config.Engine.
const (
	EngineMemory = "memory"
	EngineBadger = "badger"
	EngineRedis  = "redis"
)

// Config selects and configures a KV engine.
type Config struct {
	// Engine is one of "memory", "badger" or "redis".
	// Default: "memory"
	Engine string

	// Dir is the storage directory (badger).
	Dir string

	// Badger-specific configuration
	Badger BadgerConfig

	// Redis-specific configuration
	Redis RedisConfig
}

// BadgerConfig contains Badger-specific tuning parameters.
type BadgerConfig struct {
	// GCInterval is the interval between automatic GC runs.
	// Default: 10m
	GCInterval string

	// GCThreshold is the GC discard ratio threshold (0.0-1.0).
	// Default: 0.5
	GCThreshold float64

	// CacheSize is the block cache size in bytes.
	// Default: 64MB
	CacheSize int64

	// ValueLogFileSize is the max value log file size in bytes.
	// Default: 256MB
	ValueLogFileSize int64

	// NumMemtables is the number of memtables.
	// Default: 2
	NumMemtables int

	// SyncWrites enables fsync after each write.
	// Default: false
	SyncWrites bool
}

// RedisConfig configures the Redis engine.
type RedisConfig struct {
	// Addr is host:port of the server.
	Addr string

	// Password is optional.
	Password string

	// DB selects the logical database.
	DB int

	// KeyPrefix namespaces every key (default: "tokentables:").
	KeyPrefix string
}

// DefaultConfig returns an in-memory engine configuration.
func DefaultConfig() Config {
	return Config{
		Engine: EngineMemory,
		Badger: DefaultBadgerConfig(),
		Redis:  DefaultRedisConfig(),
	}
}

// DefaultBadgerConfig returns the default Badger configuration.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		GCInterval:       "10m",
		GCThreshold:      0.5,
		CacheSize:        64 << 20,  // 64MB
		ValueLogFileSize: 256 << 20, // 256MB
		NumMemtables:     2,
		SyncWrites:       false,
	}
}

// DefaultRedisConfig returns the default Redis configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "tokentables:",
	}
}
