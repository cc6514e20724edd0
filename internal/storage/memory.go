package storage

import (
	"bytes"
	"context"
	"sync/atomic"

	"github.com/yndnr/tokentables/pkg/cmap"
)

// MemoryEngine implements KVEngine over a sharded concurrent map.
// Nothing survives Close or a restart.
type MemoryEngine struct {
	items  *cmap.Map[[]byte]
	closed atomic.Bool
}

// NewMemoryEngine creates an empty in-memory engine.
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{items: cmap.New[[]byte]()}
}

// Get retrieves a copy of the value stored under key.
func (e *MemoryEngine) Get(ctx context.Context, key []byte) ([]byte, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	v, ok := e.items.Get(string(key))
	if !ok {
		return nil, ErrKeyNotFound
	}
	return bytes.Clone(v), nil
}

// Set stores a copy of value.
func (e *MemoryEngine) Set(ctx context.Context, key, value []byte) error {
	if e.closed.Load() {
		return ErrClosed
	}
	e.items.Set(string(key), bytes.Clone(value))
	return nil
}

// Delete removes a key.
func (e *MemoryEngine) Delete(ctx context.Context, key []byte) error {
	if e.closed.Load() {
		return ErrClosed
	}
	e.items.Delete(string(key))
	return nil
}

// Apply performs muts under the locks of every shard they touch.
func (e *MemoryEngine) Apply(ctx context.Context, muts []Mutation) error {
	if e.closed.Load() {
		return ErrClosed
	}
	entries := make([]cmap.Entry[[]byte], len(muts))
	for i, m := range muts {
		entries[i] = cmap.Entry[[]byte]{Key: string(m.Key), Value: bytes.Clone(m.Value), Delete: m.IsDelete()}
	}
	e.items.Apply(entries)
	return nil
}

// Scan visits keys with the given prefix in key order.
func (e *MemoryEngine) Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error {
	if e.closed.Load() {
		return ErrClosed
	}
	for _, k := range e.items.KeysWithPrefix(string(prefix)) {
		if err := ctx.Err(); err != nil {
			return err
		}
		v, ok := e.items.Get(k)
		if !ok {
			continue
		}
		if !fn([]byte(k), bytes.Clone(v)) {
			break
		}
	}
	return nil
}

// GC is a no-op.
func (e *MemoryEngine) GC(ctx context.Context) (uint64, error) {
	return 0, nil
}

// Stats reports the key count.
func (e *MemoryEngine) Stats(ctx context.Context) (*KVStats, error) {
	return &KVStats{
		Engine:    EngineMemory,
		TotalKeys: uint64(e.items.Count()),
	}, nil
}

// Close drops all data.
func (e *MemoryEngine) Close() error {
	if e.closed.CompareAndSwap(false, true) {
		e.items.Clear()
	}
	return nil
}
