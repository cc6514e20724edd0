package cmap

import (
	"slices"
	"strings"
	"sync"

	"github.com/spaolacci/murmur3"
)

// DefaultShardCount is the shard count used by New.
const DefaultShardCount = 16

// Map is a concurrent-safe sharded map with string keys.
type Map[V any] struct {
	shards []*shard[V]
	mask   uint32
}

type shard[V any] struct {
	mu    sync.RWMutex
	items map[string]V
}

// New creates a map with DefaultShardCount shards.
func New[V any]() *Map[V] {
	return NewWithShards[V](DefaultShardCount)
}

// NewWithShards creates a map with n shards. n must be a power of two;
// other values fall back to DefaultShardCount.
func NewWithShards[V any](n int) *Map[V] {
	if n <= 0 || n&(n-1) != 0 {
		n = DefaultShardCount
	}
	m := &Map[V]{
		shards: make([]*shard[V], n),
		mask:   uint32(n - 1),
	}
	for i := range m.shards {
		m.shards[i] = &shard[V]{items: make(map[string]V)}
	}
	return m
}

func (m *Map[V]) shardFor(key string) *shard[V] {
	return m.shards[murmur3.Sum32([]byte(key))&m.mask]
}

// Get retrieves the value stored under key.
func (m *Map[V]) Get(key string) (V, bool) {
	s := m.shardFor(key)
	s.mu.RLock()
	v, ok := s.items[key]
	s.mu.RUnlock()
	return v, ok
}

// Has reports whether key is present.
func (m *Map[V]) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Set stores value under key.
func (m *Map[V]) Set(key string, value V) {
	s := m.shardFor(key)
	s.mu.Lock()
	s.items[key] = value
	s.mu.Unlock()
}

// SetIfAbsent stores value only when key is not present and reports
// whether it did.
func (m *Map[V]) SetIfAbsent(key string, value V) bool {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[key]; ok {
		return false
	}
	s.items[key] = value
	return true
}

// Delete removes key.
func (m *Map[V]) Delete(key string) {
	s := m.shardFor(key)
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
}

// Pop removes key and returns the value it held.
func (m *Map[V]) Pop(key string) (V, bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	if ok {
		delete(s.items, key)
	}
	return v, ok
}

// Entry is one write of an Apply batch. Delete removes Key.
type Entry[V any] struct {
	Key    string
	Value  V
	Delete bool
}

// Apply performs entries in order while holding the lock of every shard
// they touch, so no other operation observes part of the batch.
func (m *Map[V]) Apply(entries []Entry[V]) {
	if len(entries) == 0 {
		return
	}
	idx := make([]int, 0, len(entries))
	for _, e := range entries {
		idx = append(idx, int(murmur3.Sum32([]byte(e.Key))&m.mask))
	}
	locked := slices.Clone(idx)
	slices.Sort(locked)
	locked = slices.Compact(locked)

	for _, i := range locked {
		m.shards[i].mu.Lock()
	}
	for n, e := range entries {
		s := m.shards[idx[n]]
		if e.Delete {
			delete(s.items, e.Key)
		} else {
			s.items[e.Key] = e.Value
		}
	}
	for j := len(locked) - 1; j >= 0; j-- {
		m.shards[locked[j]].mu.Unlock()
	}
}

// Count returns the number of entries.
func (m *Map[V]) Count() int {
	n := 0
	for _, s := range m.shards {
		s.mu.RLock()
		n += len(s.items)
		s.mu.RUnlock()
	}
	return n
}

// Range calls fn for each entry until fn returns false. fn runs under a
// shard read lock and must not write to the map.
func (m *Map[V]) Range(fn func(key string, value V) bool) {
	for _, s := range m.shards {
		s.mu.RLock()
		for k, v := range s.items {
			if !fn(k, v) {
				s.mu.RUnlock()
				return
			}
		}
		s.mu.RUnlock()
	}
}

// KeysWithPrefix returns the keys starting with prefix in sorted order.
func (m *Map[V]) KeysWithPrefix(prefix string) []string {
	var keys []string
	m.Range(func(k string, _ V) bool {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
		return true
	})
	slices.Sort(keys)
	return keys
}

// Clear removes every entry.
func (m *Map[V]) Clear() {
	for _, s := range m.shards {
		s.mu.Lock()
		clear(s.items)
		s.mu.Unlock()
	}
}

// ShardCount returns the number of shards.
func (m *Map[V]) ShardCount() int {
	return len(m.shards)
}

// ShardSizes returns the entry count of each shard.
func (m *Map[V]) ShardSizes() []int {
	sizes := make([]int, len(m.shards))
	for i, s := range m.shards {
		s.mu.RLock()
		sizes[i] = len(s.items)
		s.mu.RUnlock()
	}
	return sizes
}
