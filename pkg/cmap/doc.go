// Package cmap provides a string-keyed map split into independently
// locked shards.
//
// Keys are assigned to shards by their murmur3 hash. Single-key
// operations take one shard lock. Whole-map operations (Count, Range,
// KeysWithPrefix, Clear) visit the shards one at a time, so they do not
// observe a consistent snapshot under concurrent writes.
//
//	m := cmap.New[[]byte]()
//	m.Set("val:abc", []byte("v"))
//	v, ok := m.Get("val:abc")
package cmap
