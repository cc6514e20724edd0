// Package service provides the token/session table engine.
package service

import (
	"context"
	"sync"

	"github.com/spaolacci/murmur3"

	"github.com/yndnr/tokentables/internal/telemetry/logger"
)

// Pool partitions tenants across independent TokenTables instances.
//
// Each partition has its own lock, so operations on different partitions
// run in parallel while operations on one partition are serialized.
// Partitions share no state; a tenant always maps to the same partition.
type Pool struct {
	parts []*partition
}

type partition struct {
	mu     sync.Mutex
	tables *TokenTables
}

// NewPool creates n partitions, building each with newTables(i).
// n below 1 is treated as 1.
func NewPool(n int, newTables func(i int) *TokenTables) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{parts: make([]*partition, n)}
	for i := range p.parts {
		p.parts[i] = &partition{tables: newTables(i)}
	}
	return p
}

// Len returns the number of partitions.
func (p *Pool) Len() int {
	return len(p.parts)
}

// PartitionFor returns the partition index of tenant using MurmurHash3.
func (p *Pool) PartitionFor(tenant string) int {
	return int(murmur3.Sum32([]byte(tenant)) % uint32(len(p.parts)))
}

// Do runs fn with exclusive access to the tenant's tables. The context
// passed to fn carries the tenant for logging.
func (p *Pool) Do(ctx context.Context, tenant string, fn func(ctx context.Context, t *TokenTables) error) error {
	part := p.parts[p.PartitionFor(tenant)]
	part.mu.Lock()
	defer part.mu.Unlock()
	return fn(logger.WithTenant(ctx, tenant), part.tables)
}

// DecrementTimers sweeps every partition in turn, holding each partition's
// lock only for its own sweep.
func (p *Pool) DecrementTimers(ctx context.Context) SweepResult {
	var result SweepResult
	for _, part := range p.parts {
		part.mu.Lock()
		r := part.tables.DecrementTimers(ctx)
		part.mu.Unlock()
		result.merge(r)
	}
	return result
}

// Stats sums the table sizes of all partitions.
func (p *Pool) Stats() TableStats {
	var total TableStats
	for _, part := range p.parts {
		part.mu.Lock()
		total = total.Add(part.tables.Stats())
		part.mu.Unlock()
	}
	return total
}

// Each runs fn on every partition under its lock, stopping at the first error.
func (p *Pool) Each(fn func(t *TokenTables) error) error {
	for _, part := range p.parts {
		part.mu.Lock()
		err := fn(part.tables)
		part.mu.Unlock()
		if err != nil {
			return err
		}
	}
	return nil
}
