package benchmark

import (
	"context"
	"fmt"
	"runtime"
	"testing"
	"time"

	"github.com/yndnr/tokentables/internal/core/domain"
	"github.com/yndnr/tokentables/internal/core/service"
	"github.com/yndnr/tokentables/internal/storage"
)

// SessionCounts are the table sizes used by the scale benchmarks.
var SessionCounts = []int{1000, 10000, 50000}

var benchVerifierKey = []byte("benchmark-verifier-key-32-bytes!")

// newTables builds tables over an in-memory table store.
func newTables(b *testing.B, cfg *service.Config) *service.TokenTables {
	b.Helper()
	store, err := storage.NewTableStore(storage.NewMemoryEngine(), benchVerifierKey)
	if err != nil {
		b.Fatalf("NewTableStore: %v", err)
	}
	return service.New(store, cfg)
}

func sessionToken(i int) domain.SessionToken {
	return domain.SessionToken(fmt.Sprintf("ses-%08d", i))
}

func transitionToken(i int) domain.TransitionToken {
	return domain.TransitionToken(fmt.Sprintf("tok-%08d", i))
}

func owner(i int) domain.Ucwid {
	return domain.Ucwid(fmt.Sprintf("owner-%08d", i))
}

// prefill adds count sessions, each carrying one bound token.
func prefill(ctx context.Context, b *testing.B, t *service.TokenTables, count int) {
	b.Helper()
	for i := 0; i < count; i++ {
		if _, err := t.AddSession(ctx, sessionToken(i), owner(i), transitionToken(i), false); err != nil {
			b.Fatalf("AddSession(%d): %v", i, err)
		}
	}
}

// reportMemory reports heap usage after a forced collection.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.HeapAlloc)/(1024*1024), prefix+"_MB")
}

// runWithSessionCounts runs benchFn once per table size.
func runWithSessionCounts(b *testing.B, counts []int, benchFn func(b *testing.B, count int)) {
	for _, count := range counts {
		b.Run(fmt.Sprintf("sessions_%d", count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}

func longLived() *service.Config {
	cfg := service.DefaultConfig()
	cfg.SessionTimeout = time.Hour
	cfg.TokenTimeout = time.Hour
	return cfg
}
