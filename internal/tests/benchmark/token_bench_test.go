package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/yndnr/tokentables/internal/core/domain"
	"github.com/yndnr/tokentables/internal/core/service"
)

func BenchmarkTokenAdd(b *testing.B) {
	ctx := context.Background()
	t := newTables(b, longLived())

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := t.AddToken(ctx, transitionToken(i), "value"); err != nil {
			b.Fatalf("AddToken: %v", err)
		}
	}
}

func BenchmarkTokenIsActive(b *testing.B) {
	runWithSessionCounts(b, SessionCounts, func(b *testing.B, count int) {
		ctx := context.Background()
		t := newTables(b, longLived())
		prefill(ctx, b, t, count)

		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, ok, err := t.TransitionTokenIsActive(ctx, transitionToken(i%count)); err != nil || !ok {
				b.Fatalf("TransitionTokenIsActive = %v, %v", ok, err)
			}
		}
	})
}

func BenchmarkTokenTransfer(b *testing.B) {
	ctx := context.Background()
	t := newTables(b, longLived())
	prefill(ctx, b, t, 2)
	if err := t.AddTransferableToken(ctx, "market", map[string]any{"item": "sword"}, owner(0)); err != nil {
		b.Fatalf("AddTransferableToken: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		from, to := owner(i%2), owner((i+1)%2)
		if err := t.TransferToken(ctx, "market", from, to); err != nil {
			b.Fatalf("TransferToken: %v", err)
		}
	}
}

func BenchmarkCreateToken(b *testing.B) {
	for _, name := range []string{"hex", "uuid", "ulid"} {
		b.Run(name, func(b *testing.B) {
			t := service.New(nil, nil, service.WithTokenCreator(domain.TokenCreatorByName(name)))
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = t.CreateToken("bench")
			}
		})
	}
}

func BenchmarkPool_Parallel(b *testing.B) {
	for _, parts := range []int{1, 8} {
		b.Run(fmt.Sprintf("partitions_%d", parts), func(b *testing.B) {
			ctx := context.Background()
			pool := service.NewPool(parts, func(int) *service.TokenTables {
				return newTables(b, longLived())
			})

			var seq int64
			b.ReportAllocs()
			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					n := int(atomicAdd(&seq))
					tenant := fmt.Sprintf("tenant-%d", n%64)
					err := pool.Do(ctx, tenant, func(ctx context.Context, t *service.TokenTables) error {
						_, err := t.AddSession(ctx, sessionToken(n), owner(n), transitionToken(n), false)
						return err
					})
					if err != nil {
						b.Errorf("AddSession: %v", err)
						return
					}
				}
			})
		})
	}
}
