package benchmark

import (
	"context"
	"testing"
)

func BenchmarkSessionAdd(b *testing.B) {
	runWithSessionCounts(b, SessionCounts, func(b *testing.B, count int) {
		ctx := context.Background()
		t := newTables(b, longLived())
		prefill(ctx, b, t, count)

		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			n := count + i
			if _, err := t.AddSession(ctx, sessionToken(n), owner(n), transitionToken(n), false); err != nil {
				b.Fatalf("AddSession: %v", err)
			}
		}
		b.StopTimer()
		reportMemory(b, "heap")
	})
}

func BenchmarkSessionAdd_Shared(b *testing.B) {
	ctx := context.Background()
	t := newTables(b, longLived())

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := t.AddSession(ctx, sessionToken(i), owner(i), "", true); err != nil {
			b.Fatalf("AddSession: %v", err)
		}
	}
}

func BenchmarkSessionActive(b *testing.B) {
	runWithSessionCounts(b, SessionCounts, func(b *testing.B, count int) {
		ctx := context.Background()
		t := newTables(b, longLived())
		prefill(ctx, b, t, count)

		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			n := i % count
			ok, err := t.ActiveSession(ctx, sessionToken(n), owner(n))
			if err != nil || !ok {
				b.Fatalf("ActiveSession(%d) = %v, %v", n, ok, err)
			}
		}
	})
}

func BenchmarkSessionEnd(b *testing.B) {
	ctx := context.Background()
	t := newTables(b, longLived())
	prefill(ctx, b, t, b.N)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := t.EndSession(ctx, sessionToken(i)); err != nil {
			b.Fatalf("EndSession: %v", err)
		}
	}
}
