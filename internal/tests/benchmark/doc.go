// Package benchmark holds performance benchmarks for the token tables and
// their storage.
//
// Run benchmarks with:
//
//	go test -bench=. -benchmem ./internal/tests/benchmark/...
//
// Run the sweep at larger scales:
//
//	go test -bench=BenchmarkSweep -benchtime=20x ./internal/tests/benchmark/...
//
// Compare results:
//
//	benchstat old.txt new.txt
package benchmark
