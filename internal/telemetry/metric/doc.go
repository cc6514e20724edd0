// Package metric provides Prometheus metrics for tokentables.
//
// Registry counts table events (sessions and tokens added, destroyed,
// orphaned or transferred, storage failures, sweeps) and serves them with
// the Go runtime and process metrics. Collector adds table and storage
// sizes read at scrape time.
package metric
