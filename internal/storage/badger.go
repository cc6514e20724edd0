package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/tokentables/internal/telemetry/logger"
)

const defaultGCInterval = 10 * time.Minute

// BadgerEngine implements KVEngine on an embedded Badger v3 database.
// A background loop runs value log GC every GCInterval.
type BadgerEngine struct {
	db       *badger.DB
	cfg      BadgerConfig
	interval time.Duration
	log      logger.Logger

	lastGC    atomic.Int64 // unix milliseconds
	reclaimed atomic.Uint64

	metrics atomic.Pointer[badgerMetrics]

	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewBadgerEngine opens or creates the database in cfg.Dir.
func NewBadgerEngine(cfg Config, l logger.Logger) (*BadgerEngine, error) {
	if cfg.Dir == "" {
		return nil, errors.New("badger: dir is required")
	}
	if l == nil {
		l = logger.Default()
	}
	l = l.With("engine", EngineBadger)

	bc := cfg.Badger
	interval, err := time.ParseDuration(bc.GCInterval)
	if err != nil || interval <= 0 {
		l.Warn("invalid gc_interval, using default", "value", bc.GCInterval, "default", defaultGCInterval)
		interval = defaultGCInterval
	}

	opts := badger.DefaultOptions(cfg.Dir).
		WithLogger(badgerLog{l}).
		WithSyncWrites(bc.SyncWrites)
	if bc.CacheSize > 0 {
		opts = opts.WithBlockCacheSize(bc.CacheSize)
	}
	if bc.ValueLogFileSize > 0 {
		opts = opts.WithValueLogFileSize(bc.ValueLogFileSize)
	}
	if bc.NumMemtables > 0 {
		opts = opts.WithNumMemtables(bc.NumMemtables)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open %s: %w", cfg.Dir, err)
	}

	e := &BadgerEngine{
		db:       db,
		cfg:      bc,
		interval: interval,
		log:      l,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go e.gcLoop()

	l.Info("badger engine opened", "dir", cfg.Dir, "gc_interval", interval, "sync_writes", bc.SyncWrites)
	return e, nil
}

// Get returns a copy of the value under key.
func (e *BadgerEngine) Get(ctx context.Context, key []byte) ([]byte, error) {
	var value []byte
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, mapBadgerErr(err)
	}
	return value, nil
}

// Set stores value under key.
func (e *BadgerEngine) Set(ctx context.Context, key, value []byte) error {
	return e.Apply(ctx, []Mutation{Put(key, value)})
}

// Delete removes key.
func (e *BadgerEngine) Delete(ctx context.Context, key []byte) error {
	return e.Apply(ctx, []Mutation{Del(key)})
}

// Apply performs muts in one read-write transaction.
func (e *BadgerEngine) Apply(ctx context.Context, muts []Mutation) error {
	if len(muts) == 0 {
		return nil
	}
	return mapBadgerErr(e.db.Update(func(txn *badger.Txn) error {
		for _, m := range muts {
			var err error
			if m.IsDelete() {
				err = txn.Delete(m.Key)
			} else {
				err = txn.Set(m.Key, m.Value)
			}
			if err != nil {
				return err
			}
		}
		return nil
	}))
}

// Scan visits the keys under prefix in key order.
func (e *BadgerEngine) Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error {
	return mapBadgerErr(e.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if !fn(item.KeyCopy(nil), value) {
				return nil
			}
		}
		return nil
	}))
}

// GC rewrites value log files until Badger finds nothing worth
// rewriting. The result is the shrink of the value log, which is zero
// when the rewritten files are not yet deleted.
func (e *BadgerEngine) GC(ctx context.Context) (uint64, error) {
	start := time.Now()
	_, before := e.db.Size()

	rewrites := 0
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		err := e.db.RunValueLogGC(e.cfg.GCThreshold)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("badger: value log gc: %w", mapBadgerErr(err))
		}
		rewrites++
	}

	_, after := e.db.Size()
	var reclaimed uint64
	if after < before {
		reclaimed = uint64(before - after)
	}

	e.lastGC.Store(time.Now().UnixMilli())
	e.reclaimed.Add(reclaimed)
	if m := e.metrics.Load(); m != nil {
		m.gcRuns.Inc()
		m.gcReclaimed.Add(float64(reclaimed))
	}

	e.log.Debug("value log gc done",
		"rewrites", rewrites,
		"bytes_reclaimed", reclaimed,
		"elapsed", time.Since(start))
	return reclaimed, nil
}

// Stats reports the on-disk sizes and GC history. Badger keeps no cheap
// key count, so TotalKeys stays zero.
func (e *BadgerEngine) Stats(ctx context.Context) (*KVStats, error) {
	lsm, vlog := e.db.Size()
	return &KVStats{
		Engine:           EngineBadger,
		TotalSize:        uint64(lsm + vlog),
		LSMSize:          uint64(lsm),
		ValueLogSize:     uint64(vlog),
		LastGCTime:       e.lastGC.Load(),
		GCBytesReclaimed: e.reclaimed.Load(),
	}, nil
}

// Close stops the GC loop and closes the database. Later calls return nil.
func (e *BadgerEngine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		close(e.stop)
		<-e.done
		if cerr := e.db.Close(); cerr != nil {
			err = fmt.Errorf("badger: close: %w", cerr)
			return
		}
		e.log.Info("badger engine closed")
	})
	return err
}

func (e *BadgerEngine) gcLoop() {
	defer close(e.done)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), e.interval)
			if _, err := e.GC(ctx); err != nil && !errors.Is(err, ErrClosed) {
				e.log.Error("scheduled value log gc failed", "error", err)
			}
			cancel()
		case <-e.stop:
			return
		}
	}
}

func mapBadgerErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return ErrKeyNotFound
	case errors.Is(err, badger.ErrDBClosed):
		return ErrClosed
	}
	return err
}

type badgerMetrics struct {
	gcRuns      prometheus.Counter
	gcReclaimed prometheus.Counter
}

// RegisterMetrics exports the database sizes, read at scrape time, and
// GC counters to registry.
func (e *BadgerEngine) RegisterMetrics(registry prometheus.Registerer) *BadgerEngine {
	m := &badgerMetrics{
		gcRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tokentables",
			Subsystem: "badger",
			Name:      "gc_runs_total",
			Help:      "Value log GC runs",
		}),
		gcReclaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tokentables",
			Subsystem: "badger",
			Name:      "gc_bytes_reclaimed_total",
			Help:      "Bytes the value log shrank by during GC",
		}),
	}
	size := func(vlog bool) func() float64 {
		return func() float64 {
			lsm, v := e.db.Size()
			if vlog {
				return float64(v)
			}
			return float64(lsm)
		}
	}
	registry.MustRegister(
		m.gcRuns,
		m.gcReclaimed,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "tokentables",
			Subsystem: "badger",
			Name:      "lsm_size_bytes",
			Help:      "LSM tree size",
		}, size(false)),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "tokentables",
			Subsystem: "badger",
			Name:      "value_log_size_bytes",
			Help:      "Value log size",
		}, size(true)),
	)
	e.metrics.Store(m)
	return e
}

// badgerLog routes Badger's own logging into the engine logger. Badger's
// info messages are chatty and go to debug.
type badgerLog struct{ l logger.Logger }

func (b badgerLog) Errorf(format string, args ...any) {
	b.l.Error(fmt.Sprintf(format, args...))
}

func (b badgerLog) Warningf(format string, args ...any) {
	b.l.Warn(fmt.Sprintf(format, args...))
}

func (b badgerLog) Infof(format string, args ...any) {
	b.l.Debug(fmt.Sprintf(format, args...))
}

func (b badgerLog) Debugf(format string, args ...any) {
	b.l.Debug(fmt.Sprintf(format, args...))
}
