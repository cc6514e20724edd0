// Package service provides the token/session table engine.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/yndnr/tokentables/internal/core/domain"
	"github.com/yndnr/tokentables/internal/telemetry/logger"
)

// Sweepable is anything DecrementTimers can be driven on. Implementations
// handle their own locking; Pool does.
type Sweepable interface {
	DecrementTimers(ctx context.Context) SweepResult
}

// Sweeper drives DecrementTimers on a fixed cadence. Ticks never overlap:
// a slow sweep delays the next one.
type Sweeper struct {
	target   Sweepable
	interval time.Duration
	logger   logger.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewSweeper creates a sweeper. interval should match the tables' chop
// interval so countdowns track wall time.
func NewSweeper(target Sweepable, interval time.Duration, l logger.Logger) *Sweeper {
	if l == nil {
		l = logger.Default()
	}
	if interval <= 0 {
		interval = domain.DefaultChopInterval
	}
	return &Sweeper{
		target:   target,
		interval: interval,
		logger:   l,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the sweep loop. Later calls are no-ops.
func (s *Sweeper) Start() {
	s.startOnce.Do(func() {
		go s.loop()
		s.logger.Info("sweeper started", "interval", s.interval)
	})
}

// Stop ends the loop and waits for an in-flight sweep to finish.
// Stop on a sweeper that was never started returns immediately.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		started := true
		s.startOnce.Do(func() { started = false })
		if started {
			<-s.doneCh
		}
		s.logger.Info("sweeper stopped")
	})
}

func (s *Sweeper) loop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			result := s.target.DecrementTimers(context.Background())
			if result.Err != nil {
				s.logger.Warn("sweep completed with storage errors", "error", result.Err)
			}

		case <-s.stopCh:
			return
		}
	}
}
