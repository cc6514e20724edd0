// Package service provides the token/session table engine.
package service

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/yndnr/tokentables/internal/core/domain"
)

// SweepResult reports one DecrementTimers pass.
type SweepResult struct {
	ExpiredSessions []domain.SessionToken
	ExpiredTokens   []domain.TransitionToken

	// Err joins storage failures met while persisting shared records or
	// destroying expired entities. The in-memory sweep always completes.
	Err error
}

// merge appends other into r.
func (r *SweepResult) merge(other SweepResult) {
	r.ExpiredSessions = append(r.ExpiredSessions, other.ExpiredSessions...)
	r.ExpiredTokens = append(r.ExpiredTokens, other.ExpiredTokens...)
	r.Err = errors.Join(r.Err, other.Err)
}

// DecrementTimers removes one chop interval from every session and token
// countdown, the after-detachment one for detached entities. Records that
// reach zero are removed and their entity destroyed: sessions first, then
// tokens. Shared session records that survive are re-persisted.
//
// It must not overlap with itself or any other operation on the tables.
func (t *TokenTables) DecrementTimers(ctx context.Context) SweepResult {
	start := time.Now()
	var result SweepResult
	var errs []error

	sessions := make([]domain.SessionToken, 0, len(t.sessionTiming))
	for s := range t.sessionTiming {
		sessions = append(sessions, s)
	}
	slices.Sort(sessions)

	for _, s := range sessions {
		timing := t.sessionTiming[s]
		if timing.Unbounded() {
			continue
		}
		if timing.Chop(t.chopInterval) {
			result.ExpiredSessions = append(result.ExpiredSessions, s)
			continue
		}
		if err := t.persistSessionTiming(ctx, s, timing); err != nil {
			errs = append(errs, err)
		}
	}
	for _, s := range result.ExpiredSessions {
		if err := t.destroySession(ctx, s, ReasonExpired); err != nil {
			errs = append(errs, err)
		}
	}

	tokens := make([]domain.TransitionToken, 0, len(t.tokenTiming))
	for tok := range t.tokenTiming {
		tokens = append(tokens, tok)
	}
	slices.Sort(tokens)

	for _, tok := range tokens {
		timing, ok := t.tokenTiming[tok]
		if !ok {
			continue
		}
		if timing.Chop(t.chopInterval) {
			result.ExpiredTokens = append(result.ExpiredTokens, tok)
			if err := t.destroyToken(ctx, tok, ReasonExpired); err != nil {
				errs = append(errs, err)
			}
		}
	}

	result.Err = errors.Join(errs...)

	t.metrics.SweepCompleted(time.Since(start), len(result.ExpiredSessions), len(result.ExpiredTokens))

	if len(result.ExpiredSessions) > 0 || len(result.ExpiredTokens) > 0 {
		t.log(ctx).Debug("sweep expired entities",
			"sessions", len(result.ExpiredSessions),
			"tokens", len(result.ExpiredTokens))
	}
	return result
}
