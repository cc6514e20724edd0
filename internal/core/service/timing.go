// Package service provides the token/session table engine.
package service

import (
	"context"
	"time"

	"github.com/yndnr/tokentables/internal/core/domain"
)

// ============================================================================
// General Timeouts
// ============================================================================

// SetGeneralSessionTimeout sets the allotted time of sessions added later.
func (t *TokenTables) SetGeneralSessionTimeout(d time.Duration) {
	t.sessionTimeout = max(d, 0)
}

// GeneralSessionTimeout returns the allotted time of new sessions.
func (t *TokenTables) GeneralSessionTimeout() time.Duration {
	return t.sessionTimeout
}

// SetGeneralTokenTimeout sets the allotted time of tokens added later.
// Zero means new tokens do not expire.
func (t *TokenTables) SetGeneralTokenTimeout(d time.Duration) {
	t.tokenTimeout = max(d, 0)
}

// GeneralTokenTimeout returns the allotted time of new tokens.
func (t *TokenTables) GeneralTokenTimeout() time.Duration {
	return t.tokenTimeout
}

// ============================================================================
// Session Timing
// ============================================================================

// SetSessionTimeout resets the session's allotted and remaining time.
func (t *TokenTables) SetSessionTimeout(ctx context.Context, session domain.SessionToken, d time.Duration) error {
	timing, ok := t.sessionTiming[session]
	if !ok {
		return nil
	}
	timing.SetTimeout(d)
	return t.persistSessionTiming(ctx, session, timing)
}

// GetSessionTimeout returns the session's allotted time.
func (t *TokenTables) GetSessionTimeout(session domain.SessionToken) (time.Duration, bool) {
	timing, ok := t.sessionTiming[session]
	if !ok {
		return 0, false
	}
	return timing.TimeAllotted, true
}

// GetSessionTimeLeft returns the session's active countdown: the
// after-detachment time when detached, the remaining time otherwise.
func (t *TokenTables) GetSessionTimeLeft(session domain.SessionToken) (time.Duration, bool) {
	timing, ok := t.sessionTiming[session]
	if !ok {
		return 0, false
	}
	return activeLeft(&timing.TimingInfo), true
}

// SetSessionTimeLeft overwrites the session's remaining time.
func (t *TokenTables) SetSessionTimeLeft(ctx context.Context, session domain.SessionToken, d time.Duration) error {
	timing, ok := t.sessionTiming[session]
	if !ok {
		return nil
	}
	timing.TimeLeft = max(d, 0)
	return t.persistSessionTiming(ctx, session, timing)
}

// ============================================================================
// Token Timing
// ============================================================================

// SetTokenTimeout resets the token's allotted and remaining time.
func (t *TokenTables) SetTokenTimeout(token domain.TransitionToken, d time.Duration) {
	if timing, ok := t.tokenTiming[token]; ok {
		timing.SetTimeout(d)
	}
}

// GetTokenTimeout returns the token's allotted time.
func (t *TokenTables) GetTokenTimeout(token domain.TransitionToken) (time.Duration, bool) {
	timing, ok := t.tokenTiming[token]
	if !ok {
		return 0, false
	}
	return timing.TimeAllotted, true
}

// GetTokenTimeLeft returns the token's active countdown.
func (t *TokenTables) GetTokenTimeLeft(token domain.TransitionToken) (time.Duration, bool) {
	timing, ok := t.tokenTiming[token]
	if !ok {
		return 0, false
	}
	return activeLeft(&timing.TimingInfo), true
}

// SetTokenTimeLeft overwrites the token's remaining time.
func (t *TokenTables) SetTokenTimeLeft(token domain.TransitionToken, d time.Duration) {
	if timing, ok := t.tokenTiming[token]; ok {
		timing.TimeLeft = max(d, 0)
	}
}

// SetDisownmentTokenTimeout sets how long a token allowed to detach, such
// as a transferable one, survives once orphaned.
func (t *TokenTables) SetDisownmentTokenTimeout(token domain.TransitionToken, d time.Duration) {
	if timing, ok := t.tokenTiming[token]; ok && timing.DetachmentAllowed {
		timing.TimeLeftAfterDetachment = max(d, 0)
	}
}

func activeLeft(timing *domain.TimingInfo) time.Duration {
	if timing.IsDetached {
		return timing.TimeLeftAfterDetachment
	}
	return timing.TimeLeft
}

// ============================================================================
// Sellability
// ============================================================================

// SetTokenSellable lists a transferable token for sale. A non-nil price
// replaces the asking price.
func (t *TokenTables) SetTokenSellable(token domain.TransitionToken, price *float64) {
	info, ok := t.transferable[token]
	if !ok {
		return
	}
	if price != nil {
		info.Price = *price
	}
	info.Sellable = true
}

// UnsetTokenSellable withdraws a transferable token from sale.
func (t *TokenTables) UnsetTokenSellable(token domain.TransitionToken) {
	if info, ok := t.transferable[token]; ok {
		info.Sellable = false
	}
}
