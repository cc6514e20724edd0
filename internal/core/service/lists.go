// Package service provides the token/session table engine.
package service

import (
	"slices"

	"github.com/yndnr/tokentables/internal/core/domain"
)

// ListTransferableTokens returns the tokens carried by session.
func (t *TokenTables) ListTransferableTokens(session domain.SessionToken) []domain.TransitionToken {
	if _, ok := t.sessionTiming[session]; !ok {
		return []domain.TransitionToken{}
	}
	sets, ok := t.sessionTokens[session]
	if !ok {
		return []domain.TransitionToken{}
	}
	return sets.Carried.Items()
}

// ListSellableTokens returns the transferable tokens listed for sale.
func (t *TokenTables) ListSellableTokens() []domain.TransitionToken {
	out := make([]domain.TransitionToken, 0)
	for tok, info := range t.transferable {
		if info.Sellable {
			out = append(out, tok)
		}
	}
	slices.Sort(out)
	return out
}

// MapSellableTokens returns the asking price of every token listed for sale.
func (t *TokenTables) MapSellableTokens() map[domain.TransitionToken]float64 {
	out := make(map[domain.TransitionToken]float64)
	for tok, info := range t.transferable {
		if info.Sellable {
			out[tok] = info.Price
		}
	}
	return out
}

// ListUnassignedTokens returns the orphaned tokens.
func (t *TokenTables) ListUnassignedTokens() []domain.TransitionToken {
	return t.orphans.Items()
}

// ListDetachedSessions returns the sessions currently detached.
func (t *TokenTables) ListDetachedSessions() []domain.SessionToken {
	out := make([]domain.SessionToken, 0, len(t.detached))
	for s := range t.detached {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// TableStats is a snapshot of table sizes.
type TableStats struct {
	Sessions     int
	Tokens       int
	Transferable int
	Orphans      int
	Detached     int
}

// Stats returns the current table sizes.
func (t *TokenTables) Stats() TableStats {
	return TableStats{
		Sessions:     len(t.sessionTiming),
		Tokens:       len(t.tokenTiming),
		Transferable: len(t.transferable),
		Orphans:      len(t.orphans),
		Detached:     len(t.detached),
	}
}

// Add sums two snapshots.
func (s TableStats) Add(o TableStats) TableStats {
	return TableStats{
		Sessions:     s.Sessions + o.Sessions,
		Tokens:       s.Tokens + o.Tokens,
		Transferable: s.Transferable + o.Transferable,
		Orphans:      s.Orphans + o.Orphans,
		Detached:     s.Detached + o.Detached,
	}
}
