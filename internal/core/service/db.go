// Package service provides the token/session table engine.
package service

import (
	"context"
	"time"

	"github.com/yndnr/tokentables/internal/core/domain"
)

// DB is the storage collaborator consulted on cache miss and for
// persistence of token values, session secrets and shared session timing.
//
// Keys passed to the generic blob methods are raw token strings: transition
// tokens for values, session tokens for shared timing records.
type DB interface {
	// SetSessionKeyValue persists an owner secret for a session and returns
	// an opaque verifier.
	SetSessionKeyValue(ctx context.Context, session domain.SessionToken, owner domain.Ucwid) (domain.Hash, error)

	// DelSessionKeyValue removes a session's persisted secret.
	// It reports whether a secret was present.
	DelSessionKeyValue(ctx context.Context, session domain.SessionToken) (bool, error)

	// SetKeyValue stores a blob under key.
	SetKeyValue(ctx context.Context, key string, value string) error

	// GetKeyValue retrieves a blob. ok is false when the key is unknown.
	GetKeyValue(ctx context.Context, key string) (value string, ok bool, err error)

	// DelKeyValue removes a blob. Unknown keys are not an error.
	DelKeyValue(ctx context.Context, key string) error

	// SessionVerifier returns the verifier currently stored for a session.
	// ok is false when the session has none.
	SessionVerifier(ctx context.Context, session domain.SessionToken) (hash domain.Hash, ok bool, err error)

	// CheckHash reports whether owner still matches the verifier.
	CheckHash(ctx context.Context, hash domain.Hash, owner domain.Ucwid) (bool, error)
}

// Metrics receives table events. All methods must be cheap and non-blocking.
type Metrics interface {
	SessionAdded()
	SessionDestroyed(reason string)
	TokenAdded()
	TokenDestroyed(reason string)
	TokenOrphaned()
	TokenTransferred()
	StorageError(op string)
	SweepCompleted(elapsed time.Duration, expiredSessions, expiredTokens int)
}

// Destruction reasons reported to Metrics.
const (
	ReasonExplicit = "explicit"
	ReasonExpired  = "expired"
	ReasonSession  = "session"
)

// NopMetrics discards all events.
type NopMetrics struct{}

func (NopMetrics) SessionAdded() {}
func (NopMetrics) SessionDestroyed(string) {}
func (NopMetrics) TokenAdded() {}
func (NopMetrics) TokenDestroyed(string) {}
func (NopMetrics) TokenOrphaned() {}
func (NopMetrics) TokenTransferred() {}
func (NopMetrics) StorageError(string) {}
func (NopMetrics) SweepCompleted(time.Duration, int, int) {}
