// Package service provides the token/session table engine.
package service

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/tokentables/internal/core/domain"
	"github.com/yndnr/tokentables/internal/telemetry/logger"
)

// Config holds timing configuration for a TokenTables instance.
type Config struct {
	// SessionTimeout is the allotted lifetime of new sessions (default: 60m).
	SessionTimeout time.Duration

	// TokenTimeout is the allotted lifetime of new tokens.
	// Zero means tokens do not expire unless given a timeout (default: 0).
	TokenTimeout time.Duration

	// ChopInterval is removed from every countdown per sweep (default: 500ms).
	ChopInterval time.Duration

	// StorageWarnRate limits storage-failure warnings per second (default: 1).
	StorageWarnRate float64

	// StorageWarnBurst is the warning burst size (default: 5).
	StorageWarnBurst int
}

// DefaultConfig returns default configuration.
func DefaultConfig() *Config {
	return &Config{
		SessionTimeout:   domain.DefaultSessionTimeout,
		TokenTimeout:     domain.DefaultTokenTimeout,
		ChopInterval:     domain.DefaultChopInterval,
		StorageWarnRate:  1,
		StorageWarnBurst: 5,
	}
}

// Option configures a TokenTables.
type Option func(*TokenTables)

// WithTokenCreator sets the token factory. A nil creator selects the default.
func WithTokenCreator(c domain.TokenCreator) Option {
	return func(t *TokenTables) {
		t.SetTokenCreator(c)
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(t *TokenTables) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(t *TokenTables) {
		if m != nil {
			t.metrics = m
		}
	}
}

// TokenTables is the in-memory authorization state: sessions, their owners,
// the transition tokens they bound or carry, orphans, timing and transfer
// metadata.
//
// TokenTables is not safe for concurrent use. Callers serialize access to
// one instance; Pool does this per partition.
type TokenTables struct {
	db          DB
	creator     domain.TokenCreator
	logger      logger.Logger
	metrics     Metrics
	warnLimiter *rate.Limiter

	sessionTimeout time.Duration
	tokenTimeout   time.Duration
	chopInterval   time.Duration

	// session <-> owner
	sessionToOwner map[domain.SessionToken]domain.Ucwid
	ownerToSession map[domain.Ucwid]domain.SessionToken
	verifiers      map[domain.SessionToken]domain.Hash

	// global owner index over both token classes
	tokenToOwner map[domain.Token]domain.Ucwid

	tokenToSession map[domain.TransitionToken]domain.SessionToken
	sessionTokens  map[domain.SessionToken]*domain.SessionTokenSets
	tokenValues    map[domain.TransitionToken]string
	transferable   map[domain.TransitionToken]*domain.TransferableTokenInfo
	orphans        domain.TokenSet
	detached       map[domain.SessionToken]struct{}

	sessionTiming map[domain.SessionToken]*domain.SessionTimingInfo
	tokenTiming   map[domain.TransitionToken]*domain.TokenTimingInfo
}

// New creates a TokenTables over the given storage collaborator.
// A nil cfg uses DefaultConfig.
func New(db DB, cfg *Config, opts ...Option) *TokenTables {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	chop := cfg.ChopInterval
	if chop <= 0 {
		chop = domain.DefaultChopInterval
	}
	warnRate, warnBurst := cfg.StorageWarnRate, cfg.StorageWarnBurst
	if warnRate <= 0 {
		warnRate = 1
	}
	if warnBurst <= 0 {
		warnBurst = 5
	}

	t := &TokenTables{
		db:             db,
		creator:        domain.DefaultTokenCreator,
		logger:         logger.Default(),
		metrics:        NopMetrics{},
		warnLimiter:    rate.NewLimiter(rate.Limit(warnRate), warnBurst),
		sessionTimeout: max(cfg.SessionTimeout, 0),
		tokenTimeout:   max(cfg.TokenTimeout, 0),
		chopInterval:   chop,

		sessionToOwner: make(map[domain.SessionToken]domain.Ucwid),
		ownerToSession: make(map[domain.Ucwid]domain.SessionToken),
		verifiers:      make(map[domain.SessionToken]domain.Hash),
		tokenToOwner:   make(map[domain.Token]domain.Ucwid),
		tokenToSession: make(map[domain.TransitionToken]domain.SessionToken),
		sessionTokens:  make(map[domain.SessionToken]*domain.SessionTokenSets),
		tokenValues:    make(map[domain.TransitionToken]string),
		transferable:   make(map[domain.TransitionToken]*domain.TransferableTokenInfo),
		orphans:        make(domain.TokenSet),
		detached:       make(map[domain.SessionToken]struct{}),
		sessionTiming:  make(map[domain.SessionToken]*domain.SessionTimingInfo),
		tokenTiming:    make(map[domain.TransitionToken]*domain.TokenTimingInfo),
	}

	for _, opt := range opts {
		opt(t)
	}
	return t
}

// CreateToken returns a fresh token from the configured factory.
// SessionPrefix yields a session token; anything else a transition token.
func (t *TokenTables) CreateToken(prefix string) domain.Token {
	return t.creator.Create(prefix)
}

// SetTokenCreator replaces the token factory. A nil creator restores the default.
func (t *TokenTables) SetTokenCreator(c domain.TokenCreator) {
	if c == nil {
		c = domain.DefaultTokenCreator
	}
	t.creator = c
}

// ChopInterval returns the amount removed from every countdown per sweep.
func (t *TokenTables) ChopInterval() time.Duration {
	return t.chopInterval
}

// storageErr records a storage failure and wraps it.
func (t *TokenTables) storageErr(ctx context.Context, op string, err error) error {
	t.metrics.StorageError(op)
	if t.warnLimiter.Allow() {
		t.log(ctx).Warn("storage operation failed", "op", op, "error", err)
	}
	return domain.ErrStorageError.WithDetails(op).WithCause(err)
}

// log returns the context logger when one is attached, else the table's
// own, enriched with the request ID and tenant found in ctx.
func (t *TokenTables) log(ctx context.Context) logger.Logger {
	if logger.HasLogger(ctx) {
		return logger.L(ctx)
	}
	return logger.Enrich(ctx, t.logger)
}
