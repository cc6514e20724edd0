// Package domain defines the core domain models for tokentables.
package domain

import (
	"strings"

	"github.com/yndnr/tokentables/pkg/token"
)

// SessionPrefix is the reserved prefix that makes CreateToken classify
// the result as a session token.
const SessionPrefix = "user+"

// Ucwid identifies an owner. It is supplied by callers, never generated here.
type Ucwid string

// SessionToken identifies one login session.
type SessionToken string

// TransitionToken identifies one capability or asset.
type TransitionToken string

// Hash is the opaque verifier returned by storage when a session secret is stored.
type Hash string

// TokenKind tags the variant held by a Token.
type TokenKind uint8

const (
	// KindTransition marks a TransitionToken.
	KindTransition TokenKind = iota
	// KindSession marks a SessionToken.
	KindSession
)

// String returns the kind name.
func (k TokenKind) String() string {
	switch k {
	case KindSession:
		return "session"
	case KindTransition:
		return "transition"
	default:
		return "unknown"
	}
}

// Token is a two-variant value over SessionToken and TransitionToken.
// It is comparable and serves as the key of indexes that merge both classes.
type Token struct {
	Kind  TokenKind
	Value string
}

// SessionKey wraps a session token.
func SessionKey(s SessionToken) Token {
	return Token{Kind: KindSession, Value: string(s)}
}

// TransitionKey wraps a transition token.
func TransitionKey(t TransitionToken) Token {
	return Token{Kind: KindTransition, Value: string(t)}
}

// IsSession reports whether the token is a session token.
func (t Token) IsSession() bool {
	return t.Kind == KindSession
}

// Session returns the session variant and whether the token holds one.
func (t Token) Session() (SessionToken, bool) {
	if t.Kind != KindSession {
		return "", false
	}
	return SessionToken(t.Value), true
}

// Transition returns the transition variant and whether the token holds one.
func (t Token) Transition() (TransitionToken, bool) {
	if t.Kind != KindTransition {
		return "", false
	}
	return TransitionToken(t.Value), true
}

// String returns the raw token value.
func (t Token) String() string {
	return t.Value
}

// TokenCreator produces fresh, collision-free tokens.
//
// An empty prefix always yields a TransitionToken. A prefix equal to
// SessionPrefix yields a SessionToken valued prefix+random; any other prefix
// yields a TransitionToken with the same concatenation.
type TokenCreator interface {
	Create(prefix string) Token
}

// TokenCreatorFunc adapts a function to TokenCreator.
type TokenCreatorFunc func(prefix string) Token

// Create calls f(prefix).
func (f TokenCreatorFunc) Create(prefix string) Token {
	return f(prefix)
}

// NewTokenCreator returns a TokenCreator that draws the random part from gen
// and applies the prefix classification rule.
func NewTokenCreator(gen func() string) TokenCreator {
	return TokenCreatorFunc(func(prefix string) Token {
		return ClassifyToken(prefix, gen())
	})
}

// ClassifyToken joins prefix and random and tags the result.
func ClassifyToken(prefix, random string) Token {
	value := prefix + random
	if prefix != "" && prefix == SessionPrefix {
		return Token{Kind: KindSession, Value: value}
	}
	return Token{Kind: KindTransition, Value: value}
}

// DefaultTokenCreator renders 128 bits from crypto/rand as 32 hex characters.
var DefaultTokenCreator TokenCreator = NewTokenCreator(token.Hex128)

// UUIDTokenCreator uses random (version 4) UUIDs.
var UUIDTokenCreator TokenCreator = NewTokenCreator(token.UUID)

// ULIDTokenCreator uses lowercase ULIDs with crypto/rand entropy.
var ULIDTokenCreator TokenCreator = NewTokenCreator(token.ULID)

// TokenCreatorByName resolves a generator name ("hex", "uuid", "ulid").
// Unknown or empty names resolve to DefaultTokenCreator.
func TokenCreatorByName(name string) TokenCreator {
	switch strings.ToLower(name) {
	case "uuid":
		return UUIDTokenCreator
	case "ulid":
		return ULIDTokenCreator
	default:
		return DefaultTokenCreator
	}
}
