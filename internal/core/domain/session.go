// Package domain defines the core domain models for tokentables.
package domain

import "slices"

// TokenSet is a set of transition tokens.
type TokenSet map[TransitionToken]struct{}

// Add inserts a token.
func (s TokenSet) Add(t TransitionToken) {
	s[t] = struct{}{}
}

// Remove deletes a token.
func (s TokenSet) Remove(t TransitionToken) {
	delete(s, t)
}

// Has reports membership.
func (s TokenSet) Has(t TransitionToken) bool {
	_, ok := s[t]
	return ok
}

// Items returns the members in sorted order.
func (s TokenSet) Items() []TransitionToken {
	items := make([]TransitionToken, 0, len(s))
	for t := range s {
		items = append(items, t)
	}
	slices.Sort(items)
	return items
}

// SessionTokenSets partitions the transition tokens associated with a session.
//
// Bounded tokens are exclusive to the session and are destroyed with it.
// Carried tokens are transferable and survive the session as orphans.
type SessionTokenSets struct {
	Bounded TokenSet
	Carried TokenSet
}

// NewSessionTokenSets creates empty sets.
func NewSessionTokenSets() *SessionTokenSets {
	return &SessionTokenSets{
		Bounded: make(TokenSet),
		Carried: make(TokenSet),
	}
}

// Remove drops the token from both sets.
func (s *SessionTokenSets) Remove(t TransitionToken) {
	s.Bounded.Remove(t)
	s.Carried.Remove(t)
}

// Has reports whether the token is in either set.
func (s *SessionTokenSets) Has(t TransitionToken) bool {
	return s.Bounded.Has(t) || s.Carried.Has(t)
}

// Clear empties both sets.
func (s *SessionTokenSets) Clear() {
	clear(s.Bounded)
	clear(s.Carried)
}

// Len returns the number of tokens across both sets.
func (s *SessionTokenSets) Len() int {
	return len(s.Bounded) + len(s.Carried)
}
