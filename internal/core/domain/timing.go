// Package domain defines the core domain models for tokentables.
package domain

import (
	"encoding/json"
	"time"
)

// Default timing values.
const (
	// DefaultSessionTimeout is the allotted lifetime of a new session.
	DefaultSessionTimeout = 60 * time.Minute

	// DefaultTokenTimeout is the allotted lifetime of a new token.
	// Zero means tokens do not expire unless given a timeout.
	DefaultTokenTimeout time.Duration = 0

	// DefaultChopInterval is the amount removed from every timer per sweep.
	DefaultChopInterval = 500 * time.Millisecond
)

// TimingInfo is the countdown state shared by sessions and tokens.
//
// A record with zero TimeAllotted is unbounded: the sweep leaves it alone.
// A detached record counts down TimeLeftAfterDetachment, and stays
// unbounded only when that is zero too.
type TimingInfo struct {
	DetachmentAllowed       bool
	IsDetached              bool
	TimeLeft                time.Duration
	TimeLeftAfterDetachment time.Duration
	TimeAllotted            time.Duration
}

func newTimingInfo(timeout time.Duration) TimingInfo {
	if timeout < 0 {
		timeout = 0
	}
	return TimingInfo{
		TimeLeft:     timeout,
		TimeAllotted: timeout,
	}
}

// Unbounded reports whether the record never expires in its current state.
func (t *TimingInfo) Unbounded() bool {
	if t.IsDetached {
		return t.TimeLeftAfterDetachment <= 0 && t.TimeAllotted <= 0
	}
	return t.TimeAllotted <= 0
}

// Chop removes interval from the active countdown and reports whether the
// record reached zero or below. Expired records are left unchanged.
func (t *TimingInfo) Chop(interval time.Duration) (expired bool) {
	if t.Unbounded() {
		return false
	}
	if t.IsDetached {
		left := t.TimeLeftAfterDetachment - interval
		if left <= 0 {
			return true
		}
		t.TimeLeftAfterDetachment = left
		return false
	}
	left := t.TimeLeft - interval
	if left <= 0 {
		return true
	}
	t.TimeLeft = left
	return false
}

// SetTimeout sets both the allotted and remaining time.
func (t *TimingInfo) SetTimeout(timeout time.Duration) {
	if timeout < 0 {
		timeout = 0
	}
	t.TimeAllotted = timeout
	t.TimeLeft = timeout
}

// Detach switches the countdown to the after-detachment clock.
// When no after-detachment time was set, the allotted time is used.
func (t *TimingInfo) Detach() {
	t.IsDetached = true
	if t.TimeLeftAfterDetachment <= 0 {
		t.TimeLeftAfterDetachment = t.TimeAllotted
	}
}

// Attach switches the countdown back to the main clock.
func (t *TimingInfo) Attach() {
	t.IsDetached = false
}

// timingWire is the persisted layout; durations are milliseconds.
type timingWire struct {
	DetachmentAllowed       bool  `json:"_detachment_allowed"`
	IsDetached              bool  `json:"_is_detached"`
	TimeLeft                int64 `json:"_time_left"`
	TimeLeftAfterDetachment int64 `json:"_time_left_after_detachment"`
	TimeAllotted            int64 `json:"_time_allotted"`
	Shared                  *bool `json:"_shared,omitempty"`
}

func (t TimingInfo) wire() timingWire {
	return timingWire{
		DetachmentAllowed:       t.DetachmentAllowed,
		IsDetached:              t.IsDetached,
		TimeLeft:                t.TimeLeft.Milliseconds(),
		TimeLeftAfterDetachment: t.TimeLeftAfterDetachment.Milliseconds(),
		TimeAllotted:            t.TimeAllotted.Milliseconds(),
	}
}

func (w timingWire) timing() TimingInfo {
	return TimingInfo{
		DetachmentAllowed:       w.DetachmentAllowed,
		IsDetached:              w.IsDetached,
		TimeLeft:                time.Duration(w.TimeLeft) * time.Millisecond,
		TimeLeftAfterDetachment: time.Duration(w.TimeLeftAfterDetachment) * time.Millisecond,
		TimeAllotted:            time.Duration(w.TimeAllotted) * time.Millisecond,
	}
}

// TokenTimingInfo is the timing record of a transition token.
type TokenTimingInfo struct {
	TimingInfo
}

// NewTokenTimingInfo creates a record with the given allotted time.
func NewTokenTimingInfo(timeout time.Duration) *TokenTimingInfo {
	return &TokenTimingInfo{TimingInfo: newTimingInfo(timeout)}
}

// MarshalJSON encodes the record in the persisted layout.
func (t TokenTimingInfo) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.wire())
}

// UnmarshalJSON decodes the persisted layout.
func (t *TokenTimingInfo) UnmarshalJSON(data []byte) error {
	var w timingWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	t.TimingInfo = w.timing()
	return nil
}

// SessionTimingInfo is the timing record of a session.
// Shared records are mirrored to storage on every mutation.
type SessionTimingInfo struct {
	TimingInfo
	Shared bool
}

// NewSessionTimingInfo creates a record with the given allotted time.
func NewSessionTimingInfo(timeout time.Duration) *SessionTimingInfo {
	return &SessionTimingInfo{TimingInfo: newTimingInfo(timeout)}
}

// MarshalJSON encodes the record in the persisted layout.
func (s SessionTimingInfo) MarshalJSON() ([]byte, error) {
	w := s.wire()
	shared := s.Shared
	w.Shared = &shared
	return json.Marshal(w)
}

// UnmarshalJSON decodes the persisted layout.
func (s *SessionTimingInfo) UnmarshalJSON(data []byte) error {
	var w timingWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	s.TimingInfo = w.timing()
	s.Shared = w.Shared != nil && *w.Shared
	return nil
}

// ParseSessionTimingInfo decodes a persisted session timing record.
func ParseSessionTimingInfo(data string) (*SessionTimingInfo, error) {
	var s SessionTimingInfo
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, ErrMalformedRecord.WithDetails("session timing").WithCause(err)
	}
	return &s, nil
}
