// Package domain defines the core domain models for tokentables.
//
// Domain models are pure value objects without any IO dependencies
// or framework coupling. This package contains:
//
//   - Identifiers: Ucwid, SessionToken, TransitionToken, Hash and the
//     two-variant Token key used by the global owner index
//   - TokenCreator: the pluggable token factory and its default
//   - SessionTokenSets: the bounded/carried partition of a session's tokens
//   - Timing records: SessionTimingInfo and TokenTimingInfo countdowns
//   - TransferableTokenInfo: owner, sellable flag and price of a carried token
//   - Errors: domain-specific error definitions
//
// Timing and transfer records serialize to the JSON layout used by the
// storage collaborator, with durations encoded as milliseconds.
package domain
