// Package service provides the token/session table engine.
//
// TokenTables owns the authorization state of one logical instance:
//
//   - sessions and their owners (a bidirectional index)
//   - per-session token sets: bounded tokens die with the session, carried
//     tokens survive it as orphans
//   - the global owner index over session and transition tokens
//   - timing records counted down by DecrementTimers
//   - transfer metadata of carried tokens (owner, sellable flag, price)
//
// Storage is reached through the DB collaborator, which is consulted on
// cache miss and written eagerly on create and mutate. TokenTables has no
// internal locking; Pool serializes access per partition and Sweeper drives
// the periodic expiry sweep.
package service
