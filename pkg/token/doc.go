// Package token provides token generation and verifier hashing utilities.
//
// Generators:
//
//   - Hex128: 128 bits from crypto/rand as 32 lowercase hex characters
//   - UUID: random (version 4) UUID strings
//   - ULID: lowercase ULIDs with monotonic crypto/rand entropy
//
// Verifiers:
//
//   - KeyedHash: BLAKE2b-256 keyed MAC, salted per call
//   - VerifyKeyedHash: constant-time re-derivation of a KeyedHash
//
// Raw secrets are never stored, only verifiers.
package token
