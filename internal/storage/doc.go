// Package storage provides the persistence layer behind the token tables.
//
// A KVEngine holds raw bytes. Three engines are available:
//
//   - memory: sharded concurrent map, nothing survives a restart
//   - badger: embedded LSM store on local disk
//   - redis: remote server, shareable between processes
//
// TableStore lays the token tables' records out on an engine: session
// verifiers, their reverse index and token values. A verifier and its
// reverse index entry change together through KVEngine.Apply. Keys for the verifier
// MAC and optional value encryption come from a passphrase stretched with
// Argon2id and split with HKDF.
package storage
