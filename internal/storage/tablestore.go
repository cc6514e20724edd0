package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/yndnr/tokentables/internal/core/domain"
	"github.com/yndnr/tokentables/pkg/crypto/adaptive"
	"github.com/yndnr/tokentables/pkg/token"
)

// ErrDecryptionFailed is returned when a stored value does not open under
// the configured value key.
var ErrDecryptionFailed = errors.New("storage: decryption failed - wrong key or corrupted data")

// Key namespaces inside the KV engine.
const (
	prefixSession  = "sess/"
	prefixVerifier = "vfy/"
	prefixValue    = "tok/"
)

// TableStore is the storage collaborator of the token tables, laid out on a
// KVEngine:
//
//	sess/<session>  -> verifier
//	vfy/<verifier>  -> session
//	tok/<key>       -> value
//
// A partition view puts the same layout under p<N>/.
//
// A verifier is a salted keyed hash of the owner. It checks out while its
// session's secret is stored and the owner matches.
type TableStore struct {
	kv          KVEngine
	verifierKey []byte
	cipher      adaptive.Cipher
	namespace   string
}

// StoreOption configures a TableStore.
type StoreOption func(*TableStore)

// WithValueCipher encrypts values at rest. Each value is bound to its key
// as additional data.
func WithValueCipher(c adaptive.Cipher) StoreOption {
	return func(s *TableStore) {
		s.cipher = c
	}
}

// NewTableStore creates a store over kv with the given verifier MAC key.
func NewTableStore(kv KVEngine, verifierKey []byte, opts ...StoreOption) (*TableStore, error) {
	if len(verifierKey) > 64 {
		return nil, token.ErrInvalidKey
	}
	s := &TableStore{kv: kv, verifierKey: verifierKey}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Partition returns a view of the store whose records live under p<i>/.
// Views share the engine and keys but no records.
func (s *TableStore) Partition(i int) *TableStore {
	p := *s
	p.namespace = s.namespace + "p" + strconv.Itoa(i) + "/"
	return &p
}

// SetSessionKeyValue stores a fresh verifier for owner under session,
// replacing any previous one.
func (s *TableStore) SetSessionKeyValue(ctx context.Context, session domain.SessionToken, owner domain.Ucwid) (domain.Hash, error) {
	verifier, err := token.KeyedHash(s.verifierKey, string(owner))
	if err != nil {
		return "", err
	}

	var muts []Mutation
	if prev, err := s.kv.Get(ctx, s.sessKey(session)); err == nil {
		muts = append(muts, Del(s.vfyKey(domain.Hash(prev))))
	} else if !errors.Is(err, ErrKeyNotFound) {
		return "", err
	}
	muts = append(muts,
		Put(s.vfyKey(domain.Hash(verifier)), []byte(session)),
		Put(s.sessKey(session), []byte(verifier)),
	)

	if err := s.kv.Apply(ctx, muts); err != nil {
		return "", err
	}
	return domain.Hash(verifier), nil
}

// DelSessionKeyValue removes a session's verifier.
func (s *TableStore) DelSessionKeyValue(ctx context.Context, session domain.SessionToken) (bool, error) {
	verifier, err := s.kv.Get(ctx, s.sessKey(session))
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	err = s.kv.Apply(ctx, []Mutation{
		Del(s.vfyKey(domain.Hash(verifier))),
		Del(s.sessKey(session)),
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// SessionVerifier returns the verifier stored for session.
func (s *TableStore) SessionVerifier(ctx context.Context, session domain.SessionToken) (domain.Hash, bool, error) {
	verifier, err := s.kv.Get(ctx, s.sessKey(session))
	if errors.Is(err, ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return domain.Hash(verifier), true, nil
}

// CheckHash reports whether hash is a live verifier for owner.
func (s *TableStore) CheckHash(ctx context.Context, hash domain.Hash, owner domain.Ucwid) (bool, error) {
	if hash == "" || !token.VerifyKeyedHash(s.verifierKey, string(owner), string(hash)) {
		return false, nil
	}
	_, err := s.kv.Get(ctx, s.vfyKey(hash))
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SetKeyValue stores value under key.
func (s *TableStore) SetKeyValue(ctx context.Context, key string, value string) error {
	data := []byte(value)
	if s.cipher != nil {
		sealed, err := s.cipher.Encrypt(data, []byte(key))
		if err != nil {
			return fmt.Errorf("encrypt value: %w", err)
		}
		data = sealed
	}
	return s.kv.Set(ctx, s.tokKey(key), data)
}

// GetKeyValue retrieves the value under key.
func (s *TableStore) GetKeyValue(ctx context.Context, key string) (string, bool, error) {
	data, err := s.kv.Get(ctx, s.tokKey(key))
	if errors.Is(err, ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if s.cipher != nil {
		plain, err := s.cipher.Decrypt(data, []byte(key))
		if err != nil {
			return "", false, ErrDecryptionFailed
		}
		data = plain
	}
	return string(data), true, nil
}

// DelKeyValue removes the value under key.
func (s *TableStore) DelKeyValue(ctx context.Context, key string) error {
	return s.kv.Delete(ctx, s.tokKey(key))
}

// CountValues returns the number of stored values.
func (s *TableStore) CountValues(ctx context.Context) (int, error) {
	n := 0
	err := s.kv.Scan(ctx, s.tokKey(""), func(_, _ []byte) bool {
		n++
		return true
	})
	return n, err
}

func sessionKey(session domain.SessionToken) []byte {
	return []byte(prefixSession + string(session))
}

func verifierKey(hash domain.Hash) []byte {
	return []byte(prefixVerifier + string(hash))
}

func valueKey(key string) []byte {
	return []byte(prefixValue + key)
}

func (s *TableStore) sessKey(session domain.SessionToken) []byte {
	return append([]byte(s.namespace), sessionKey(session)...)
}

func (s *TableStore) vfyKey(hash domain.Hash) []byte {
	return append([]byte(s.namespace), verifierKey(hash)...)
}

func (s *TableStore) tokKey(key string) []byte {
	return append([]byte(s.namespace), valueKey(key)...)
}

// scanPrefix is the prefix covering every record of the view.
func (s *TableStore) scanPrefix() []byte {
	if s.namespace == "" {
		return nil
	}
	return []byte(s.namespace)
}

// splitPartition strips a leading p<N>/ segment from k.
func splitPartition(k string) (partition, rest string) {
	i := 1
	for i < len(k) && k[i] >= '0' && k[i] <= '9' {
		i++
	}
	if len(k) < 3 || k[0] != 'p' || i == 1 || i >= len(k) || k[i] != '/' {
		return "", k
	}
	return k[:i], k[i+1:]
}

// Inventory counts the records of a store by kind.
type Inventory struct {
	Sessions  int `json:"sessions"`
	Verifiers int `json:"verifiers"`
	Values    int `json:"values"`
	Other     int `json:"other"`
}

// Inventory scans the whole view, partitions included. Keys outside the
// table namespaces, such as the key-derivation salt, count as Other.
func (s *TableStore) Inventory(ctx context.Context) (Inventory, error) {
	var inv Inventory
	err := s.kv.Scan(ctx, s.scanPrefix(), func(key, _ []byte) bool {
		_, k := splitPartition(strings.TrimPrefix(string(key), s.namespace))
		switch {
		case strings.HasPrefix(k, prefixSession):
			inv.Sessions++
		case strings.HasPrefix(k, prefixVerifier):
			inv.Verifiers++
		case strings.HasPrefix(k, prefixValue):
			inv.Values++
		default:
			inv.Other++
		}
		return true
	})
	return inv, err
}

// StoredSession is a session secret as kept in the store.
type StoredSession struct {
	Session domain.SessionToken `json:"session"`

	// Partition names the pool partition holding the record, if any.
	Partition string `json:"partition,omitempty"`

	// Linked reports whether the verifier points back to the session.
	Linked bool `json:"linked"`
}

// Sessions lists the stored session secrets of the view, partitions
// included, in key order. At most limit are returned when limit is positive.
func (s *TableStore) Sessions(ctx context.Context, limit int) ([]StoredSession, error) {
	type entry struct {
		partition string
		session   domain.SessionToken
		verifier  domain.Hash
	}
	var entries []entry
	err := s.kv.Scan(ctx, s.scanPrefix(), func(key, value []byte) bool {
		partition, rest := splitPartition(strings.TrimPrefix(string(key), s.namespace))
		session, ok := strings.CutPrefix(rest, prefixSession)
		if !ok {
			return true
		}
		entries = append(entries, entry{
			partition: partition,
			session:   domain.SessionToken(session),
			verifier:  domain.Hash(value),
		})
		return limit <= 0 || len(entries) < limit
	})
	if err != nil {
		return nil, err
	}

	out := make([]StoredSession, 0, len(entries))
	for _, e := range entries {
		ns := s.namespace
		if e.partition != "" {
			ns += e.partition + "/"
		}
		back, err := s.kv.Get(ctx, append([]byte(ns), verifierKey(e.verifier)...))
		if err != nil && !errors.Is(err, ErrKeyNotFound) {
			return nil, err
		}
		out = append(out, StoredSession{
			Session:   e.session,
			Partition: e.partition,
			Linked:    err == nil && string(back) == string(e.session),
		})
	}
	return out, nil
}
