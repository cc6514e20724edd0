package storage

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

// Key derivation errors.
var (
	ErrPassphraseTooWeak = errors.New("storage: passphrase too weak (minimum 8 characters)")
	ErrBadSalt           = errors.New("storage: stored salt has the wrong length")
)

const (
	// MinPassphraseLength is the minimum passphrase length.
	MinPassphraseLength = 8

	// SaltLength is the length of the per-store derivation salt.
	SaltLength = 16

	// KeyLength is the length of every derived key.
	KeyLength = 32

	saltKey = "meta/salt"
)

// KDFParams tunes the Argon2id passphrase stretch.
type KDFParams struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

// DefaultKDFParams returns the production Argon2id parameters.
func DefaultKDFParams() KDFParams {
	return KDFParams{Time: 3, Memory: 64 * 1024, Threads: 4}
}

// Keys holds the secrets a TableStore works with.
type Keys struct {
	// Verifier keys the owner verifier MAC.
	Verifier []byte

	// Value encrypts stored values at rest.
	Value []byte
}

// DeriveKeys stretches passphrase with Argon2id and expands the result with
// HKDF-SHA256 into independent verifier and value keys. The same passphrase
// and salt always give the same keys.
func DeriveKeys(passphrase, salt []byte, p KDFParams) (*Keys, error) {
	if len(passphrase) < MinPassphraseLength {
		return nil, ErrPassphraseTooWeak
	}
	if len(salt) != SaltLength {
		return nil, ErrBadSalt
	}

	master := argon2.IDKey(passphrase, salt, p.Time, p.Memory, p.Threads, KeyLength)
	defer zero(master)

	keys := &Keys{}
	var err error
	if keys.Verifier, err = expand(master, salt, "tokentables verifier"); err != nil {
		return nil, err
	}
	if keys.Value, err = expand(master, salt, "tokentables values"); err != nil {
		return nil, err
	}
	return keys, nil
}

// RandomKeys returns keys that live only as long as the process.
// Verifiers issued under them cannot be checked after a restart.
func RandomKeys() (*Keys, error) {
	keys := &Keys{Verifier: make([]byte, KeyLength), Value: make([]byte, KeyLength)}
	if _, err := io.ReadFull(rand.Reader, keys.Verifier); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(rand.Reader, keys.Value); err != nil {
		return nil, err
	}
	return keys, nil
}

// LoadOrCreateSalt returns the derivation salt kept in kv, creating and
// storing one on first use.
func LoadOrCreateSalt(ctx context.Context, kv KVEngine) ([]byte, error) {
	salt, err := kv.Get(ctx, []byte(saltKey))
	if err == nil {
		if len(salt) != SaltLength {
			return nil, ErrBadSalt
		}
		return salt, nil
	}
	if !errors.Is(err, ErrKeyNotFound) {
		return nil, fmt.Errorf("load salt: %w", err)
	}

	salt = make([]byte, SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	if err := kv.Set(ctx, []byte(saltKey), salt); err != nil {
		return nil, fmt.Errorf("store salt: %w", err)
	}
	return salt, nil
}

func expand(master, salt []byte, info string) ([]byte, error) {
	key := make([]byte, KeyLength)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, salt, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("hkdf: %w", err)
	}
	return key, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
