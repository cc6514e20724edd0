// Package token provides token generation and hashing utilities.
package token

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// SaltLength is the number of random salt bytes in a keyed hash.
const SaltLength = 16

// ErrInvalidKey is returned when a MAC key is longer than BLAKE2b allows.
var ErrInvalidKey = errors.New("token: hash key longer than 64 bytes")

// KeyedHash derives a verifier for secret under key.
//
// Format: hex(salt) + "." + hex(BLAKE2b-256(key, salt || secret)).
// Two calls with the same inputs yield different verifiers; both verify.
func KeyedHash(key []byte, secret string) (string, error) {
	salt, err := GenerateBytes(SaltLength)
	if err != nil {
		return "", err
	}
	sum, err := mac(key, salt, secret)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(salt) + "." + hex.EncodeToString(sum), nil
}

// VerifyKeyedHash reports whether verifier was derived from secret under key.
//
// Uses constant-time comparison to prevent timing attacks.
func VerifyKeyedHash(key []byte, secret, verifier string) bool {
	saltHex, sumHex, ok := strings.Cut(verifier, ".")
	if !ok {
		return false
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil || len(salt) != SaltLength {
		return false
	}
	expected, err := hex.DecodeString(sumHex)
	if err != nil {
		return false
	}
	actual, err := mac(key, salt, secret)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(actual, expected) == 1
}

func mac(key, salt []byte, secret string) ([]byte, error) {
	h, err := blake2b.New256(key)
	if err != nil {
		return nil, ErrInvalidKey
	}
	h.Write(salt)
	h.Write([]byte(secret))
	return h.Sum(nil), nil
}
