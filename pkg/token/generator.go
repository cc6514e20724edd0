// Package token provides token generation and hashing utilities.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// RandomLength is the number of random bytes behind a Hex128 token.
const RandomLength = 16

// Hex128 returns 128 random bits rendered as 32 lowercase hex characters.
//
// crypto/rand.Read does not fail on supported platforms; a failure here
// would make every token predictable, so it panics.
func Hex128() string {
	b, err := GenerateBytes(RandomLength)
	if err != nil {
		panic("token: crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(b)
}

// UUID returns a random (version 4) UUID string.
func UUID() string {
	return uuid.NewString()
}

// ULID returns a lowercase ULID using monotonic crypto/rand entropy.
func ULID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		panic("token: ulid entropy unavailable: " + err.Error())
	}
	return strings.ToLower(id.String())
}

// GenerateBytes generates random bytes.
func GenerateBytes(length int) ([]byte, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return nil, err
	}
	return bytes, nil
}
