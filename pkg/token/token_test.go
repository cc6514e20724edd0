package token

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

func TestHex128(t *testing.T) {
	tok := Hex128()

	if len(tok) != 2*RandomLength {
		t.Errorf("Hex128() length = %d, want %d", len(tok), 2*RandomLength)
	}

	if _, err := hex.DecodeString(tok); err != nil {
		t.Errorf("Hex128() returned invalid hex: %v", err)
	}

	if strings.ToLower(tok) != tok {
		t.Error("Hex128() should return lowercase hex")
	}
}

func TestGenerators_Uniqueness(t *testing.T) {
	tests := []struct {
		name string
		gen  func() string
	}{
		{"hex128", Hex128},
		{"uuid", UUID},
		{"ulid", ULID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen := make(map[string]bool)
			for i := 0; i < 1000; i++ {
				v := tt.gen()
				if seen[v] {
					t.Fatalf("%s produced duplicate value: %s", tt.name, v)
				}
				seen[v] = true
			}
		})
	}
}

func TestUUID_Format(t *testing.T) {
	id, err := uuid.Parse(UUID())
	if err != nil {
		t.Fatalf("UUID() not parseable: %v", err)
	}
	if id.Version() != 4 {
		t.Errorf("UUID() version = %d, want 4", id.Version())
	}
}

func TestULID_Format(t *testing.T) {
	v := ULID()
	if strings.ToLower(v) != v {
		t.Error("ULID() should be lowercase")
	}
	if _, err := ulid.ParseStrict(strings.ToUpper(v)); err != nil {
		t.Errorf("ULID() not parseable: %v", err)
	}
}

func TestGenerateBytes(t *testing.T) {
	tests := []struct {
		name   string
		length int
	}{
		{"16 bytes", 16},
		{"32 bytes", 32},
		{"64 bytes", 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bytes, err := GenerateBytes(tt.length)
			if err != nil {
				t.Fatalf("GenerateBytes(%d) error = %v", tt.length, err)
			}

			if len(bytes) != tt.length {
				t.Errorf("GenerateBytes(%d) length = %d", tt.length, len(bytes))
			}
		})
	}
}

func TestKeyedHash(t *testing.T) {
	key := []byte("verifier-key")

	h1, err := KeyedHash(key, "ownerA")
	if err != nil {
		t.Fatalf("KeyedHash() error = %v", err)
	}
	h2, err := KeyedHash(key, "ownerA")
	if err != nil {
		t.Fatalf("KeyedHash() error = %v", err)
	}

	// Salted: same input, different verifiers
	if h1 == h2 {
		t.Error("KeyedHash() should be salted")
	}

	if !VerifyKeyedHash(key, "ownerA", h1) || !VerifyKeyedHash(key, "ownerA", h2) {
		t.Error("VerifyKeyedHash() returned false for correct secret")
	}
}

func TestVerifyKeyedHash_Rejects(t *testing.T) {
	key := []byte("verifier-key")
	h, err := KeyedHash(key, "ownerA")
	if err != nil {
		t.Fatalf("KeyedHash() error = %v", err)
	}

	tests := []struct {
		name     string
		key      []byte
		secret   string
		verifier string
	}{
		{"wrong secret", key, "ownerB", h},
		{"wrong key", []byte("other-key"), "ownerA", h},
		{"no separator", key, "ownerA", strings.Replace(h, ".", "", 1)},
		{"bad salt", key, "ownerA", "zz" + h[2:]},
		{"short salt", key, "ownerA", h[2:]},
		{"empty", key, "ownerA", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if VerifyKeyedHash(tt.key, tt.secret, tt.verifier) {
				t.Error("VerifyKeyedHash() returned true")
			}
		})
	}
}

func TestKeyedHash_KeyTooLong(t *testing.T) {
	if _, err := KeyedHash(make([]byte, 65), "ownerA"); err != ErrInvalidKey {
		t.Errorf("KeyedHash() error = %v, want ErrInvalidKey", err)
	}
}

func TestKeyedHash_EmptyKey(t *testing.T) {
	h, err := KeyedHash(nil, "ownerA")
	if err != nil {
		t.Fatalf("KeyedHash() error = %v", err)
	}
	if !VerifyKeyedHash(nil, "ownerA", h) {
		t.Error("VerifyKeyedHash() with empty key returned false")
	}
}

func BenchmarkHex128(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Hex128()
	}
}

func BenchmarkKeyedHash(b *testing.B) {
	key := []byte("benchmark-key")
	for i := 0; i < b.N; i++ {
		KeyedHash(key, "benchmark-owner")
	}
}
