package adaptive

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/chacha20poly1305"
)

// CipherType identifies the AEAD algorithm.
type CipherType string

const (
	CipherAESGCM   CipherType = "aes-gcm"
	CipherChaCha20 CipherType = "chacha20-poly1305"
)

// KeySize is the key length accepted by every cipher type.
const KeySize = 32

var (
	ErrKeySize       = errors.New("adaptive: key must be 32 bytes")
	ErrUnknownCipher = errors.New("adaptive: unknown cipher type")
	ErrShortMessage  = errors.New("adaptive: sealed value too short")
)

// Cipher provides authenticated encryption of stored values.
type Cipher interface {
	Type() CipherType
	Encrypt(plaintext, additionalData []byte) ([]byte, error)
	Decrypt(sealed, additionalData []byte) ([]byte, error)
	// Overhead is the number of bytes Encrypt adds to a plaintext.
	Overhead() int
}

// ParseType resolves a configured cipher name. The empty name resolves to
// the platform default.
func ParseType(name string) (CipherType, error) {
	switch CipherType(name) {
	case "":
		return Preferred(), nil
	case CipherAESGCM, CipherChaCha20:
		return CipherType(name), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCipher, name)
	}
}

// Preferred returns the cipher type suited to this platform.
func Preferred() CipherType {
	switch runtime.GOARCH {
	case "amd64", "arm64", "s390x", "ppc64le":
		return CipherAESGCM
	default:
		return CipherChaCha20
	}
}

// New creates a cipher of the preferred type.
func New(key []byte) (Cipher, error) {
	return NewWithType(key, Preferred())
}

// NewWithType creates a cipher of the given type.
func NewWithType(key []byte, typ CipherType) (Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}

	var (
		a   cipher.AEAD
		err error
	)
	switch typ {
	case CipherAESGCM:
		var block cipher.Block
		if block, err = aes.NewCipher(key); err == nil {
			a, err = cipher.NewGCM(block)
		}
	case CipherChaCha20:
		a, err = chacha20poly1305.New(key)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCipher, typ)
	}
	if err != nil {
		return nil, err
	}
	return &sealer{typ: typ, aead: a}, nil
}

type sealer struct {
	typ  CipherType
	aead cipher.AEAD
}

func (s *sealer) Type() CipherType { return s.typ }

func (s *sealer) Overhead() int { return s.aead.NonceSize() + s.aead.Overhead() }

func (s *sealer) Encrypt(plaintext, additionalData []byte) ([]byte, error) {
	ns := s.aead.NonceSize()
	out := make([]byte, ns, ns+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(out); err != nil {
		return nil, err
	}
	return s.aead.Seal(out, out, plaintext, additionalData), nil
}

func (s *sealer) Decrypt(sealed, additionalData []byte) ([]byte, error) {
	ns := s.aead.NonceSize()
	if len(sealed) < ns+s.aead.Overhead() {
		return nil, ErrShortMessage
	}
	return s.aead.Open(nil, sealed[:ns], sealed[ns:], additionalData)
}
