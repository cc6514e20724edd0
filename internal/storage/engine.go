package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/yndnr/tokentables/internal/telemetry/logger"
	"github.com/yndnr/tokentables/pkg/crypto/adaptive"
)

// Open creates the engine named by cfg.Engine.
func Open(cfg Config, l logger.Logger) (KVEngine, error) {
	switch strings.ToLower(cfg.Engine) {
	case "", EngineMemory:
		return NewMemoryEngine(), nil
	case EngineBadger:
		return NewBadgerEngine(cfg, l)
	case EngineRedis:
		return NewRedisEngine(cfg.Redis)
	default:
		return nil, fmt.Errorf("storage: unknown engine %q", cfg.Engine)
	}
}

// Security configures the secrets of a TableStore.
type Security struct {
	// Passphrase derives the verifier and value keys together with a salt
	// kept in the store. Empty means random per-process keys.
	Passphrase []byte

	// EncryptValues seals stored values with the derived value key.
	EncryptValues bool

	// Cipher selects "aes-gcm" or "chacha20-poly1305". Empty picks by
	// hardware support.
	Cipher string

	// KDF tunes passphrase stretching.
	KDF KDFParams
}

// OpenTableStore derives the store's keys and builds it over kv.
func OpenTableStore(ctx context.Context, kv KVEngine, sec Security, l logger.Logger) (*TableStore, error) {
	if l == nil {
		l = logger.Default()
	}

	var keys *Keys
	if len(sec.Passphrase) == 0 {
		l.Warn("no storage passphrase configured, verifiers will not survive a restart")
		k, err := RandomKeys()
		if err != nil {
			return nil, fmt.Errorf("random keys: %w", err)
		}
		keys = k
	} else {
		salt, err := LoadOrCreateSalt(ctx, kv)
		if err != nil {
			return nil, err
		}
		kdf := sec.KDF
		if kdf.Time == 0 || kdf.Memory == 0 || kdf.Threads == 0 {
			kdf = DefaultKDFParams()
		}
		k, err := DeriveKeys(sec.Passphrase, salt, kdf)
		if err != nil {
			return nil, err
		}
		keys = k
	}

	var opts []StoreOption
	if sec.EncryptValues {
		typ, err := adaptive.ParseType(sec.Cipher)
		if err != nil {
			return nil, err
		}
		c, err := adaptive.NewWithType(keys.Value, typ)
		if err != nil {
			return nil, fmt.Errorf("value cipher: %w", err)
		}
		opts = append(opts, WithValueCipher(c))
		l.Info("value encryption enabled", "cipher", c.Type())
	}

	return NewTableStore(kv, keys.Verifier, opts...)
}
