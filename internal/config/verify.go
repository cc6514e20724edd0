package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"slices"
	"strings"

	"github.com/yndnr/tokentables/internal/telemetry/logger"
	"github.com/yndnr/tokentables/pkg/crypto/adaptive"
)

// Verify validates the configuration. The badger directory is created
// when missing.
func Verify(cfg *Config) error {
	if err := verifyTables(&cfg.Tables); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := verifySecurity(&cfg.Security); err != nil {
		return err
	}
	if err := verifyMetrics(&cfg.Metrics); err != nil {
		return err
	}
	if err := verifyLog(&cfg.Log); err != nil {
		return err
	}
	if cfg.ShutdownTimeout <= 0 {
		return errors.New("shutdown_timeout must be positive")
	}
	return nil
}

func verifyTables(cfg *TablesSection) error {
	if cfg.SessionTimeout < 0 {
		return errors.New("tables.session_timeout must not be negative")
	}
	if cfg.TokenTimeout < 0 {
		return errors.New("tables.token_timeout must not be negative")
	}
	if cfg.ChopInterval <= 0 {
		return errors.New("tables.chop_interval must be positive")
	}
	if cfg.Partitions < 1 {
		return errors.New("tables.partitions must be at least 1")
	}
	if !oneOf(cfg.Generator, "", "hex", "uuid", "ulid") {
		return fmt.Errorf("tables.generator %q is not one of hex, uuid, ulid", cfg.Generator)
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	switch strings.ToLower(cfg.Engine) {
	case "", "memory":
		return nil
	case "badger":
		if cfg.Dir == "" {
			return errors.New("storage.dir is required for the badger engine")
		}
		if err := os.MkdirAll(cfg.Dir, 0750); err != nil {
			return fmt.Errorf("cannot create storage directory: %w", err)
		}
		if t := cfg.Badger.GCThreshold; t <= 0 || t >= 1 {
			return errors.New("storage.badger.gc_threshold must be between 0 and 1")
		}
		return nil
	case "redis":
		if cfg.Redis.Addr == "" {
			return errors.New("storage.redis.addr is required for the redis engine")
		}
		if cfg.Redis.DB < 0 {
			return errors.New("storage.redis.db must not be negative")
		}
		return nil
	default:
		return fmt.Errorf("storage.engine %q is not one of memory, badger, redis", cfg.Engine)
	}
}

func verifySecurity(cfg *SecuritySection) error {
	if _, err := adaptive.ParseType(cfg.Cipher); err != nil {
		return fmt.Errorf("security.cipher: %w", err)
	}
	return nil
}

func verifyMetrics(cfg *MetricsSection) error {
	if cfg.Addr == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(cfg.Addr); err != nil {
		return fmt.Errorf("metrics.addr: %w", err)
	}
	if !strings.HasPrefix(cfg.Path, "/") {
		return errors.New("metrics.path must start with /")
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if _, err := logger.ParseLevel(cfg.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if !oneOf(cfg.Format, "json", "text") {
		return fmt.Errorf("log.format %q is not one of json, text", cfg.Format)
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	return slices.Contains(allowed, strings.ToLower(v))
}
