package config

import (
	"fmt"

	"github.com/yndnr/tokentables/internal/core/service"
	"github.com/yndnr/tokentables/internal/infra/confloader"
	"github.com/yndnr/tokentables/internal/storage"
	"github.com/yndnr/tokentables/internal/telemetry/logger"
)

// Load reads the defaults overlaid with the loader's sources and verifies
// the result.
func Load(l *confloader.Loader) (*Config, error) {
	cfg := Default()
	if err := l.Load(cfg); err != nil {
		return nil, err
	}
	if err := Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Reload re-reads every source after a file change.
func Reload(l *confloader.Loader) (*Config, error) {
	cfg := Default()
	if err := l.Reload(cfg); err != nil {
		return nil, err
	}
	if err := Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Service returns the table configuration.
func (c *Config) Service() *service.Config {
	return &service.Config{
		SessionTimeout:   c.Tables.SessionTimeout,
		TokenTimeout:     c.Tables.TokenTimeout,
		ChopInterval:     c.Tables.ChopInterval,
		StorageWarnRate:  c.Tables.StorageWarnRate,
		StorageWarnBurst: c.Tables.StorageWarnBurst,
	}
}

// StorageEngine returns the KV engine configuration.
func (c *Config) StorageEngine() storage.Config {
	const mb = 1 << 20
	b := c.Storage.Badger
	return storage.Config{
		Engine: c.Storage.Engine,
		Dir:    c.Storage.Dir,
		Badger: storage.BadgerConfig{
			GCInterval:       b.GCInterval.String(),
			GCThreshold:      b.GCThreshold,
			CacheSize:        b.CacheSizeMB * mb,
			ValueLogFileSize: b.ValueLogFileSizeMB * mb,
			NumMemtables:     b.NumMemtables,
			SyncWrites:       b.SyncWrites,
		},
		Redis: storage.RedisConfig{
			Addr:      c.Storage.Redis.Addr,
			Password:  c.Storage.Redis.Password,
			DB:        c.Storage.Redis.DB,
			KeyPrefix: c.Storage.Redis.KeyPrefix,
		},
	}
}

// StorageSecurity returns the TableStore key configuration.
func (c *Config) StorageSecurity() storage.Security {
	return storage.Security{
		Passphrase:    []byte(c.Security.Passphrase),
		EncryptValues: c.Security.EncryptValues,
		Cipher:        c.Security.Cipher,
	}
}

// Logger returns the logger configuration.
func (c *Config) Logger() logger.Config {
	lc := logger.DefaultConfig()
	lc.Level = c.Log.Level
	lc.Format = c.Log.Format
	return lc
}
