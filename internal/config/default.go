package config

import (
	"time"

	"github.com/yndnr/tokentables/internal/core/domain"
)

// Default configuration values.
const (
	DefaultGenerator        = "hex"
	DefaultPartitions       = 1
	DefaultStorageEngine    = "memory"
	DefaultDataDir          = "/var/lib/tokentables"
	DefaultRedisAddr        = "127.0.0.1:6379"
	DefaultRedisKeyPrefix   = "tokentables:"
	DefaultMetricsPath      = "/metrics"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	DefaultShutdownTimeout  = 10 * time.Second
	DefaultBadgerGCInterval = 10 * time.Minute
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Tables: TablesSection{
			SessionTimeout:   domain.DefaultSessionTimeout,
			TokenTimeout:     domain.DefaultTokenTimeout,
			ChopInterval:     domain.DefaultChopInterval,
			Generator:        DefaultGenerator,
			Partitions:       DefaultPartitions,
			StorageWarnRate:  1,
			StorageWarnBurst: 5,
		},
		Storage: StorageSection{
			Engine: DefaultStorageEngine,
			Dir:    DefaultDataDir,
			Badger: BadgerSection{
				GCInterval:         DefaultBadgerGCInterval,
				GCThreshold:        0.5,
				CacheSizeMB:        64,
				ValueLogFileSizeMB: 256,
				NumMemtables:       2,
			},
			Redis: RedisSection{
				Addr:      DefaultRedisAddr,
				KeyPrefix: DefaultRedisKeyPrefix,
			},
		},
		Metrics: MetricsSection{
			Path: DefaultMetricsPath,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}
