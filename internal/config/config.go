package config

import "time"

// Config is the root configuration of a tokentables process.
type Config struct {
	Tables   TablesSection   `koanf:"tables"`
	Storage  StorageSection  `koanf:"storage"`
	Security SecuritySection `koanf:"security"`
	Metrics  MetricsSection  `koanf:"metrics"`
	Log      LogSection      `koanf:"log"`

	// ShutdownTimeout bounds the cleanup run on exit.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// TablesSection configures the token tables.
type TablesSection struct {
	// SessionTimeout is the allotted lifetime of new sessions.
	// Reloadable.
	SessionTimeout time.Duration `koanf:"session_timeout"`

	// TokenTimeout is the allotted lifetime of new tokens; 0 never expires.
	// Reloadable.
	TokenTimeout time.Duration `koanf:"token_timeout"`

	// ChopInterval is the sweep cadence and the time removed per sweep.
	ChopInterval time.Duration `koanf:"chop_interval"`

	// Generator names the random part of new tokens: hex, uuid or ulid.
	Generator string `koanf:"generator"`

	// Partitions is the number of independent table partitions.
	Partitions int `koanf:"partitions"`

	StorageWarnRate  float64 `koanf:"storage_warn_rate"`
	StorageWarnBurst int     `koanf:"storage_warn_burst"`
}

// StorageSection configures the persistence engine.
type StorageSection struct {
	// Engine is memory, badger or redis.
	Engine string        `koanf:"engine"`
	Dir    string        `koanf:"dir"`
	Badger BadgerSection `koanf:"badger"`
	Redis  RedisSection  `koanf:"redis"`
}

// BadgerSection tunes the badger engine.
type BadgerSection struct {
	GCInterval         time.Duration `koanf:"gc_interval"`
	GCThreshold        float64       `koanf:"gc_threshold"`
	CacheSizeMB        int64         `koanf:"cache_size_mb"`
	ValueLogFileSizeMB int64         `koanf:"value_log_file_size_mb"`
	NumMemtables       int           `koanf:"num_memtables"`
	SyncWrites         bool          `koanf:"sync_writes"`
}

// RedisSection configures the redis engine.
type RedisSection struct {
	Addr      string `koanf:"addr"`
	Password  string `koanf:"password"`
	DB        int    `koanf:"db"`
	KeyPrefix string `koanf:"key_prefix"`
}

// SecuritySection configures verifier and value keys.
type SecuritySection struct {
	// Passphrase derives persistent keys. Empty means random keys per
	// process, so stored verifiers do not survive a restart.
	Passphrase string `koanf:"passphrase"`

	// EncryptValues seals stored token values.
	EncryptValues bool `koanf:"encrypt_values"`

	// Cipher is aes-gcm or chacha20-poly1305; empty picks by hardware.
	Cipher string `koanf:"cipher"`
}

// MetricsSection configures the Prometheus endpoint.
type MetricsSection struct {
	// Addr is the listen address; empty disables the endpoint.
	Addr string `koanf:"addr"`
	Path string `koanf:"path"`
}

// LogSection configures logging. Level is reloadable.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
