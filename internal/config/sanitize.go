package config

import "strings"

// Sanitize returns a copy of the config with secrets masked, for logging.
func Sanitize(cfg *Config) *Config {
	sanitized := *cfg

	if sanitized.Security.Passphrase != "" {
		sanitized.Security.Passphrase = maskSecret(sanitized.Security.Passphrase)
	}
	if sanitized.Storage.Redis.Password != "" {
		sanitized.Storage.Redis.Password = maskSecret(sanitized.Storage.Redis.Password)
	}

	return &sanitized
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
