package logger

import (
	"log/slog"
	"reflect"
	"strings"
)

// Redacted replaces the value of secret-bearing attributes.
const Redacted = "[REDACTED]"

// secretKeys are substrings of attribute keys whose values are replaced.
var secretKeys = []string{
	"password",
	"passphrase",
	"secret",
	"credential",
	"verifier",
	"hash",
}

// IsSecretKey reports whether values logged under key are replaced.
func IsSecretKey(key string) bool {
	k := strings.ToLower(key)
	for _, s := range secretKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

// IsSessionKey reports whether values logged under key are session tokens.
func IsSessionKey(key string) bool {
	k := strings.ToLower(key)
	return k == "session" || strings.HasSuffix(k, "_session") || strings.HasPrefix(k, "session_token")
}

// MaskToken keeps the first and last four characters of a token.
func MaskToken(token string) string {
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	return redact(a)
}

func redact(a slog.Attr) slog.Attr {
	var s string
	switch a.Value.Kind() {
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redact(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	case slog.KindString:
		s = a.Value.String()
	case slog.KindAny:
		// Named string types such as domain.SessionToken arrive as KindAny.
		v := reflect.ValueOf(a.Value.Any())
		if !v.IsValid() || v.Kind() != reflect.String {
			return a
		}
		s = v.String()
	default:
		return a
	}

	switch {
	case s == "":
		return a
	case IsSecretKey(a.Key):
		return slog.String(a.Key, Redacted)
	case IsSessionKey(a.Key):
		return slog.String(a.Key, MaskToken(s))
	}
	return a
}
