package logger

import "context"

type contextKey int

const (
	loggerKey contextKey = iota
	tenantKey
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the context's logger, or the default logger.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return Default()
}

// HasLogger reports whether the context carries a logger.
func HasLogger(ctx context.Context) bool {
	_, ok := ctx.Value(loggerKey).(Logger)
	return ok
}

// WithTenant records the tenant a pool partition was selected for.
func WithTenant(ctx context.Context, tenant string) context.Context {
	return context.WithValue(ctx, tenantKey, tenant)
}

// TenantFromContext returns the recorded tenant, or "".
func TenantFromContext(ctx context.Context) string {
	t, _ := ctx.Value(tenantKey).(string)
	return t
}

// Enrich adds the tenant found in ctx to l.
func Enrich(ctx context.Context, l Logger) Logger {
	if tenant := TenantFromContext(ctx); tenant != "" {
		return l.With("tenant", tenant)
	}
	return l
}

// L returns the context's logger enriched with its tenant.
func L(ctx context.Context) Logger {
	return Enrich(ctx, FromContext(ctx))
}
