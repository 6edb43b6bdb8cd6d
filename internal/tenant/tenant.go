// Package tenant carries the request tenant through context.Context.
package tenant

import (
	"context"
	"strings"
)

// DefaultID is used when a request carries no tenant.
const DefaultID = "default"

type ctxKey struct{}

// WithID returns a copy of ctx scoped to tenantID.
func WithID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, tenantID)
}

// FromContext returns the tenant stored in ctx, or DefaultID.
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return DefaultID
	}
	if id, ok := ctx.Value(ctxKey{}).(string); ok && strings.TrimSpace(id) != "" {
		return id
	}
	return DefaultID
}
