package reqlog

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// HeaderRequestID carries the request ID on responses
const HeaderRequestID = "X-Request-Id"

type ctxKey struct{}

// NewRequestID returns a 32 character hex UUID without dashes
func NewRequestID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// WithRequestID stores id in ctx
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// RequestID returns the request ID stored in ctx, or ""
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKey{}).(string); ok {
		return id
	}
	return ""
}
