package phase

import (
	"context"

	"github.com/google/uuid"
)

type runIDKey struct{}

// ContextWithRunID scopes phase runs on ctx to an enclosing run, so their
// artifacts and summaries share its identifier.
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext returns the enclosing run identifier, or a fresh one.
func RunIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}
