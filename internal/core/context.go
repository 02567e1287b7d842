package core

import (
	"context"

	"github.com/JonMunkholm/healthdash/internal/logging"
)

type contextKey string

const ctxKeySessionID contextKey = "session_id"

// ContextWithSessionID adds the browser session id to ctx. Loggers derived
// from the returned context include it.
func ContextWithSessionID(ctx context.Context, id string) context.Context {
	ctx = logging.ContextWithAttrs(ctx, "session_id", id)
	return context.WithValue(ctx, ctxKeySessionID, id)
}

// SessionIDFromContext extracts the session id from ctx.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeySessionID).(string); ok {
		return v
	}
	return ""
}
