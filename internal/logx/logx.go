package logx

import (
	"context"

	"pkt.systems/pslog"
	"pkt.systems/tilesync/schema"
)

type contextKey int

const (
	sessionKey contextKey = iota
)

// WithTile annotates the logger with a tile key.
func WithTile(log pslog.Logger, key schema.TileKey) pslog.Logger {
	return log.With("tile", key.String())
}

// WithPart annotates the logger with a document part.
func WithPart(log pslog.Logger, part int) pslog.Logger {
	return log.With("part", part)
}

// WithKind annotates the logger with an inbound message kind.
func WithKind(log pslog.Logger, kind string) pslog.Logger {
	if kind == "" {
		return log
	}
	return log.With("kind", kind)
}

// WithSession annotates the logger with the session id, once per context.
func WithSession(ctx context.Context, sessionID string) pslog.Logger {
	log := pslog.Ctx(ctx)
	if sessionID == "" {
		return log
	}
	if current, ok := ctx.Value(sessionKey).(string); ok && current == sessionID {
		return log
	}
	return log.With("session", sessionID)
}

// ContextWithSession attaches the logger and session marker to the context.
func ContextWithSession(ctx context.Context, log pslog.Logger, sessionID string) context.Context {
	if sessionID == "" {
		return pslog.ContextWithLogger(ctx, log)
	}
	ctx = pslog.ContextWithLogger(ctx, log.With("session", sessionID))
	return context.WithValue(ctx, sessionKey, sessionID)
}
