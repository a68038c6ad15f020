package http

import (
	"context"
	"log/slog"

	"github.com/example/meeting-scheduler/internal/identity"
	"github.com/example/meeting-scheduler/internal/logging"
)

// ContextWithLogger returns a derived context carrying the request logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext extracts the request logger, if any.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

// IdentityFromContext extracts the authenticated identity.
func IdentityFromContext(ctx context.Context) (identity.Identity, bool) {
	return identity.FromContext(ctx)
}
