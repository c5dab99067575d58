// Package logutil carries a zerolog logger through context. Request handlers
// log through it so the raw credential payload never leaks into log fields.
package logutil

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type key byte

var loggerKey = key(1)

// WithLogger stores the logger in the context.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// GetOrDefault returns the context's logger, or the global default.
func GetOrDefault(ctx context.Context) zerolog.Logger {
	v := ctx.Value(loggerKey)
	if v == nil {
		return log.Logger
	}
	return v.(zerolog.Logger)
}
