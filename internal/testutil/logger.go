package testutil

import (
	"io"
	"log/slog"
)

// NopLogger returns a logger that discards everything, keeping suite
// output free of log noise
func NopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}
