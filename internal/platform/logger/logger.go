package logger

import (
	"log/slog"
	"os"
)

// New returns the process logger: JSON to stdout, info level. Handlers and
// services receive it explicitly; nothing logs through a package global.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
