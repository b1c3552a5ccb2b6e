package pgenv

import (
	"log/slog"

	"github.com/giantswarm/pgenv/internal/core"
)

// SetLogger routes the library's structured logging to l. Passing nil
// restores the default logger (slog.Default at call time). Safe to call
// concurrently with running instances.
func SetLogger(l *slog.Logger) {
	core.SetLogger(l)
}
