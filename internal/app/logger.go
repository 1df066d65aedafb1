package app

import (
	"io"
	"log/slog"
	"strings"
)

// NewLogger builds the process logger from the LOG_FORMAT and LOG_LEVEL
// settings. Unknown levels fall back to info.
func NewLogger(w io.Writer, format, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("service", "puyo-bridge")
}
