// Package logging builds the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/lmittmann/tint"
)

// Options selects the handler and level.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text (colored terminal) or json
	Output io.Writer
}

// ParseLevel maps a level name onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// New returns a logger writing to opt.Output (stderr by default).
func New(opt Options) (*slog.Logger, error) {
	lvl, err := ParseLevel(opt.Level)
	if err != nil {
		return nil, err
	}
	w := opt.Output
	if w == nil {
		w = os.Stderr
	}
	var h slog.Handler
	switch strings.ToLower(opt.Format) {
	case "json":
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	case "", "text":
		h = tint.NewHandler(w, &tint.Options{
			Level:      lvl,
			AddSource:  lvl <= slog.LevelDebug,
			NoColor:    runtime.GOOS == "windows" || !isTerminal(w),
			TimeFormat: "15:04:05.000",
		})
	default:
		return nil, fmt.Errorf("unknown log format %q (use text or json)", opt.Format)
	}
	return slog.New(h), nil
}

// isTerminal reports whether w is a character device.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
