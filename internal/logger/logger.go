// Package logger owns the process-wide structured logger: JSON records via
// log/slog with a level that can be changed while the process runs. Only the
// session layer and the demo binary log — the codec packages (amf0, chunk,
// message) stay silent, since logging belongs to the layer with an I/O loop
// around the codec, not to the codec itself.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// RTMP_LOG_LEVEL seeds the initial level. A binary's own flags win over the
// environment by calling SetLevel after parsing (see cmd/rtmpdump).
const envLogLevel = "RTMP_LOG_LEVEL"

var (
	mu     sync.Mutex
	level  slog.LevelVar // zero value is info
	global *slog.Logger
)

// Init builds the global logger on first use: JSON to stdout, at the level
// RTMP_LOG_LEVEL names or info. Later calls are no-ops.
func Init() {
	mu.Lock()
	defer mu.Unlock()
	initLocked()
}

func initLocked() {
	if global != nil {
		return
	}
	if lvl, err := levelFromName(os.Getenv(envLogLevel)); err == nil {
		level.Set(lvl)
	}
	global = jsonLogger(os.Stdout)
}

// jsonLogger builds a handler sharing the package LevelVar, so SetLevel
// reaches every logger ever built here, including test writers.
func jsonLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: &level}))
}

// SetLevel changes the runtime level by name: debug, info, warn, error.
func SetLevel(name string) error {
	lvl, err := levelFromName(name)
	if err != nil {
		return err
	}
	level.Set(lvl)
	return nil
}

// Level reports the current runtime level, e.g. "INFO".
func Level() string {
	return level.Level().String()
}

// levelFromName accepts the usual spellings, case-insensitively. The empty
// string means info, so an unset environment variable is not an error.
func levelFromName(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error", "err":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("logger: unknown level %q", name)
	}
}

// UseWriter redirects output, keeping the current level. Tests use this to
// capture records.
func UseWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	global = jsonLogger(w)
}

// Logger returns the global logger, initializing it if needed.
func Logger() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	initLocked()
	return global
}

// Package-level shorthands over the global logger.
func Debug(msg string, args ...any) { Logger().Debug(msg, args...) }
func Info(msg string, args ...any)  { Logger().Info(msg, args...) }
func Warn(msg string, args ...any)  { Logger().Warn(msg, args...) }
func Error(msg string, args ...any) { Logger().Error(msg, args...) }

// WithComponent tags records with the subsystem emitting them.
func WithComponent(l *slog.Logger, component string) *slog.Logger {
	return l.With("component", component)
}

// WithSession attaches a per-peer session identifier.
func WithSession(l *slog.Logger, sessionID string) *slog.Logger {
	return l.With("session_id", sessionID)
}

// WithMessageMeta attaches the framing fields of the message being handled:
// type id, message stream id, and the RTMP wire timestamp in milliseconds.
// The wire timestamp is reported as-is; nothing in this module reads a wall
// clock.
func WithMessageMeta(l *slog.Logger, typeID uint8, streamID uint32, ts uint32) *slog.Logger {
	return l.With("type_id", typeID, "msid", streamID, "timestamp", ts)
}
