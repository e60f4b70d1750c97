// Package logging provides the process-wide structured logger, adapted from
// the teacher's slog wrapper: a package-level logger behind an atomic.Value
// so Configure can be called once at startup without a mutex on every log
// call.
package logging

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
)

// Options controls the process-wide logger.
type Options struct {
	Level string
	JSON  bool
}

var def atomic.Value

func init() {
	cfg := &slog.HandlerOptions{Level: slog.LevelInfo}
	h := slog.NewTextHandler(os.Stderr, cfg)
	def.Store(slog.New(h))
}

// Configure replaces the process-wide logger.
func Configure(opts Options) {
	lvl := parseLevel(opts.Level)
	cfg := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler
	if opts.JSON {
		h = slog.NewJSONHandler(os.Stderr, cfg)
	} else {
		h = slog.NewTextHandler(os.Stderr, cfg)
	}
	def.Store(slog.New(h))
}

func parseLevel(s string) slog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// L returns the current process-wide logger.
func L() *slog.Logger {
	l, _ := def.Load().(*slog.Logger)
	return l
}

// InitFromEnv configures the logger from FIREHOSE_LOG_LEVEL / FIREHOSE_LOG_JSON.
func InitFromEnv() {
	lvl := os.Getenv("FIREHOSE_LOG_LEVEL")
	jsonStr := os.Getenv("FIREHOSE_LOG_JSON")
	asJSON := false
	if b, err := strconv.ParseBool(strings.TrimSpace(jsonStr)); err == nil {
		asJSON = b
	}
	Configure(Options{Level: lvl, JSON: asJSON})
}
