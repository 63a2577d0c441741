package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds a slog.Logger from c. Output goes to w unless c.File is
// set, in which case it goes to a rotating file. The returned close func
// releases the file and is safe to call when no file was opened.
func NewLogger(c LogConfig, w io.Writer) (*slog.Logger, func() error, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, nil, err
	}

	closer := func() error { return nil }
	if c.File != "" {
		lj := &lumberjack.Logger{
			Filename:   c.File,
			MaxSize:    max(c.Rotation.MaxSizeMB, 1),
			MaxBackups: c.Rotation.MaxBackups,
			MaxAge:     c.Rotation.MaxAgeDays,
			Compress:   c.Rotation.Compress,
		}
		w = lj
		closer = lj.Close
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if strings.ToLower(c.Format) == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h), closer, nil
}

func parseLevel(s string) (slog.Level, error) {
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
	return 0, fmt.Errorf("log level %q: must be debug, info, warn or error", s)
}
