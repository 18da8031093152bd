package logging

import (
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// New creates a console slog.Logger with the provided level string. When a
// log file path is given, records additionally fan out to it as JSON.
func New(level, file string) *slog.Logger {
	lvl := levelFromString(level)
	console := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})

	if file == "" {
		return slog.New(console)
	}

	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger := slog.New(console)
		logger.Warn("cannot open log file, console only", "file", file, "error", err)
		return logger
	}

	jsonFile := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: lvl})
	return slog.New(slogmulti.Fanout(console, jsonFile))
}

func levelFromString(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "info":
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
