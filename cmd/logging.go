package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// parseLevel maps the --log-level flag, falling back to info
func parseLevel(name string) zerolog.Level {
	switch name {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	}
	return zerolog.InfoLevel
}

// setupLogger creates a logger writing to logFile, or to stderr in console
// form when logFile is empty.
func setupLogger(logFile, logLevel string) zerolog.Logger {
	var output io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		} else {
			output = f
		}
	}

	return zerolog.New(output).
		Level(parseLevel(logLevel)).
		With().
		Timestamp().
		Logger()
}

// setupTUILogger is setupLogger for the full-screen UI, which owns the
// terminal: without a log file nothing is written.
func setupTUILogger(logFile, logLevel string) zerolog.Logger {
	if logFile == "" {
		return zerolog.Nop()
	}
	return setupLogger(logFile, logLevel)
}
