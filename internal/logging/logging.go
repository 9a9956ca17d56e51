// Package logging wires the process-wide zerolog logger the way the rest
// of the codebase expects to find it: one configured logger, console or
// JSON depending on environment, structured fields instead of formatted
// strings.
package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New builds a logger at the given level ("debug", "info", "warn", "error").
// Unknown or empty levels default to info. Console-pretty output is used
// unless GRIDSIM_LOG_JSON is set, matching how local runs want readable
// lines but deployed runs want structured JSON.
func New(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if os.Getenv("GRIDSIM_LOG_JSON") != "" {
		return zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	w := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	return zerolog.New(w).With().Timestamp().Logger()
}
