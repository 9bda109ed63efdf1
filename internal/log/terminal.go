package log

import (
	"io"
	"log/slog"

	charmlog "github.com/charmbracelet/log"
)

// TerminalConfig returns a Config whose handler renders colored, human-readable
// lines for interactive commands.
func TerminalConfig(w io.Writer, component string, verbose bool) Config {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return Config{
		Level:     level,
		Format:    FormatTerminal,
		Component: component,
		Output:    w,
	}
}

// NewTerminalHandler returns a charmbracelet/log logger as an slog.Handler.
func NewTerminalHandler(w io.Writer, level slog.Level) slog.Handler {
	return charmlog.NewWithOptions(w, charmlog.Options{
		Prefix:          "finboard",
		ReportTimestamp: level <= slog.LevelDebug,
		Level:           charmLevel(level),
	})
}

func charmLevel(l slog.Level) charmlog.Level {
	switch {
	case l <= slog.LevelDebug:
		return charmlog.DebugLevel
	case l <= slog.LevelInfo:
		return charmlog.InfoLevel
	case l <= slog.LevelWarn:
		return charmlog.WarnLevel
	default:
		return charmlog.ErrorLevel
	}
}
