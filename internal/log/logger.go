// Package log wraps slog with a component-scoped logger, handler selection
// for servers and interactive commands, and HTTP request logging helpers.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the slog handler New builds.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatTerminal Format = "terminal"
)

// Logger is an slog.Logger bound to one component. The component attribute
// is attached once; WithComponent replaces it rather than adding a second.
type Logger struct {
	*slog.Logger
	// base carries every attribute except the component.
	base      *slog.Logger
	component string
}

// Config holds logger configuration. A non-nil Handler wins over Format.
type Config struct {
	Level     slog.Level
	Format    Format
	Component string
	Output    io.Writer
	Handler   slog.Handler
}

// DefaultConfig logs text to stdout at info level. LOG_LEVEL and LOG_FORMAT
// override the level and the format.
func DefaultConfig() Config {
	return Config{
		Level:     ParseLevel(os.Getenv("LOG_LEVEL")),
		Format:    ParseFormat(os.Getenv("LOG_FORMAT")),
		Component: ComponentApp,
		Output:    os.Stdout,
	}
}

// ParseLevel maps debug, info, warn or error to a level, defaulting to info.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// ParseFormat maps a LOG_FORMAT value to a Format, defaulting to text.
func ParseFormat(s string) Format {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatTerminal:
		return f
	default:
		return FormatText
	}
}

func (c Config) handler() slog.Handler {
	if c.Handler != nil {
		return c.Handler
	}
	out := c.Output
	if out == nil {
		out = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: c.Level}
	switch c.Format {
	case FormatJSON:
		return slog.NewJSONHandler(out, opts)
	case FormatTerminal:
		return NewTerminalHandler(out, c.Level)
	default:
		return slog.NewTextHandler(out, opts)
	}
}

func New(config Config) *Logger {
	return bind(slog.New(config.handler()), config.Component)
}

func bind(base *slog.Logger, component string) *Logger {
	l := &Logger{base: base, component: component, Logger: base}
	if component != "" {
		l.Logger = base.With(FieldComponent, component)
	}
	return l
}

// With returns a logger carrying args in addition to the current attributes.
func (l *Logger) With(args ...any) *Logger {
	return bind(l.base.With(args...), l.component)
}

// WithComponent returns a logger for another component with the same
// attributes.
func (l *Logger) WithComponent(component string) *Logger {
	return bind(l.base, component)
}

func (l *Logger) Component() string {
	return l.component
}

// SetDefault makes logger the slog default, so package-level slog calls
// share its handler.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}
