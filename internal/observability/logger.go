package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LoggingConfig selects level, encoding and destination for NewLogger.
type LoggingConfig struct {
	// Level is a zerolog level name. Unknown names fall back to info.
	Level string

	// Format is json, or console/pretty for human-readable output.
	Format string

	// Output is stdout or stderr.
	Output string

	// AddSource adds the caller's file and line.
	AddSource bool

	TimeFormat string
}

// DefaultLoggingConfig returns JSON info-level logging to stdout.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:      "info",
		Format:     "json",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// NewLogger builds the process logger and sets the global level to match.
func NewLogger(cfg LoggingConfig) zerolog.Logger {
	var out io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		out = os.Stderr
	}
	return newLogger(out, cfg)
}

func newLogger(out io.Writer, cfg LoggingConfig) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.TimeFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFormat
	}

	switch strings.ToLower(cfg.Format) {
	case "console", "pretty":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: zerolog.TimeFieldFormat}
	}

	lc := zerolog.New(out).With().Timestamp()
	if cfg.AddSource {
		lc = lc.Caller()
	}

	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)
	return lc.Logger().Level(level)
}

func parseLevel(level string) zerolog.Level {
	if strings.EqualFold(level, "warning") {
		return zerolog.WarnLevel
	}
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || parsed == zerolog.NoLevel || parsed == zerolog.Disabled {
		return zerolog.InfoLevel
	}
	return parsed
}

// WithTicketContext tags a logger with the ticket being handled.
func WithTicketContext(logger zerolog.Logger, ticketID string) zerolog.Logger {
	return logger.With().Str("ticket_id", ticketID).Logger()
}

// WithClassifierContext tags a logger with the LLM provider and model.
func WithClassifierContext(logger zerolog.Logger, provider, model string) zerolog.Logger {
	return logger.With().
		Str("provider", provider).
		Str("model", model).
		Logger()
}

// WithEventContext tags a logger with the message bus coordinates of one
// consumed or published event.
func WithEventContext(logger zerolog.Logger, topic, eventType string) zerolog.Logger {
	return logger.With().
		Str("topic", topic).
		Str("event_type", eventType).
		Logger()
}
