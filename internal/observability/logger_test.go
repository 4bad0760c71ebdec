package observability

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

// testLogger builds a logger and restores the global level afterwards.
func testLogger(t *testing.T, buf *bytes.Buffer, cfg LoggingConfig) zerolog.Logger {
	t.Helper()
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })
	return newLogger(buf, cfg)
}

func TestDefaultLoggingConfig(t *testing.T) {
	cfg := DefaultLoggingConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
	assert.False(t, cfg.AddSource)
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := testLogger(t, &buf, LoggingConfig{Level: "debug", Format: "json"})

	logger.Debug().Str("k", "v").Msg("hello")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "v", entry["k"])
	assert.Contains(t, entry, "time")
}

func TestNewLogger_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := testLogger(t, &buf, LoggingConfig{Level: "warn", Format: "json"})

	logger.Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	logger.Warn().Msg("kept")
	assert.NotZero(t, buf.Len())
}

func TestNewLogger_Console(t *testing.T) {
	var buf bytes.Buffer
	logger := testLogger(t, &buf, LoggingConfig{Level: "info", Format: "pretty"})

	logger.Info().Msg("readable")

	assert.Contains(t, buf.String(), "readable")
	assert.False(t, json.Valid(buf.Bytes()))
}

func TestNewLogger_AddSource(t *testing.T) {
	var buf bytes.Buffer
	logger := testLogger(t, &buf, LoggingConfig{Level: "info", Format: "json", AddSource: true})

	logger.Info().Msg("where")

	assert.Contains(t, decodeLine(t, &buf), "caller")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"", zerolog.InfoLevel},
		{"disabled", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.input))
		})
	}
}

func TestContextHelpers(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	logger := WithTicketContext(base, "4b1c")
	logger = WithClassifierContext(logger, "openai", "gpt-4o-mini")
	logger = WithEventContext(logger, "helpdesk.events", "ticket.created")
	logger.Info().Msg("tagged")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "4b1c", entry["ticket_id"])
	assert.Equal(t, "openai", entry["provider"])
	assert.Equal(t, "gpt-4o-mini", entry["model"])
	assert.Equal(t, "helpdesk.events", entry["topic"])
	assert.Equal(t, "ticket.created", entry["event_type"])
}
