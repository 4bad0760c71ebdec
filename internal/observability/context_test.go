package observability

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestCorrelationID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, CorrelationIDFromContext(ctx))

	ctx = WithCorrelationID(ctx, "corr-1")
	assert.Equal(t, "corr-1", CorrelationIDFromContext(ctx))

	ctx = WithCorrelationID(ctx, "corr-2")
	assert.Equal(t, "corr-2", CorrelationIDFromContext(ctx))
}

func TestNewCorrelationID(t *testing.T) {
	a := NewCorrelationID()
	b := NewCorrelationID()

	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)
}

func TestLoggerFromContext(t *testing.T) {
	var fallbackBuf, scopedBuf bytes.Buffer
	fallback := zerolog.New(&fallbackBuf)

	t.Run("falls back when ctx has no logger", func(t *testing.T) {
		LoggerFromContext(context.Background(), fallback).Info().Msg("x")
		assert.NotZero(t, fallbackBuf.Len())
	})

	t.Run("returns the attached logger", func(t *testing.T) {
		fallbackBuf.Reset()
		ctx := WithLogger(context.Background(), zerolog.New(&scopedBuf).With().Str("scope", "req").Logger())

		LoggerFromContext(ctx, fallback).Info().Msg("y")

		assert.Zero(t, fallbackBuf.Len())
		assert.Contains(t, scopedBuf.String(), `"scope":"req"`)
	})
}
