package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	l, err := New(Config{})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zap.InfoLevel))
	assert.False(t, l.Core().Enabled(zap.DebugLevel))
}

func TestWithContext(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	base := zap.New(core)

	ctx := ContextWithExportID(context.Background(), "exp-1")
	ctx = ContextWithBackend(ctx, "sqlite")
	WithContext(ctx, base).Info("exporting")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "exp-1", fields["export_id"])
	assert.Equal(t, "sqlite", fields["backend"])
	assert.NotContains(t, fields, "request_id")
}

func TestInit_Replaces(t *testing.T) {
	require.NoError(t, Init(Config{Level: "debug", Encoding: "console"}))
	assert.True(t, Get().Core().Enabled(zap.DebugLevel))

	require.NoError(t, Init(Config{Level: "warn"}))
	assert.False(t, Get().Core().Enabled(zap.InfoLevel))
}
