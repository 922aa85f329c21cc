package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	require.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	require.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	require.Equal(t, zapcore.InfoLevel, parseLevel("info"))
	require.Equal(t, zapcore.InfoLevel, parseLevel("nonsense"))
}

func TestNewLogger_Console(t *testing.T) {
	log, err := NewLogger("debug", "console", "doctors-helper")
	require.NoError(t, err)
	require.NotNil(t, log)
	require.True(t, log.Core().Enabled(zapcore.DebugLevel))
}
