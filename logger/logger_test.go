//go:build unit
// +build unit

package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInitLogger_SetsAllLoggers(t *testing.T) {
	require.NoError(t, InitLogger())

	assert.NotNil(t, Info)
	assert.NotNil(t, Warn)
	assert.NotNil(t, Error)
	assert.NotNil(t, Debug)
	assert.NotNil(t, Zap())
}

func TestSetLogLevel(t *testing.T) {
	SetLogLevel("production")
	assert.Equal(t, zapcore.InfoLevel, level.Level())
	assert.False(t, Zap().Core().Enabled(zapcore.DebugLevel), "debug should be dropped in production")

	SetLogLevel("development")
	assert.Equal(t, zapcore.DebugLevel, level.Level())
	assert.True(t, Zap().Core().Enabled(zapcore.DebugLevel))
}
