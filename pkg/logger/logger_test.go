package logger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestNopBeforeInit(t *testing.T) {
	assert.NotPanics(t, func() { Log.Info("not initialised") })
}

func TestSetLevel(t *testing.T) {
	InitLogger(Options{Level: "warn", File: filepath.Join(t.TempDir(), "app.log")})
	assert.Equal(t, zapcore.WarnLevel, Level())

	assert.True(t, SetLevel("debug"))
	assert.Equal(t, zapcore.DebugLevel, Level())

	assert.False(t, SetLevel("loud"))
	assert.Equal(t, zapcore.DebugLevel, Level())
}
