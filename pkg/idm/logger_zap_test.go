package idm

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger_ForwardsLevelsAndFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	l := NewZapLogger(zap.New(core))

	l.Debug("HTTP Request", map[string]interface{}{"method": "GET", "url": "/x"})
	l.Info("token refreshed", nil)
	l.Warn("slow", map[string]interface{}{"ms": 1200})
	l.Error("failed", map[string]interface{}{"status": 500})

	entries := logs.AllUntimed()
	require.Len(t, entries, 4)

	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "HTTP Request", entries[0].Message)
	assert.Equal(t, map[string]interface{}{"method": "GET", "url": "/x"}, entries[0].ContextMap())

	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Empty(t, entries[1].Context)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
}

func TestZapLogger_NilIsNop(t *testing.T) {
	t.Parallel()

	l := NewZapLogger(nil)
	assert.NotPanics(t, func() { l.Info("ignored", map[string]interface{}{"k": "v"}) })
	assert.NotNil(t, l.Zap())
}

func TestNewZapLoggerFromConfig(t *testing.T) {
	t.Parallel()

	for _, env := range []string{"dev", "prod"} {
		l, err := NewZapLoggerFromConfig(env, "warn")
		require.NoError(t, err)
		assert.False(t, l.Zap().Core().Enabled(zapcore.InfoLevel))
		assert.True(t, l.Zap().Core().Enabled(zapcore.WarnLevel))
	}
}

func TestBuildZapLogger_WrapsBuildError(t *testing.T) {
	t.Parallel()

	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{filepath.Join(t.TempDir(), "missing", "idm.log")}

	l, err := buildZapLogger(zcfg)
	require.Error(t, err)
	assert.Nil(t, l)
	assert.Contains(t, err.Error(), "failed to build logger")
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel(" error "))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
}
