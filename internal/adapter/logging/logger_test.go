package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed(level zapcore.Level) (*ZapLogger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return &ZapLogger{logger: zap.New(core).Sugar()}, logs
}

func TestZapLogger_KeyValuePairs(t *testing.T) {
	logger, logs := observed(zapcore.DebugLevel)

	logger.With("runId", "r-1").Info("Worker shut down", "workerID", 2, "shutdowns", 1)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Worker shut down", entries[0].Message)
	assert.Equal(t, map[string]interface{}{
		"runId":     "r-1",
		"workerID":  int64(2),
		"shutdowns": int64(1),
	}, entries[0].ContextMap())
}

func TestZapLogger_Levels(t *testing.T) {
	logger, logs := observed(zapcore.WarnLevel)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")
	logger.Error("shown too")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[1].Level)
}

func TestNewZapLoggerWithLevel(t *testing.T) {
	assert.NotNil(t, NewZapLoggerWithLevel("debug"))
	assert.NotNil(t, NewZapLoggerWithLevel("not-a-level"))
	assert.NotPanics(t, func() { NewNopLogger().Error("dropped", "k", "v") })
}
