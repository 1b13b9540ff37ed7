package app

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetLogger(t *testing.T) {
	prev := GetLogger()
	t.Cleanup(func() { SetLogger(prev) })

	core, logs := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core))
	SetLogger(nil)

	GetLogger().Info("phase committed", zap.String("slug", "0001_upload"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "phase committed", entry.Message)
	assert.Equal(t, "0001_upload", entry.ContextMap()["slug"])
}

func TestNewLoggerTo_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLoggerTo(&buf, "info", FormatJSON)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("run started", zap.String("run_id", "01J0"))

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "run started", line["msg"])
	assert.Equal(t, "01J0", line["run_id"])
	assert.Equal(t, "info", line["level"])
	assert.Contains(t, line, "ts")
}

func TestNewLoggerTo_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLoggerTo(&buf, "debug", FormatConsole)
	require.NoError(t, err)

	logger.Debug("hook passed", zap.String("hook", "build"))
	assert.Contains(t, buf.String(), "DEBUG")
	assert.Contains(t, buf.String(), "hook passed")
	assert.Contains(t, buf.String(), `"hook": "build"`)
}

func TestNewLoggerTo_Invalid(t *testing.T) {
	_, err := NewLoggerTo(&bytes.Buffer{}, "verbose", FormatJSON)
	assert.Error(t, err)

	_, err = NewLoggerTo(&bytes.Buffer{}, "info", "xml")
	assert.Error(t, err)
}
