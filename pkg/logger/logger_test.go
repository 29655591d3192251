package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/itohio/gocapmeter/pkg/config"
)

func TestNew_Levels(t *testing.T) {
	log, err := New(config.LogConfig{Level: "warn"})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))
}

func TestNew_InvalidLevel(t *testing.T) {
	log, err := New(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
	assert.Nil(t, log)
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capmeter.log")

	log, err := New(config.LogConfig{Level: "debug", File: path})
	require.NoError(t, err)

	log.Info("[test] hello", zap.String("port", "COM19"))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[test] hello")
	assert.Contains(t, string(data), "COM19")
}
