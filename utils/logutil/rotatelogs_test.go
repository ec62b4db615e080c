package logutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRotateLogger(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewRotateLogger(&RotateLoggerConfig{LogDir: dir, LogLevel: logrus.DebugLevel})
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logger.WithField("k", "v").Info("written")
	require.NoError(t, logger.Close())

	files, err := filepath.Glob(filepath.Join(dir, "*.log"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	var found bool
	for _, f := range files {
		data, err := os.ReadFile(f)
		require.NoError(t, err)
		if len(data) > 0 {
			assert.Contains(t, string(data), `"msg":"written"`)
			found = true
		}
	}
	assert.True(t, found)
}

func TestNewRotateLoggerDefaults(t *testing.T) {
	cfg := &RotateLoggerConfig{LogDir: t.TempDir()}
	logger, err := NewRotateLogger(cfg)
	require.NoError(t, err)
	defer logger.Close()
	assert.Equal(t, DefaultLogLevel, logger.GetLevel())
	assert.Equal(t, DefaultRotateTime, cfg.RotateTime)
	assert.Equal(t, DefaultMaxAge, cfg.MaxAge)
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, DefaultLogLevel, level)

	level, err = ParseLevel("trace")
	require.NoError(t, err)
	assert.Equal(t, logrus.TraceLevel, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
