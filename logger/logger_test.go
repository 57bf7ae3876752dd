package logger

import (
	"os"
	"path/filepath"
	"testing"

	"tickerfeed/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -v --run TestNewInvalidLevel
func TestNewInvalidLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

// go test -v --run TestNewWritesFile
func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ticker.log")

	log, err := New(config.LogConfig{
		Level:       "debug",
		Format:      "json",
		OutputFile:  path,
		Environment: "prod",
	})
	require.NoError(t, err)

	log.Info("hello")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"service":"tickerfeed"`)
}
