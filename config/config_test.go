package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/findback/lostfound-engine/config"
)

func TestLoad_NoPath_ReturnsDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "findback.db", cfg.Database.Path)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NotEmpty(t, cfg.CORS.AllowedOrigins)
}

func TestLoad_MissingFile_ReturnsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_PartialFile_FillsDefaults(t *testing.T) {
	// GIVEN: A config file that only sets the port and log level
	// WHEN: Loading it
	// THEN: The explicit values apply and everything else defaults

	path := filepath.Join(t.TempDir(), "findback.yaml")
	content := []byte("server:\n  port: 3000\nlog_level: debug\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 15, cfg.Server.ReadTimeoutSec)
	assert.Equal(t, "findback.db", cfg.Database.Path)
}

func TestLoad_InvalidYAML_Errors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [nope"), 0o644))

	_, err := config.Load(path)
	assert.Error(t, err)
}
