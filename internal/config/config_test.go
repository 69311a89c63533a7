package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mgajardo/backdesk/internal/config"
	"github.com/stretchr/testify/require"
)

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("api:\n  base_url: https://directory.internal/api\n  timeout: 30s\nlog:\n  level: debug\n")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	t.Setenv("BACKDESK_CONFIG_PATH", path)
	t.Setenv("BACKDESK_API_TIMEOUT", "5s")
	t.Setenv("BACKDESK_STATE_PATH", filepath.Join(dir, "state.db"))

	cfg, err := config.Load()
	require.NoError(t, err)

	// File values survive; env wins where both are set.
	require.Equal(t, "https://directory.internal/api", cfg.API.BaseURL)
	require.Equal(t, "5s", cfg.API.Timeout)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, filepath.Join(dir, "state.db"), cfg.State.Path)
	require.Equal(t, 5*time.Second, cfg.API.RequestTimeout())

	require.NoError(t, cfg.Validate())
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := config.Config{
		API: config.APIConfig{BaseURL: "ftp://nope", Timeout: "soon"},
		Log: config.LogConfig{Level: "loud"},
	}

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "api.base_url")
	require.Contains(t, err.Error(), "api.timeout")
	require.Contains(t, err.Error(), "state.path")
	require.Contains(t, err.Error(), "state.key_path")
	require.Contains(t, err.Error(), "log.level")
}
