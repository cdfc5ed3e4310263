package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withCleanEnv(t *testing.T, vars ...string) {
	t.Helper()
	originals := make(map[string]string, len(vars))
	present := make(map[string]bool, len(vars))
	for _, v := range vars {
		originals[v], present[v] = os.LookupEnv(v)
		os.Unsetenv(v)
	}
	t.Cleanup(func() {
		for _, v := range vars {
			if present[v] {
				os.Setenv(v, originals[v])
			} else {
				os.Unsetenv(v)
			}
		}
	})
}

func TestLoad_DataDir_DefaultWhenNotSet(t *testing.T) {
	withCleanEnv(t, "WALLET_DATA_DIR")

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	expected, err := filepath.Abs("./data")
	require.NoError(t, err)
	assert.Equal(t, expected, cfg.DataDir)
}

func TestLoad_DataDir_FromEnvVar(t *testing.T) {
	withCleanEnv(t, "WALLET_DATA_DIR")

	testPath := t.TempDir()
	os.Setenv("WALLET_DATA_DIR", testPath)

	cfg, err := Load()
	require.NoError(t, err)
	absPath, err := filepath.Abs(testPath)
	require.NoError(t, err)
	assert.Equal(t, absPath, cfg.DataDir)
}

func TestLoad_DataDir_CLIFlagTakesPrecedence(t *testing.T) {
	withCleanEnv(t, "WALLET_DATA_DIR")

	envDataDir := t.TempDir()
	os.Setenv("WALLET_DATA_DIR", envDataDir)

	cliDataDir := t.TempDir()
	cfg, err := Load(cliDataDir)
	require.NoError(t, err)

	absPath, err := filepath.Abs(cliDataDir)
	require.NoError(t, err)
	assert.Equal(t, absPath, cfg.DataDir)
	assert.NotEqual(t, envDataDir, cfg.DataDir)
}

func TestLoad_DataDir_CLIFlagEmptyStringFallsBackToEnv(t *testing.T) {
	withCleanEnv(t, "WALLET_DATA_DIR")

	envDataDir := t.TempDir()
	os.Setenv("WALLET_DATA_DIR", envDataDir)

	cfg, err := Load("")
	require.NoError(t, err)
	absPath, err := filepath.Abs(envDataDir)
	require.NoError(t, err)
	assert.Equal(t, absPath, cfg.DataDir)
}

func TestLoad_DataDir_CreatesDirectoryIfNeeded(t *testing.T) {
	withCleanEnv(t, "WALLET_DATA_DIR")

	tmpDir := filepath.Join(t.TempDir(), "new-data-dir")
	os.Setenv("WALLET_DATA_DIR", tmpDir)

	cfg, err := Load()
	require.NoError(t, err)

	info, err := os.Stat(cfg.DataDir)
	require.NoError(t, err, "directory should be created")
	assert.True(t, info.IsDir())
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	withCleanEnv(t, "WALLET_DATA_DIR", "GO_PORT", "DEV_MODE", "LOG_LEVEL", "SESSION_SERVICE_URL", "QUOTES_SERVICE_URL")
	os.Setenv("WALLET_DATA_DIR", t.TempDir())

	t.Run("GO_PORT as int", func(t *testing.T) {
		os.Setenv("GO_PORT", "9000")
		defer os.Unsetenv("GO_PORT")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 9000, cfg.Port)
	})

	t.Run("GO_PORT invalid defaults", func(t *testing.T) {
		os.Setenv("GO_PORT", "not-a-number")
		defer os.Unsetenv("GO_PORT")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 8001, cfg.Port)
	})

	t.Run("DEV_MODE as bool", func(t *testing.T) {
		os.Setenv("DEV_MODE", "true")
		defer os.Unsetenv("DEV_MODE")

		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.DevMode)
	})

	t.Run("LOG_LEVEL defaults to info", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("service URLs default", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:9100", cfg.SessionServiceURL)
		assert.Equal(t, "http://localhost:9200", cfg.QuotesServiceURL)
	})
}
