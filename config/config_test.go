package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"CONFIG_FILE", "TMDB_API_KEY", "MOVIE_API_KEY", "CINETRAIL_ADDR", "CINETRAIL_DATA_DIR", "CINETRAIL_LOG_LEVEL"} {
		t.Setenv(key, "")
	}
	// Keep a stray .env in the working tree from leaking into tests.
	t.Chdir(t.TempDir())
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "en-US", cfg.TMDB.Language)
	assert.Equal(t, float64(40), cfg.TMDB.RequestsPerSecond)
	assert.Equal(t, filepath.Join("data", "cinetrail.db"), cfg.Storage.DatabasePath)
	assert.Equal(t, 5, cfg.Auth.LoginRatePerMinute)
	assert.Equal(t, 30*24*time.Hour, cfg.SessionDuration())
	assert.Empty(t, cfg.TMDB.APIKey)
}

func TestLoad_FileValues(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  addr: "127.0.0.1:9000"
  read_timeout: 5s
  allowed_origins:
    - https://cinetrail.example.com
  trusted_proxies:
    - 10.0.0.0/8
tmdb:
  api_key: from-file
  language: pt-BR
storage:
  data_dir: /var/lib/cinetrail
auth:
  session_days: 7
  bootstrap_email: admin@example.com
logging:
  level: debug
  file: /var/log/cinetrail.log
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"https://cinetrail.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, []string{"10.0.0.0/8"}, cfg.Server.TrustedProxies)
	assert.Equal(t, "from-file", cfg.TMDB.APIKey)
	assert.Equal(t, "pt-BR", cfg.TMDB.Language)
	assert.Equal(t, "/var/lib/cinetrail/cinetrail.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 7*24*time.Hour, cfg.SessionDuration())
	assert.Equal(t, "admin@example.com", cfg.Auth.BootstrapEmail)
	assert.Equal(t, "/var/log/cinetrail.log", cfg.Logging.File)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "tmdb:\n  api_key: from-file\n")
	t.Setenv("MOVIE_API_KEY", "from-movie-env")
	t.Setenv("CINETRAIL_ADDR", ":7000")
	t.Setenv("CINETRAIL_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-movie-env", cfg.TMDB.APIKey)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "warn", cfg.Logging.Level)

	t.Setenv("TMDB_API_KEY", "from-tmdb-env")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-tmdb-env", cfg.TMDB.APIKey, "TMDB_API_KEY takes precedence")
}

func TestLoad_ConfigFileEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "server:\n  addr: \":6000\"\n")
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":6000", cfg.Server.Addr)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "explicit missing file is an error")

	_, err = Load(writeConfig(t, "server: [not, a, map]\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "logging:\n  level: chatty\n"))
	assert.ErrorContains(t, err, "unknown log level")

	_, err = Load(writeConfig(t, "server:\n  addr: localhost\n"))
	assert.ErrorContains(t, err, "must include a port")
}
