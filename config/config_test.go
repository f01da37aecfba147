package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"API_URL", "SERVER_PORT", "KNOWN_SCOPES", "PROJECT_TASKS_TIMEOUT", "MONGO_URI", "SESSION_IDLE_TIMEOUT"} {
		t.Setenv(k, "")
	}

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, DefaultServerPort, cfg.ServerPort)
	assert.Equal(t, 30*time.Second, cfg.ProjectTasksTimeout)
	assert.Equal(t, 12*time.Hour, cfg.SessionIdleTimeout)
	assert.Equal(t, DefaultKnownScopes, cfg.KnownScopes)
	assert.Empty(t, cfg.MongoURI)
}

func TestLoad_FromEnvFile(t *testing.T) {
	// godotenv never overrides variables that are already set.
	for _, k := range []string{"API_URL", "SERVER_PORT", "KNOWN_SCOPES", "PROJECT_TASKS_TIMEOUT"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	path := filepath.Join(t.TempDir(), ".env")
	content := "API_URL=https://siramm.example/api/\nSERVER_PORT=:9000\nKNOWN_SCOPES=project, website\nPROJECT_TASKS_TIMEOUT=10s\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://siramm.example/api", cfg.APIURL)
	assert.Equal(t, "9000", cfg.ServerPort)
	assert.Equal(t, []string{"project", "website"}, cfg.KnownScopes)
	assert.Equal(t, 10*time.Second, cfg.ProjectTasksTimeout)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("BREAKER_TIMEOUT", "soon")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestLoad_SessionIdleTimeout(t *testing.T) {
	t.Setenv("SESSION_IDLE_TIMEOUT", "45m")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, 45*time.Minute, cfg.SessionIdleTimeout)
}
