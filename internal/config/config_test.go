package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromPathLayersYAMLAndEnv(t *testing.T) {
	path := writeYAML(t, `
server:
  port: 9090
auth:
  jwt_secret: from-yaml
  invite_secret: invite
quotes:
  schedule: "@every 1m"
`)
	t.Setenv("AUTH_JWT_SECRET", "from-env")
	t.Setenv("AUTH_SESSION_TTL", "2h")

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, "invite", cfg.Auth.InviteSecret)
	assert.Equal(t, 2*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, "@every 1m", cfg.Quotes.Schedule)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromPathMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("AUTH_INVITE_SECRET", "invite")

	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.EqualError(t, cfg.Validate(), "auth.jwt_secret is required")

	cfg.Auth.JWTSecret = "s"
	assert.NoError(t, cfg.Validate(), "invite secret falls back to the jwt secret")

	cfg.Server.Port = 70000
	assert.Error(t, cfg.Validate())
}

func TestLoadFromPathRejectsBadYAML(t *testing.T) {
	path := writeYAML(t, "server: [")
	_, err := LoadFromPath(path)
	assert.Error(t, err)
}
