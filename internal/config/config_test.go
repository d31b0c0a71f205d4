package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "8181"
database:
  url: postgres://jg:jg@localhost:5432/jg
jwt:
  secret_key: a-very-long-test-secret
  access_token_duration: 5m
auth:
  password_hasher: argon2
cors:
  allowed_origins:
    - https://jobs.example.com
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "8181", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.MetricsPort)
	assert.Equal(t, 5*time.Minute, cfg.JWT.AccessTokenDuration)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshTokenDuration)
	assert.Equal(t, "argon2", cfg.Auth.PasswordHasher)
	assert.Equal(t, []string{"https://jobs.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 3, cfg.Notifications.Retry.MaxAttempts)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
database:
  url: postgres://from-file
jwt:
  secret_key: a-very-long-test-secret
`)
	t.Setenv("JOBGARDEN_DATABASE__URL", "postgres://from-env")
	t.Setenv("JOBGARDEN_RATE_LIMIT__ENABLED", "true")
	t.Setenv("JOBGARDEN_RATE_LIMIT__WINDOW", "30s")
	t.Setenv("JOBGARDEN_CORS__ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://from-env", cfg.Database.URL)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	path := writeConfig(t, `
database:
  url: postgres://via-env-path
jwt:
  secret_key: a-very-long-test-secret
`)
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://via-env-path", cfg.Database.URL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Database.URL = "postgres://localhost/jg"
		cfg.JWT.SecretKey = "a-very-long-test-secret"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults with required fields", mutate: func(*Config) {}},
		{name: "missing database url", mutate: func(c *Config) { c.Database.URL = "" }, wantErr: true},
		{name: "short jwt secret", mutate: func(c *Config) { c.JWT.SecretKey = "short" }, wantErr: true},
		{name: "unknown hasher", mutate: func(c *Config) { c.Auth.PasswordHasher = "md5" }, wantErr: true},
		{name: "unknown log level", mutate: func(c *Config) { c.Log.Level = "trace" }, wantErr: true},
		{name: "bootstrap email without password", mutate: func(c *Config) { c.Bootstrap.AdminEmail = "root@example.com" }, wantErr: true},
		{
			name: "bootstrap admin",
			mutate: func(c *Config) {
				c.Bootstrap.AdminEmail = "root@example.com"
				c.Bootstrap.AdminPassword = "supersecret"
			},
		},
		{
			name: "rate limit enabled without window",
			mutate: func(c *Config) {
				c.RateLimit.Enabled = true
				c.RateLimit.Window = 0
			},
			wantErr: true,
		},
		{name: "email enabled without host", mutate: func(c *Config) { c.Notifications.Email.Enabled = true }, wantErr: true},
		{
			name: "backoff inverted",
			mutate: func(c *Config) {
				c.Notifications.Retry.InitialBackoff = time.Minute
				c.Notifications.Retry.MaxBackoff = time.Second
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
