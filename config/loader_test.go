package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoader_Defaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.Guardrails.Timeout)
	assert.Equal(t, "", cfg.Hub.BaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoader_FromFile(t *testing.T) {
	path := writeTempConfig(t, `
server:
  http_port: 9000
guardrails:
  timeout: 5s
  use_local_first: true
hub:
  base_url: "https://hub.example.com"
  api_key: "key-123"
redis:
  enabled: true
  addr: "redis:6379"
`)

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.HTTPPort)
	assert.Equal(t, 5*time.Second, cfg.Guardrails.Timeout)
	assert.True(t, cfg.Guardrails.UseLocalFirst)
	assert.Equal(t, "https://hub.example.com", cfg.Hub.BaseURL)
	assert.Equal(t, "key-123", cfg.Hub.APIKey)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)

	// 未覆盖的字段保留默认值
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
	assert.Equal(t, 64, cfg.Guardrails.MaxGuardrails)
}

func TestLoader_FileNotExist(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/config.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
}

func TestLoader_InvalidYAML(t *testing.T) {
	path := writeTempConfig(t, "server: [not a map")

	_, err := NewLoader().WithConfigPath(path).Load()
	assert.Error(t, err)
}

func TestLoader_EnvOverride(t *testing.T) {
	t.Setenv("GUARDFLOW_SERVER_HTTP_PORT", "7070")
	t.Setenv("GUARDFLOW_GUARDRAILS_TIMEOUT", "10s")
	t.Setenv("GUARDFLOW_HUB_BASE_URL", "https://env.example.com")
	t.Setenv("GUARDFLOW_REDIS_ENABLED", "true")
	t.Setenv("GUARDFLOW_LOG_OUTPUT_PATHS", "stdout, /var/log/guardflow.log")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.HTTPPort)
	assert.Equal(t, 10*time.Second, cfg.Guardrails.Timeout)
	assert.Equal(t, "https://env.example.com", cfg.Hub.BaseURL)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, []string{"stdout", "/var/log/guardflow.log"}, cfg.Log.OutputPaths)
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	path := writeTempConfig(t, `
server:
  http_port: 9000
`)
	t.Setenv("GUARDFLOW_SERVER_HTTP_PORT", "7070")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	// 环境变量优先级高于文件
	assert.Equal(t, 7070, cfg.Server.HTTPPort)
}

func TestLoader_CustomPrefix(t *testing.T) {
	t.Setenv("MYAPP_SERVER_HTTP_PORT", "6060")

	cfg, err := NewLoader().WithEnvPrefix("MYAPP").Load()
	require.NoError(t, err)
	assert.Equal(t, 6060, cfg.Server.HTTPPort)
}

func TestLoader_Validator(t *testing.T) {
	_, err := NewLoader().
		WithValidator(func(c *Config) error {
			return assert.AnError
		}).
		Load()
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "invalid http port",
			mutate:  func(c *Config) { c.Server.HTTPPort = 0 },
			wantErr: true,
		},
		{
			name:    "negative guardrails timeout",
			mutate:  func(c *Config) { c.Guardrails.Timeout = -time.Second },
			wantErr: true,
		},
		{
			name:    "zero max guardrails",
			mutate:  func(c *Config) { c.Guardrails.MaxGuardrails = 0 },
			wantErr: true,
		},
		{
			name:    "negative hub rate limit",
			mutate:  func(c *Config) { c.Hub.RateLimit = -1 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
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
