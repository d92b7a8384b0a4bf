package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, meta, err := Load(WithSearchPaths(t.TempDir()))
	require.NoError(t, err)

	assert.Equal(t, DefaultAgentURL, cfg.AgentURL)
	assert.False(t, cfg.SwarmMode)
	assert.Equal(t, DefaultRequestTimeout, cfg.RequestTimeout)
	assert.Equal(t, "text", cfg.Render.Format)
	assert.True(t, cfg.Render.Color)
	assert.Equal(t, DefaultServerAddr, cfg.Server.Addr)
	assert.Empty(t, cfg.Server.AllowedOrigins)
	assert.Equal(t, DefaultHistorySize, cfg.History.Size)
	assert.True(t, cfg.Observability.Metrics.Enabled)
	assert.False(t, cfg.Observability.Tracing.Enabled)
	assert.Empty(t, meta.ConfigFile)
}

func TestLoadFromSearchPath(t *testing.T) {
	dir := t.TempDir()
	content := `
agent_url: http://agent.internal:9000/invocations
swarm_mode: true
request_timeout: 45s
render:
  format: json
  markdown: true
server:
  addr: ":9999"
  allowed_origins:
    - http://localhost:3000
history:
  size: 10
observability:
  tracing:
    enabled: true
    exporter: zipkin
    sample_rate: 0.5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vulnagent.yaml"), []byte(content), 0o644))

	cfg, meta, err := Load(WithSearchPaths(dir))
	require.NoError(t, err)

	assert.Equal(t, "http://agent.internal:9000/invocations", cfg.AgentURL)
	assert.True(t, cfg.SwarmMode)
	assert.Equal(t, 45*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "json", cfg.Render.Format)
	assert.True(t, cfg.Render.Markdown)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 10, cfg.History.Size)
	assert.True(t, cfg.Observability.Tracing.Enabled)
	assert.Equal(t, "zipkin", cfg.Observability.Tracing.Exporter)
	assert.Equal(t, 0.5, cfg.Observability.Tracing.SampleRate)
	assert.Equal(t, "vulnagent", cfg.Observability.Tracing.ServiceName, "unset keys keep defaults")
	assert.Equal(t, filepath.Join(dir, "vulnagent.yaml"), meta.ConfigFile)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agent_url: http://from-file/invocations\n"), 0o644))

	t.Setenv("VULNAGENT_AGENT_URL", "http://from-env:8080/invocations")
	t.Setenv("VULNAGENT_RENDER_COLOR", "false")
	t.Setenv("VULNAGENT_OBSERVABILITY_METRICS_ENABLED", "false")

	cfg, meta, err := Load(WithConfigFile(path))
	require.NoError(t, err)
	assert.Equal(t, "http://from-env:8080/invocations", cfg.AgentURL)
	assert.False(t, cfg.Render.Color)
	assert.False(t, cfg.Observability.Metrics.Enabled)
	assert.Equal(t, path, meta.ConfigFile)
}

func TestLoadOverrideWins(t *testing.T) {
	t.Setenv("VULNAGENT_SWARM_MODE", "false")
	cfg, _, err := Load(WithSearchPaths(t.TempDir()), WithOverride("swarm_mode", true))
	require.NoError(t, err)
	assert.True(t, cfg.SwarmMode)
}

func TestLoadExplicitFileMissing(t *testing.T) {
	_, _, err := Load(WithConfigFile(filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty agent url", func(c *Config) { c.AgentURL = "" }},
		{"relative agent url", func(c *Config) { c.AgentURL = "/invocations" }},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }},
		{"bad format", func(c *Config) { c.Render.Format = "xml" }},
		{"negative history", func(c *Config) { c.History.Size = -1 }},
		{"empty server addr", func(c *Config) { c.Server.Addr = "" }},
		{"bad log level", func(c *Config) { c.Observability.Logging.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}
