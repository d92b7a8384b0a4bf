package config

import (
	"time"

	"vulnagent/internal/observability"
)

// Defaults.
const (
	DefaultAgentURL       = "http://localhost:8080/invocations"
	DefaultRequestTimeout = 300 * time.Second
	DefaultServerAddr     = ":8090"
	DefaultHistorySize    = 64
	DefaultOutputFormat   = "text"
	EnvPrefix             = "VULNAGENT"
	ConfigName            = "vulnagent"
)

// Config captures every user-configurable setting of the CLI and server.
type Config struct {
	AgentURL       string               `mapstructure:"agent_url" yaml:"agent_url"`
	SwarmMode      bool                 `mapstructure:"swarm_mode" yaml:"swarm_mode"`
	RequestTimeout time.Duration        `mapstructure:"request_timeout" yaml:"request_timeout"`
	Render         RenderConfig         `mapstructure:"render" yaml:"render"`
	Server         ServerConfig         `mapstructure:"server" yaml:"server"`
	History        HistoryConfig        `mapstructure:"history" yaml:"history"`
	Observability  observability.Config `mapstructure:"observability" yaml:"observability"`
}

// RenderConfig controls terminal output.
type RenderConfig struct {
	Format   string `mapstructure:"format" yaml:"format"` // text, json, yaml
	Markdown bool   `mapstructure:"markdown" yaml:"markdown"`
	Color    bool   `mapstructure:"color" yaml:"color"`
}

// ServerConfig configures `vulnagent serve`.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// HistoryConfig bounds the in-memory result history.
type HistoryConfig struct {
	Size int `mapstructure:"size" yaml:"size"`
}
