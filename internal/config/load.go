// Package config loads settings from defaults, a YAML file and VULNAGENT_*
// environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"vulnagent/internal/observability"
)

type loadOptions struct {
	configFile  string
	searchPaths []string
	overrides   map[string]any
}

// Option customizes Load.
type Option func(*loadOptions)

// WithConfigFile reads exactly this file; a missing file is an error.
func WithConfigFile(path string) Option {
	return func(o *loadOptions) {
		o.configFile = strings.TrimSpace(path)
	}
}

// WithSearchPaths replaces the directories searched for vulnagent.yaml.
func WithSearchPaths(paths ...string) Option {
	return func(o *loadOptions) {
		o.searchPaths = paths
	}
}

// WithOverride sets a key with the highest precedence, e.g. from a CLI flag.
func WithOverride(key string, value any) Option {
	return func(o *loadOptions) {
		if o.overrides == nil {
			o.overrides = map[string]any{}
		}
		o.overrides[key] = value
	}
}

// Metadata reports where the configuration came from.
type Metadata struct {
	ConfigFile string
	LoadedAt   time.Time
}

// Load resolves the configuration.
func Load(opts ...Option) (Config, Metadata, error) {
	options := loadOptions{searchPaths: []string{".", "$HOME/.vulnagent"}}
	for _, opt := range opts {
		opt(&options)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if options.configFile != "" {
		v.SetConfigFile(options.configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, Metadata{}, fmt.Errorf("read config %s: %w", options.configFile, err)
		}
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		for _, path := range options.searchPaths {
			v.AddConfigPath(path)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, Metadata{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	for key, value := range options.overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, Metadata{}, fmt.Errorf("decode config: %w", err)
	}
	normalize(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, Metadata{}, err
	}

	return cfg, Metadata{ConfigFile: v.ConfigFileUsed(), LoadedAt: time.Now()}, nil
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		AgentURL:       DefaultAgentURL,
		RequestTimeout: DefaultRequestTimeout,
		Render: RenderConfig{
			Format: DefaultOutputFormat,
			Color:  true,
		},
		Server: ServerConfig{
			Addr:            DefaultServerAddr,
			ShutdownTimeout: 10 * time.Second,
		},
		History:       HistoryConfig{Size: DefaultHistorySize},
		Observability: observability.DefaultConfig(),
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("agent_url", d.AgentURL)
	v.SetDefault("swarm_mode", d.SwarmMode)
	v.SetDefault("request_timeout", d.RequestTimeout)
	v.SetDefault("render.format", d.Render.Format)
	v.SetDefault("render.markdown", d.Render.Markdown)
	v.SetDefault("render.color", d.Render.Color)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("history.size", d.History.Size)

	obs := d.Observability
	v.SetDefault("observability.logging.level", obs.Logging.Level)
	v.SetDefault("observability.logging.dir", obs.Logging.Dir)
	v.SetDefault("observability.metrics.enabled", obs.Metrics.Enabled)
	v.SetDefault("observability.metrics.prometheus_port", obs.Metrics.PrometheusPort)
	v.SetDefault("observability.tracing.enabled", obs.Tracing.Enabled)
	v.SetDefault("observability.tracing.exporter", obs.Tracing.Exporter)
	v.SetDefault("observability.tracing.otlp_endpoint", obs.Tracing.OTLPEndpoint)
	v.SetDefault("observability.tracing.zipkin_endpoint", obs.Tracing.ZipkinEndpoint)
	v.SetDefault("observability.tracing.sample_rate", obs.Tracing.SampleRate)
	v.SetDefault("observability.tracing.service_name", obs.Tracing.ServiceName)
	v.SetDefault("observability.tracing.service_version", obs.Tracing.ServiceVersion)
}

func normalize(cfg *Config) {
	cfg.AgentURL = strings.TrimSpace(cfg.AgentURL)
	cfg.Render.Format = strings.ToLower(strings.TrimSpace(cfg.Render.Format))
	cfg.Observability.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Observability.Logging.Level))

	var origins []string
	for _, origin := range cfg.Server.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	cfg.Server.AllowedOrigins = origins
}

// Validate rejects settings that cannot work.
func (c Config) Validate() error {
	if c.AgentURL == "" {
		return errors.New("agent_url: must not be empty")
	}
	parsed, err := url.Parse(c.AgentURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("agent_url: invalid URL %q", c.AgentURL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout: must be positive, got %s", c.RequestTimeout)
	}
	switch c.Render.Format {
	case "", "text", "json", "yaml", "yml":
	default:
		return fmt.Errorf("render.format: unsupported format %q", c.Render.Format)
	}
	if c.History.Size < 0 {
		return fmt.Errorf("history.size: must not be negative, got %d", c.History.Size)
	}
	if c.Server.Addr == "" {
		return errors.New("server.addr: must not be empty")
	}
	return c.Observability.Validate()
}
