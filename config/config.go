// Package config loads and validates the instrumentation configuration.
//
// DESIGN: Configuration comes from a YAML file or is built in code; a small
// set of environment variables fills in credentials so they stay out of
// files. ${VAR:-default} expansion is applied to the YAML before parsing.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vnfmsqkek3/bedrock-observability-go/telemetry"
)

// Environment variables consulted when the corresponding fields are empty.
const (
	EnvSinkEndpoint   = "TELEMETRY_ENDPOINT"
	EnvSinkCredential = "TELEMETRY_LICENSE_KEY"
)

// DefaultStreamIdleTimeout finalizes an abandoned stream after this much
// inactivity.
const DefaultStreamIdleTimeout = 5 * time.Second

// Config is the root configuration for the instrumentation layer.
type Config struct {
	// ServiceName identifies the instrumented application on every event.
	// Required.
	ServiceName string `yaml:"service_name"`

	// SinkEndpoint is the URL events are delivered to. Empty means events
	// are built but discarded.
	SinkEndpoint string `yaml:"sink_endpoint"`

	// SinkCredential authenticates deliveries to the sink.
	SinkCredential string `yaml:"sink_credential"`

	// TrackTokenUsage records token counts on events. Defaults to true.
	TrackTokenUsage *bool `yaml:"track_token_usage"`

	// DisableStreamingEvents passes streamed responses through untouched,
	// emitting no events for them.
	DisableStreamingEvents bool `yaml:"disable_streaming_events"`

	// CollectFeedback enables the evaluation/feedback collector.
	CollectFeedback bool `yaml:"collect_feedback"`

	// QueueSize bounds the emitter's pending-batch queue.
	QueueSize int `yaml:"queue_size"`

	// StreamIdleTimeout finalizes an abandoned stream after this much
	// inactivity. Zero means DefaultStreamIdleTimeout.
	StreamIdleTimeout time.Duration `yaml:"stream_idle_timeout"`

	Logging telemetry.LoggerConfig `yaml:"logging"`
}

// expandEnvWithDefaults expands ${VAR} and ${VAR:-default} references.
func expandEnvWithDefaults(s string) string {
	re := regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultValue := ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes parses configuration from raw YAML bytes, expanding
// ${VAR:-default} references and applying environment fallbacks.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := expandEnvWithDefaults(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// ApplyDefaults fills unset fields from the environment and the library
// defaults. Safe to call on a hand-built Config.
func (c *Config) ApplyDefaults() {
	if c.SinkEndpoint == "" {
		c.SinkEndpoint = os.Getenv(EnvSinkEndpoint)
	}
	if c.SinkCredential == "" {
		c.SinkCredential = os.Getenv(EnvSinkCredential)
	}
	if c.QueueSize <= 0 {
		c.QueueSize = telemetry.DefaultQueueSize
	}
	if c.StreamIdleTimeout <= 0 {
		c.StreamIdleTimeout = DefaultStreamIdleTimeout
	}
}

// Validate checks the configuration for required fields.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	return nil
}

// TokenUsageEnabled reports whether token accounting is on. Unset means on.
func (c *Config) TokenUsageEnabled() bool {
	return c.TrackTokenUsage == nil || *c.TrackTokenUsage
}
