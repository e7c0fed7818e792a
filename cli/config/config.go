// Package config handles YAML config file loading for the helper and
// session CLIs. All values are optional and act as defaults; CLI flags
// always override config values, per the ambient configuration rule.
package config

import (
	"fmt"
	"time"
)

// Config represents an imgwriter-helper.yaml configuration file.
type Config struct {
	Socket      SocketConfig      `yaml:"socket"`
	Session     SessionConfig     `yaml:"session"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
	Notify      NotifyConfig      `yaml:"notify"`
	Manifest    ManifestConfig    `yaml:"manifest"`
	LogLevel    string            `yaml:"log_level"`
}

// SocketConfig holds named-pipe defaults.
type SocketConfig struct {
	Name string `yaml:"name"`
}

// SessionConfig holds client-side connect/handshake defaults.
type SessionConfig struct {
	ConnectAttempts int      `yaml:"connect_attempts"`
	ConnectInterval Duration `yaml:"connect_interval"`
	HandshakeTimeout Duration `yaml:"handshake_timeout"`
}

// DiagnosticsConfig holds the local audit-log defaults (spec §4.7).
type DiagnosticsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// NotifyConfig holds the completion-notifier defaults (spec §4.8).
type NotifyConfig struct {
	Enabled  bool     `yaml:"enabled"`
	RedisURL string   `yaml:"redis_url"`
	Channel  string   `yaml:"channel,omitempty"`
	Timeout  Duration `yaml:"timeout,omitempty"`
	Retries  *int     `yaml:"retries,omitempty"`
}

// ManifestConfig holds the fleet-manifest uploader defaults (spec §4.9).
type ManifestConfig struct {
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}
