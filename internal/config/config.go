// Package config handles Tanuki bridge configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order used when no
// explicit path is given: ./tanuki.yaml, ~/.config/tanuki/tanuki.yaml,
// /config/tanuki.yaml, /etc/tanuki/tanuki.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"tanuki.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "tanuki", "tanuki.yaml"))
	}

	paths = append(paths, "/config/tanuki.yaml") // Container convention
	paths = append(paths, "/etc/tanuki/tanuki.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all bridge configuration.
type Config struct {
	MQTT          MQTTConfig          `yaml:"mqtt"`
	HomeAssistant HomeAssistantConfig `yaml:"homeassistant"`
	LogLevel      string              `yaml:"log_level"`
}

// MQTTConfig defines the broker connection.
type MQTTConfig struct {
	// Addr is the broker address as "host:port".
	Addr string `yaml:"addr"`
}

// HomeAssistantConfig defines the HA WebSocket connection.
type HomeAssistantConfig struct {
	Host  string `yaml:"host"`
	Token string `yaml:"token"`
}

// Configured reports whether the Home Assistant connection has both a
// host and a token. A partial configuration is treated as
// unconfigured.
func (c HomeAssistantConfig) Configured() bool {
	return c.Host != "" && c.Token != ""
}

// Load reads configuration from a YAML file, expands environment
// variables, applies environment overrides and defaults, and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${HASS_TOKEN}). A
	// convenience for container deployments.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Default returns a config built from environment variables alone,
// for running bridges without a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg
}

// applyEnv overlays the conventional environment variables:
// TANUKI_MQTT_ADDR, HASS_HOST, HASS_TOKEN.
func (c *Config) applyEnv() {
	if addr := os.Getenv("TANUKI_MQTT_ADDR"); addr != "" {
		c.MQTT.Addr = addr
	}
	if host := os.Getenv("HASS_HOST"); host != "" {
		c.HomeAssistant.Host = host
	}
	if token := os.Getenv("HASS_TOKEN"); token != "" {
		c.HomeAssistant.Token = token
	}
}

func (c *Config) applyDefaults() {
	if c.MQTT.Addr == "" {
		c.MQTT.Addr = "localhost:1883"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks that the configuration is internally consistent.
// It runs after applyDefaults, so it can assume defaults are populated.
func (c *Config) Validate() error {
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
