// Package config loads storyline settings from storyline.yaml and STORYLINE_*
// environment variables. Command-line flags are applied on top by the CLI.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aretw0/storyline/pkg/domain"
	"github.com/caarlos0/env/v11"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no config path is given and it exists.
const DefaultFile = "storyline.yaml"

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "STORYLINE_"

// Store drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Config is the full configuration.
type Config struct {
	Story    string `mapstructure:"story" env:"STORY"`
	Marker   string `mapstructure:"marker" env:"MARKER"`
	Assets   string `mapstructure:"assets" env:"ASSETS"`
	Slots    int    `mapstructure:"slots" env:"SLOTS"`
	Strict   bool   `mapstructure:"strict" env:"STRICT"`
	LogLevel string `mapstructure:"log_level" env:"LOG_LEVEL"`

	Labels LabelsConfig `mapstructure:"labels" envPrefix:"LABEL_"`
	Store  StoreConfig  `mapstructure:"store" envPrefix:"STORE_"`
	Server ServerConfig `mapstructure:"server" envPrefix:"SERVER_"`
}

// LabelsConfig holds the transcript speaker labels written for choices.
type LabelsConfig struct {
	Question string `mapstructure:"question" env:"QUESTION"`
	Answer   string `mapstructure:"answer" env:"ANSWER"`
}

// StoreConfig selects and configures the save store.
type StoreConfig struct {
	Driver        string        `mapstructure:"driver" env:"DRIVER"`
	Path          string        `mapstructure:"path" env:"PATH"`
	RedisAddr     string        `mapstructure:"redis_addr" env:"REDIS_ADDR"`
	RedisPrefix   string        `mapstructure:"redis_prefix" env:"REDIS_PREFIX"`
	TTL           time.Duration `mapstructure:"ttl" env:"TTL"`
	EncryptionKey string        `mapstructure:"encryption_key" env:"ENCRYPTION_KEY"`
}

// ServerConfig configures the HTTP and MCP surfaces.
type ServerConfig struct {
	Port    int  `mapstructure:"port" env:"PORT"`
	MCPPort int  `mapstructure:"mcp_port" env:"MCP_PORT"`
	Metrics bool `mapstructure:"metrics" env:"METRICS"`
}

// Default returns the built-in configuration.
func Default() Config {
	labels := domain.DefaultLabels()
	return Config{
		Slots:    5,
		LogLevel: "info",
		Labels:   LabelsConfig{Question: labels.Question, Answer: labels.Answer},
		Store:    StoreConfig{Driver: DriverFile},
		Server:   ServerConfig{Port: 8080, MCPPort: 8081, Metrics: true},
	}
}

// Load builds the configuration: defaults, then the YAML file, then the
// environment. An empty path falls back to DefaultFile when present.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decodeYAML(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to load %s: %w", path, err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// decodeYAML decodes into a generic map first so mapstructure can apply weak
// typing ("5" for an int, "30s" for a duration).
func decodeYAML(data []byte, cfg *Config) error {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}

// Validate checks the values that cannot be repaired with a default.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case DriverMemory, DriverFile, DriverSQLite, DriverRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	if c.Slots <= 0 {
		errs = append(errs, fmt.Errorf("slots must be positive, got %d", c.Slots))
	}
	if c.Store.EncryptionKey != "" {
		if _, err := c.EncryptionKey(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StorePath returns the configured store path or the driver's default.
func (c Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	switch c.Store.Driver {
	case DriverSQLite:
		return ".storyline/saves.db"
	case DriverFile:
		return ".storyline/saves"
	}
	return ""
}

// DomainLabels returns the labels with empty values defaulted.
func (c Config) DomainLabels() domain.Labels {
	return domain.Labels{Question: c.Labels.Question, Answer: c.Labels.Answer}.OrDefault()
}

// EncryptionKey decodes the base64 store key. It returns nil when no key is set.
func (c Config) EncryptionKey() ([]byte, error) {
	if c.Store.EncryptionKey == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(c.Store.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key is not base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}
