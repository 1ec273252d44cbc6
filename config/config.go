// Package config loads simulator and device settings
//
// Layering, weakest first: Default(), then a TOML or YAML file decoded over
// the defaults (absent keys keep their default), then AIRBLADDER_* environment
// variables. Values are plain numbers; the buoyancy force is clamped at use.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/lixenwraith/airbladder/parameter"
)

// Storage backend names
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config is the complete simulator configuration
type Config struct {
	Bladder BladderConfig `toml:"bladder" yaml:"bladder"`
	Audio   AudioConfig   `toml:"audio" yaml:"audio"`
	Storage StorageConfig `toml:"storage" yaml:"storage"`
	Logging LoggingConfig `toml:"logging" yaml:"logging"`
	Anchor  AnchorConfig  `toml:"anchor" yaml:"anchor"`
}

// BladderConfig holds the device tunables
type BladderConfig struct {
	BuoyancyForce float64 `toml:"buoyancy_force" yaml:"buoyancy_force"`
	DischargeRate float64 `toml:"discharge_rate" yaml:"discharge_rate"`
	RechargeRate  float64 `toml:"recharge_rate" yaml:"recharge_rate"`
	Capacity      float64 `toml:"capacity" yaml:"capacity"`
}

// AudioConfig holds clip locations and playback toggles
type AudioConfig struct {
	Enabled      bool    `toml:"enabled" yaml:"enabled"`
	Volume       float64 `toml:"volume" yaml:"volume"` // master gain 0..1
	InflateClip  string  `toml:"inflate_clip" yaml:"inflate_clip"`
	RechargeClip string  `toml:"recharge_clip" yaml:"recharge_clip"`
}

// StorageConfig selects the durable backend for air state
type StorageConfig struct {
	Backend string `toml:"backend" yaml:"backend"`
	Path    string `toml:"path" yaml:"path"` // directory for file, database file for sqlite
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"` // text or json
}

// AnchorConfig bounds the gauge positioning retry loop
type AnchorConfig struct {
	RetryAttempts int           `toml:"retry_attempts" yaml:"retry_attempts"`
	RetryInterval time.Duration `toml:"-" yaml:"-"`

	// Raw string value for file decoding
	RetryIntervalRaw string `toml:"retry_interval" yaml:"retry_interval"`
}

// Default returns the reference tuning
func Default() *Config {
	return &Config{
		Bladder: BladderConfig{
			BuoyancyForce: parameter.DefaultBuoyancyForce,
			DischargeRate: parameter.DefaultDischargeRate,
			RechargeRate:  parameter.DefaultRechargeRate,
			Capacity:      parameter.DefaultCapacity,
		},
		Audio: AudioConfig{
			Enabled:      true,
			Volume:       1.0,
			InflateClip:  parameter.InflateClipPath,
			RechargeClip: parameter.RechargeClipPath,
		},
		Storage: StorageConfig{
			Backend: BackendFile,
			Path:    "save",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Anchor: AnchorConfig{
			RetryAttempts: parameter.AnchorRetryAttempts,
			RetryInterval: parameter.AnchorRetryInterval,
		},
	}
}

// Load builds a Config from defaults, the optional file at path and the environment
// An empty path skips the file layer
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := cfg.decode(path, expandEnvVars(string(data))); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.parseDurations(); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// decode picks the format by extension and decodes over the current values
func (c *Config) decode(path, data string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		_, err := toml.Decode(data, c)
		return err
	case ".yaml", ".yml":
		return yaml.Unmarshal([]byte(data), c)
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} with the variable's value, empty when unset
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func (c *Config) parseDurations() error {
	if c.Anchor.RetryIntervalRaw == "" {
		return nil
	}
	d, err := time.ParseDuration(c.Anchor.RetryIntervalRaw)
	if err != nil {
		return fmt.Errorf("parsing retry_interval %q: %w", c.Anchor.RetryIntervalRaw, err)
	}
	c.Anchor.RetryInterval = d
	return nil
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	if c.Bladder.Capacity <= 0 {
		return fmt.Errorf("bladder.capacity must be positive, got %g", c.Bladder.Capacity)
	}
	if c.Bladder.DischargeRate < 0 {
		return fmt.Errorf("bladder.discharge_rate must not be negative, got %g", c.Bladder.DischargeRate)
	}
	if c.Bladder.RechargeRate < 0 {
		return fmt.Errorf("bladder.recharge_rate must not be negative, got %g", c.Bladder.RechargeRate)
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 1 {
		return fmt.Errorf("audio.volume must be within [0, 1], got %g", c.Audio.Volume)
	}
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for backend %q", c.Storage.Backend)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("storage.backend %q is not one of file, sqlite, memory", c.Storage.Backend)
	}
	if c.Anchor.RetryAttempts <= 0 {
		return fmt.Errorf("anchor.retry_attempts must be positive, got %d", c.Anchor.RetryAttempts)
	}
	if c.Anchor.RetryInterval <= 0 {
		return fmt.Errorf("anchor.retry_interval must be positive, got %s", c.Anchor.RetryInterval)
	}
	return nil
}

// ClampedForce returns the configured force clamped to the supported range
func (b BladderConfig) ClampedForce() float64 {
	switch {
	case b.BuoyancyForce < parameter.MinBuoyancyForce:
		return parameter.MinBuoyancyForce
	case b.BuoyancyForce > parameter.MaxBuoyancyForce:
		return parameter.MaxBuoyancyForce
	default:
		return b.BuoyancyForce
	}
}
