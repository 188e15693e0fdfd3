// Package config loads bridge configuration from a YAML file with
// defaulting and validation. Every field has a working default, so the
// bridge runs with no config file at all.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full bridge configuration.
type Config struct {
	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
		Format string `yaml:"format" default:"json" validate:"oneof=json console"`
	} `yaml:"log"`

	Network struct {
		Name      string `yaml:"name" default:"finney"`
		SubnetUID int    `yaml:"subnet_uid" default:"18" validate:"gte=0"`
	} `yaml:"network"`

	Ledger struct {
		Backend        string   `yaml:"backend" default:"synthetic" validate:"oneof=synthetic substrate"`
		Endpoint       string   `yaml:"endpoint" validate:"required_if=Backend substrate,omitempty,uri"`
		RefreshTimeout Duration `yaml:"refresh_timeout"`

		Synthetic struct {
			TotalMiners int     `yaml:"total_miners" default:"256" validate:"gt=0"`
			ActiveRatio float64 `yaml:"active_ratio" default:"0.8" validate:"gt=0,lte=1"`
			Seed        int64   `yaml:"seed" default:"18"`
		} `yaml:"synthetic"`
	} `yaml:"ledger"`

	Transport struct {
		DropRate    float64  `yaml:"drop_rate" default:"0.2" validate:"gte=0,lte=1"`
		BaseLatency Duration `yaml:"base_latency"`
		MeanJitter  Duration `yaml:"mean_jitter"`
		Seed        int64    `yaml:"seed"`
	} `yaml:"transport"`

	Query struct {
		PeerTimeout    Duration `yaml:"peer_timeout"`
		MaxConcurrency int      `yaml:"max_concurrency" default:"16" validate:"gt=0"`
	} `yaml:"query"`

	Metrics struct {
		Addr string `yaml:"addr"` // empty disables the listener
	} `yaml:"metrics"`
}

// SetDefaults fills duration fields; scalar defaults come from tags.
func (c *Config) SetDefaults() {
	if c.Ledger.RefreshTimeout == 0 {
		c.Ledger.RefreshTimeout = Duration(30 * time.Second)
	}
	if c.Transport.BaseLatency == 0 {
		c.Transport.BaseLatency = Duration(100 * time.Millisecond)
	}
	if c.Transport.MeanJitter == 0 {
		c.Transport.MeanJitter = Duration(200 * time.Millisecond)
	}
	if c.Query.PeerTimeout == 0 {
		c.Query.PeerTimeout = Duration(12 * time.Second)
	}
}

var validate = validator.New()

// Load reads and parses a YAML configuration file, applies defaults and
// env overrides, and validates the result. An empty path yields the
// default configuration.
func Load(path string) (*Config, error) {
	var c Config

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	applyEnv(&c)

	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// applyEnv overrides select fields from environment variables.
func applyEnv(c *Config) {
	if v := os.Getenv("BRIDGE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("BRIDGE_NETWORK"); v != "" {
		c.Network.Name = v
	}
	if v := os.Getenv("BRIDGE_LEDGER_BACKEND"); v != "" {
		c.Ledger.Backend = v
	}
	if v := os.Getenv("BRIDGE_LEDGER_ENDPOINT"); v != "" {
		c.Ledger.Endpoint = v
	}
	if v := os.Getenv("BRIDGE_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
}
