package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/stationrisk/core/metrics"
	"github.com/kilianp07/stationrisk/infra/mqtt"
)

type Config struct {
	Fleet      FleetConfig      `json:"fleet"`
	Simulation SimulationConfig `json:"simulation"`
	Models     ModelsConfig     `json:"models"`
	API        APIConfig        `json:"api"`
	Metrics    metrics.Config   `json:"metrics"`
	MQTT       mqtt.Config      `json:"mqtt"`
	Logging    LoggingConfig    `json:"logging"`
	Sentry     SentryConfig     `json:"sentry"`
}

// Load reads the YAML or JSON file at path, applies K_ environment
// overrides (K_FLEET__SAMPLE_SIZE sets fleet.sample_size) and validates the
// result. A .env file in the working directory is loaded first when
// present. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Fleet.SetDefaults()
	c.Simulation.SetDefaults()
	c.API.SetDefaults()
	c.MQTT.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks every section and reports the first failure.
func (c Config) Validate() error {
	validators := []struct {
		name string
		fn   func() error
	}{
		{"fleet", c.Fleet.Validate},
		{"simulation", c.Simulation.Validate},
		{"models", c.Models.Validate},
		{"api", c.API.Validate},
		{"mqtt", c.MQTT.Validate},
		{"logging", c.Logging.Validate},
		{"sentry", c.Sentry.Validate},
	}
	for _, v := range validators {
		if err := v.fn(); err != nil {
			return fmt.Errorf("%s: %w", v.name, err)
		}
	}
	return nil
}
