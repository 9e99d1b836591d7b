package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the canary engine.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Engine   EngineConfig   `yaml:"engine"`
	Logging  LoggingConfig  `yaml:"logging"`
	Settings SettingsConfig `yaml:"settings"`
}

// ServerConfig controls the HTTP listeners.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// EngineConfig controls the session's scripted delays. Production values are
// the defaults; local demos can compress them.
type EngineConfig struct {
	TickInterval            time.Duration `yaml:"tickInterval"`
	ShadowTestDuration      time.Duration `yaml:"shadowTestDuration"`
	DecisionTimeout         time.Duration `yaml:"decisionTimeout"`
	AdvisoryAlertOffset     time.Duration `yaml:"advisoryAlertOffset"`
	AdvisoryDetailOffset    time.Duration `yaml:"advisoryDetailOffset"`
	AdvisoryRecommendOffset time.Duration `yaml:"advisoryRecommendOffset"`
	SamplerSeed             int64         `yaml:"samplerSeed"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// SettingsConfig controls durable operator settings storage.
type SettingsConfig struct {
	Path string `yaml:"path"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CANARY_ENGINE_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Engine: EngineConfig{
			TickInterval:            time.Second,
			ShadowTestDuration:      4 * time.Second,
			DecisionTimeout:         60 * time.Second,
			AdvisoryAlertOffset:     500 * time.Millisecond,
			AdvisoryDetailOffset:    1500 * time.Millisecond,
			AdvisoryRecommendOffset: 3 * time.Second,
		},
		Logging:  LoggingConfig{Level: "info", JSON: false},
		Settings: SettingsConfig{Path: "canary-settings.yaml"},
	}
}

func validate(cfg *Config) error {
	if cfg.Engine.TickInterval <= 0 {
		return fmt.Errorf("engine.tickInterval must be positive")
	}
	if cfg.Engine.ShadowTestDuration <= 0 {
		return fmt.Errorf("engine.shadowTestDuration must be positive")
	}
	if cfg.Engine.DecisionTimeout <= 0 {
		return fmt.Errorf("engine.decisionTimeout must be positive")
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CANARY_ENGINE_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("CANARY_ENGINE_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("CANARY_ENGINE_GRACEFUL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.GracefulTimeout = d
		}
	}
	if v := os.Getenv("CANARY_ENGINE_TICK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Engine.TickInterval = d
		}
	}
	if v := os.Getenv("CANARY_ENGINE_SHADOW_TEST_DURATION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Engine.ShadowTestDuration = d
		}
	}
	if v := os.Getenv("CANARY_ENGINE_DECISION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Engine.DecisionTimeout = d
		}
	}
	if v := os.Getenv("CANARY_ENGINE_SAMPLER_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Engine.SamplerSeed = seed
		}
	}
	if v := os.Getenv("CANARY_ENGINE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CANARY_ENGINE_LOG_FORMAT"); strings.EqualFold(v, "json") {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("CANARY_ENGINE_SETTINGS_PATH"); v != "" {
		cfg.Settings.Path = v
	}
}
