// Package config loads the kernel configuration from a YAML file with
// environment overrides for deployment-specific endpoints.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration surface of the decision kernel.
type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`

	Redis struct {
		Addr string `yaml:"addr"`
		Key  string `yaml:"key"`
	} `yaml:"redis"`

	NATS struct {
		URL     string `yaml:"url"`
		Subject string `yaml:"subject"`
		Enabled bool   `yaml:"enabled"`
	} `yaml:"nats"`

	Safety struct {
		MaxPlanLength    int      `yaml:"max_plan_length"`
		ForbiddenActions []string `yaml:"forbidden_actions"`
		CriticalBattery  float64  `yaml:"critical_battery"`
		LowBattery       float64  `yaml:"low_battery"`
		ActionCost       float64  `yaml:"action_cost"`
	} `yaml:"safety"`

	Knowledge struct {
		MatchThreshold float64 `yaml:"match_threshold"`
		RecoveryFloor  float64 `yaml:"recovery_floor"`
		BehaviorFloor  float64 `yaml:"behavior_floor"`
		CheckpointCron string  `yaml:"checkpoint_cron"`
	} `yaml:"knowledge"`

	Retry struct {
		MaxAttempts     int     `yaml:"max_attempts"`
		BaseDelayMS     int     `yaml:"base_delay_ms"`
		MaxDelayMS      int     `yaml:"max_delay_ms"`
		ExponentialBase float64 `yaml:"exponential_base"`
	} `yaml:"retry"`

	Breaker struct {
		FailureThreshold  int `yaml:"failure_threshold"`
		RecoveryTimeoutMS int `yaml:"recovery_timeout_ms"`
		HalfOpenAttempts  int `yaml:"half_open_attempts"`
	} `yaml:"breaker"`

	ActionTimeoutMS int `yaml:"action_timeout_ms"`
}

// Default returns a configuration suitable for local development.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8087
	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.Key = "knowledge:base"
	cfg.NATS.URL = "nats://localhost:4222"
	cfg.NATS.Subject = "kernel.events.decision"
	cfg.Safety.MaxPlanLength = 50
	cfg.Safety.ForbiddenActions = []string{"harm", "damage", "ignore_emergency"}
	cfg.Safety.CriticalBattery = 5.0
	cfg.Safety.LowBattery = 20.0
	cfg.Safety.ActionCost = 2.0
	cfg.Knowledge.MatchThreshold = 0.70
	cfg.Knowledge.RecoveryFloor = 0.50
	cfg.Knowledge.BehaviorFloor = 0.30
	cfg.Knowledge.CheckpointCron = "@every 5m"
	cfg.Retry.MaxAttempts = 3
	cfg.Retry.BaseDelayMS = 1000
	cfg.Retry.MaxDelayMS = 60000
	cfg.Retry.ExponentialBase = 2.0
	cfg.Breaker.FailureThreshold = 5
	cfg.Breaker.RecoveryTimeoutMS = 60000
	cfg.Breaker.HalfOpenAttempts = 1
	cfg.ActionTimeoutMS = 30000
	return cfg
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. A missing file is not an error; the defaults win.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("error reading config %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		c.NATS.URL = v
		c.NATS.Enabled = true
	}
}

// ActionTimeout returns the per-action timeout as a duration.
func (c *Config) ActionTimeout() time.Duration {
	return time.Duration(c.ActionTimeoutMS) * time.Millisecond
}

// BaseDelay returns the retry base delay as a duration.
func (c *Config) BaseDelay() time.Duration {
	return time.Duration(c.Retry.BaseDelayMS) * time.Millisecond
}

// MaxDelay returns the retry delay cap as a duration.
func (c *Config) MaxDelay() time.Duration {
	return time.Duration(c.Retry.MaxDelayMS) * time.Millisecond
}

// RecoveryTimeout returns the breaker recovery timeout as a duration.
func (c *Config) RecoveryTimeout() time.Duration {
	return time.Duration(c.Breaker.RecoveryTimeoutMS) * time.Millisecond
}
