package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StrategyConfig selects the decision/job strategy pair and carries its
// parameters, optionally read from a YAML file:
//
//	strategy: sweep
//	params:
//	  objective: rosenbrock
//	  points: 8
type StrategyConfig struct {
	Name   string                 `yaml:"strategy"`
	Params map[string]interface{} `yaml:"params"`
}

func NewStrategyConfig() *StrategyConfig {
	return &StrategyConfig{
		Name:   getEnv("STEER_STRATEGY", "sweep"),
		Params: map[string]interface{}{},
	}
}

// LoadFile overlays the YAML file at path onto c.
func (c *StrategyConfig) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read strategy file: %w", err)
	}
	return c.LoadYAML(data)
}

func (c *StrategyConfig) LoadYAML(data []byte) error {
	var overlay StrategyConfig
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("failed to parse strategy file: %w", err)
	}
	if overlay.Name != "" {
		c.Name = overlay.Name
	}
	if c.Params == nil {
		c.Params = map[string]interface{}{}
	}
	for k, v := range overlay.Params {
		c.Params[k] = v
	}
	return nil
}

func (c *StrategyConfig) Int(key string, fallback int) int {
	switch v := c.param(key).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}

func (c *StrategyConfig) Float(key string, fallback float64) float64 {
	switch v := c.param(key).(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float64:
		return v
	}
	return fallback
}

func (c *StrategyConfig) String(key string, fallback string) string {
	if v, ok := c.param(key).(string); ok {
		return v
	}
	return fallback
}

func (c *StrategyConfig) param(key string) interface{} {
	if c == nil || c.Params == nil {
		return nil
	}
	return c.Params[key]
}
