package config

import (
	"errors"
	"math"
)

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}

	if c.Risk.FraudThreshold < 0 || c.Risk.FraudThreshold > 1 {
		return errors.New("fraud_threshold must be between 0 and 1")
	}

	if c.Risk.RiskThreshold < 0 || c.Risk.RiskThreshold > 1 {
		return errors.New("risk_threshold must be between 0 and 1")
	}

	if c.Risk.RuleWeight < 0 || c.Risk.ModelWeight < 0 {
		return errors.New("fusion weights must be non-negative")
	}

	if math.Abs(c.Risk.RuleWeight+c.Risk.ModelWeight-1) > 1e-9 {
		return errors.New("rule_weight and model_weight must sum to 1")
	}

	if c.Risk.MaxVelocityPerMinute <= 0 {
		return errors.New("max_velocity_per_minute must be positive")
	}

	if c.Risk.NightTimeStart < 0 || c.Risk.NightTimeStart > 23 ||
		c.Risk.NightTimeEnd < 0 || c.Risk.NightTimeEnd > 23 {
		return errors.New("night time hours must be between 0 and 23")
	}

	return nil
}
