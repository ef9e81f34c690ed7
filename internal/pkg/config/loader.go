package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	setDefaults(v, cfg)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Config file not found is ok - we use defaults and env vars
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix("RISK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	// Server defaults
	v.SetDefault("server.host", cfg.Server.Host)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.read_timeout", cfg.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", cfg.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", cfg.Server.ShutdownTimeout)

	// Database defaults
	v.SetDefault("database.host", cfg.Database.Host)
	v.SetDefault("database.port", cfg.Database.Port)
	v.SetDefault("database.user", cfg.Database.User)
	v.SetDefault("database.name", cfg.Database.Name)
	v.SetDefault("database.ssl_mode", cfg.Database.SSLMode)

	// Redis defaults
	v.SetDefault("redis.host", cfg.Redis.Host)
	v.SetDefault("redis.port", cfg.Redis.Port)
	v.SetDefault("redis.db", cfg.Redis.DB)
	v.SetDefault("redis.pool_size", cfg.Redis.PoolSize)

	// Risk defaults
	v.SetDefault("risk.max_transaction_amount", cfg.Risk.MaxTransactionAmount)
	v.SetDefault("risk.max_velocity_per_minute", cfg.Risk.MaxVelocityPerMinute)
	v.SetDefault("risk.max_velocity_per_hour", cfg.Risk.MaxVelocityPerHour)
	v.SetDefault("risk.night_time_start", cfg.Risk.NightTimeStart)
	v.SetDefault("risk.night_time_end", cfg.Risk.NightTimeEnd)
	v.SetDefault("risk.fraud_threshold", cfg.Risk.FraudThreshold)
	v.SetDefault("risk.risk_threshold", cfg.Risk.RiskThreshold)
	v.SetDefault("risk.rule_weight", cfg.Risk.RuleWeight)
	v.SetDefault("risk.model_weight", cfg.Risk.ModelWeight)
	v.SetDefault("risk.scoring_timeout", cfg.Risk.ScoringTimeout)

	// ML defaults
	v.SetDefault("ml.model_path", cfg.ML.ModelPath)
	v.SetDefault("ml.enabled", cfg.ML.Enabled)
}
