package config

import "time"

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Risk     RiskConfig     `mapstructure:"risk"`
	ML       MLConfig       `mapstructure:"ml"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// RiskConfig holds the rule thresholds and fusion parameters
type RiskConfig struct {
	// Rule thresholds
	MaxTransactionAmount float64 `mapstructure:"max_transaction_amount"`
	MaxVelocityPerMinute int64   `mapstructure:"max_velocity_per_minute"`
	MaxVelocityPerHour   int64   `mapstructure:"max_velocity_per_hour"`
	NightTimeStart       int     `mapstructure:"night_time_start"`
	NightTimeEnd         int     `mapstructure:"night_time_end"`

	// Reserved: defined for callers, consumed by no rule yet
	MaxDailyTransactions int `mapstructure:"max_daily_transactions"`

	// Decision thresholds
	FraudThreshold float64 `mapstructure:"fraud_threshold"`
	RiskThreshold  float64 `mapstructure:"risk_threshold"`

	// Fusion weights, must sum to 1
	RuleWeight  float64 `mapstructure:"rule_weight"`
	ModelWeight float64 `mapstructure:"model_weight"`

	// Per-request scoring deadline
	ScoringTimeout time.Duration `mapstructure:"scoring_timeout"`
}

// MLConfig holds the learned scorer configuration
type MLConfig struct {
	ModelPath string `mapstructure:"model_path"`
	Enabled   bool   `mapstructure:"enabled"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "risk_user",
			Password:        "",
			Name:            "risk_engine",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Host:         "localhost",
			Port:         6379,
			Password:     "",
			DB:           0,
			PoolSize:     10,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Risk: RiskConfig{
			MaxTransactionAmount: 1_000_000,
			MaxVelocityPerMinute: 5,
			MaxVelocityPerHour:   20,
			NightTimeStart:       23,
			NightTimeEnd:         5,
			MaxDailyTransactions: 50,
			FraudThreshold:       0.7,
			RiskThreshold:        0.5,
			RuleWeight:           0.6,
			ModelWeight:          0.4,
			ScoringTimeout:       5 * time.Second,
		},
		ML: MLConfig{
			ModelPath: "./models",
			Enabled:   true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
