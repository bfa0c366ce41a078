package config

import (
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the service. Every field is fixed at
// startup; nothing here is runtime-mutable.
type Config struct {
	Port          string
	UnitPrice     int64
	RoundDuration time.Duration
	OperatorID    string
	JWTSecret     string
	EntropySeed   string
}

// Load reads configuration from an optional .env file and the environment.
func Load() (*Config, error) {
	// A missing .env file is fine; the environment alone is enough.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Port:          v.GetString("PORT"),
		UnitPrice:     v.GetInt64("UNIT_PRICE"),
		RoundDuration: v.GetDuration("ROUND_DURATION"),
		OperatorID:    v.GetString("OPERATOR_ID"),
		JWTSecret:     v.GetString("JWT_SECRET"),
		EntropySeed:   v.GetString("ENTROPY_SEED"),
	}

	if cfg.OperatorID == "" {
		return nil, errors.New("OPERATOR_ID is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.UnitPrice <= 0 {
		return nil, errors.New("UNIT_PRICE must be positive")
	}
	if cfg.RoundDuration <= 0 {
		return nil, errors.New("ROUND_DURATION must be positive")
	}

	return cfg, nil
}

// setDefaults sets default values for configuration.
func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("UNIT_PRICE", 10)
	v.SetDefault("ROUND_DURATION", "5m")
	v.SetDefault("ENTROPY_SEED", "")
}
