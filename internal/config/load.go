package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Load reads configuration from the environment (and an optional .env file)
// and returns a Config. Defaults are applied for everything except
// API_BASE_URL, which has no sensible default.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("APP_NAME", "EMR Session")
	v.SetDefault("ENV", "DEV")
	v.SetDefault("API_BASE_URL", "http://localhost:8000")
	v.SetDefault("LOGIN_PATH", "/login")
	v.SetDefault("STATE_DIR", "./data")
	v.SetDefault("TOKEN_REFRESH_INTERVAL", 4*time.Minute)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("APP_NAME")
	v.BindEnv("ENV")
	v.BindEnv("API_BASE_URL")
	v.BindEnv("LOGIN_PATH")
	v.BindEnv("STATE_DIR")
	v.BindEnv("TOKEN_REFRESH_INTERVAL")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := mainConfig{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.RefreshInterval <= 0 {
		return nil, fmt.Errorf("TOKEN_REFRESH_INTERVAL must be positive, got %s", cfg.RefreshInterval)
	}

	return cfg, nil
}
