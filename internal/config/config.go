package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port                  string `mapstructure:"PORT"`
	Env                   string `mapstructure:"APP_ENV"`
	LogLevel              string `mapstructure:"LOG_LEVEL"`
	AllowedOrigin         string `mapstructure:"ALLOWED_ORIGIN"`
	DatabaseURL           string `mapstructure:"DATABASE_URL"`
	MigrateOnStart        bool   `mapstructure:"MIGRATE_ON_START"`
	RedisAddr             string `mapstructure:"REDIS_ADDR"`
	RedisPassword         string `mapstructure:"REDIS_PASSWORD"`
	RedisDB               int    `mapstructure:"REDIS_DB"`
	AuthSecret            string `mapstructure:"AUTH_SECRET"`
	AccessTokenTTLMinutes int    `mapstructure:"ACCESS_TOKEN_TTL_MINUTES"`
	ManagerPIN            string `mapstructure:"MANAGER_PIN"`
	MetricsEnabled        bool   `mapstructure:"METRICS_ENABLED"`
}

// Load reads the environment, plus an optional .env file in the working directory.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	// every key needs a default so Unmarshal sees it through AutomaticEnv
	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ALLOWED_ORIGIN", "http://127.0.0.1:3000")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("MIGRATE_ON_START", true)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("AUTH_SECRET", "")
	v.SetDefault("ACCESS_TOKEN_TTL_MINUTES", 480)
	v.SetDefault("MANAGER_PIN", "")
	v.SetDefault("METRICS_ENABLED", true)

	_ = v.ReadInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.AuthSecret = strings.TrimSpace(cfg.AuthSecret)
	cfg.ManagerPIN = strings.TrimSpace(cfg.ManagerPIN)
	if cfg.AccessTokenTTLMinutes < 1 {
		cfg.AccessTokenTTLMinutes = 480
	}
	return cfg, nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}
