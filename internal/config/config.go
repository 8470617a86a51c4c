package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/noah-isme/moderation-api/internal/statistics"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                 string
	AppEnv                  string
	AppPort                 string
	DatabaseURL             string
	RedisURL                string
	JWTSecret               string
	NATSURL                 string
	NATSSubject             string
	StatisticsCacheTTL      time.Duration
	StatisticsFormula       statistics.Formula
	StatisticsStrictCount   bool
	ModerationTolerance     float64
	SubmitRateLimit         int
	SubmitRateLimitInterval time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()
	return fromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("MODERATION")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Moderation API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("nats.subject", "moderation.events")
	v.SetDefault("statistics.cache_ttl", "5m")
	v.SetDefault("statistics.formula", string(statistics.FormulaSample))
	v.SetDefault("statistics.strict_count", false)
	v.SetDefault("moderation.tolerance", 0.05)
	v.SetDefault("rate_limit.submit", 30)
	v.SetDefault("rate_limit.submit_interval", "1m")
	return v
}

func fromViper(v *viper.Viper) (Config, error) {
	ttl, err := time.ParseDuration(v.GetString("statistics.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid statistics cache ttl: %w", err)
	}

	formula, err := statistics.ParseFormula(v.GetString("statistics.formula"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid statistics formula: %w", err)
	}

	interval, err := time.ParseDuration(v.GetString("rate_limit.submit_interval"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid submit rate limit interval: %w", err)
	}

	cfg := Config{
		AppName:                 v.GetString("app.name"),
		AppEnv:                  v.GetString("app.env"),
		AppPort:                 v.GetString("app.port"),
		DatabaseURL:             v.GetString("database.url"),
		RedisURL:                v.GetString("redis.url"),
		JWTSecret:               v.GetString("jwt.secret"),
		NATSURL:                 v.GetString("nats.url"),
		NATSSubject:             v.GetString("nats.subject"),
		StatisticsCacheTTL:      ttl,
		StatisticsFormula:       formula,
		StatisticsStrictCount:   v.GetBool("statistics.strict_count"),
		ModerationTolerance:     v.GetFloat64("moderation.tolerance"),
		SubmitRateLimit:         v.GetInt("rate_limit.submit"),
		SubmitRateLimitInterval: interval,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}
	if cfg.ModerationTolerance <= 0 || cfg.ModerationTolerance >= 1 {
		return Config{}, fmt.Errorf("moderation tolerance must be between 0 and 1, got %v", cfg.ModerationTolerance)
	}

	return cfg, nil
}
