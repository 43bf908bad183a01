package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config aggregates all application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Fare     FareConfig     `yaml:"fare"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
}

// ServerConfig holds the HTTP surface settings. A zero RateLimitPerMinute
// disables rate limiting.
type ServerConfig struct {
	Port               string `yaml:"port" env:"PORT" env-default:"8080"`
	BearerToken        string `yaml:"bearer_token" env:"BEARER_TOKEN"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute" env:"RATE_LIMIT_PER_MINUTE" env-default:"60"`
}

type FareConfig struct {
	BaseURL  string        `yaml:"base_url" env:"FARE_BASE_URL" env-default:"https://flights.ctrip.com/itinerary/api/12808/lowestPrice"`
	Timeout  time.Duration `yaml:"timeout" env:"FARE_TIMEOUT" env-default:"10s"`
	Timezone string        `yaml:"timezone" env:"TIMEZONE" env-default:"Asia/Shanghai"`
}

// DatabaseConfig enables the query log when URL is set.
type DatabaseConfig struct {
	URL string `yaml:"url" env:"DATABASE_URL"`
}

// RedisConfig enables route statistics when URL is set.
type RedisConfig struct {
	URL string `yaml:"url" env:"REDIS_URL"`
}

// Load reads path if it exists, then applies environment overrides.
// Priority: env vars > config file > defaults.
func Load(path string) (*Config, error) {
	var cfg Config

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	} else {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("checking config file %s: %w", path, err)
		}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("reading env config: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Fare.BaseURL == "" {
		return errors.New("fare base URL must not be empty")
	}
	if c.Server.RateLimitPerMinute < 0 {
		return fmt.Errorf("rate limit must not be negative, got %d", c.Server.RateLimitPerMinute)
	}
	if _, err := time.LoadLocation(c.Fare.Timezone); err != nil {
		return fmt.Errorf("loading timezone %q: %w", c.Fare.Timezone, err)
	}
	return nil
}

// Location returns the configured timezone used to compute "today".
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Fare.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
