package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config holds all settings of the contacts service. The values are taken from the system's
// environment variables, optionally seeded from a .env file in the working directory.
type Config struct {
	Port       string `env:"PORT"        envDefault:"8080"`
	GinLogging string `env:"GIN_LOGGING" envDefault:"on"`
	LogLevel   string `env:"LOG_LEVEL"   envDefault:"info"`
	LogFormat  string `env:"LOG_FORMAT"  envDefault:"json"` // json, text

	DBHost     string `env:"DBHOST" envDefault:"localhost:3306"`
	DBUser     string `env:"DBUSER"`
	DBPassword string `env:"DBPWD"`
	DBName     string `env:"DBNAME" envDefault:"test"`

	// Photo embedding for vCard export
	PhotoFetchTimeout time.Duration `env:"PHOTO_FETCH_TIMEOUT" envDefault:"5s"`
	PhotoMaxBytes     int64         `env:"PHOTO_MAX_BYTES"     envDefault:"5242880"`
	PhotoCacheTTL     time.Duration `env:"PHOTO_CACHE_TTL"     envDefault:"10m"`
	ExportConcurrency int           `env:"EXPORT_CONCURRENCY"  envDefault:"16"`

	// Redis is only used as a photo cache; leave REDIS_ADDR empty to disable it.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	ImageDir      string `env:"IMAGE_DIR"       envDefault:"./images"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
}

// Load reads the .env file if there is one and parses the environment into a Config.
func Load() (*Config, error) {
	// A missing .env file is the normal case in containers.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("could not load .env file: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("could not parse environment variables: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("could not parse PORT env variable: %w", err)
	}
	if c.ExportConcurrency < 1 {
		return errors.New("EXPORT_CONCURRENCY must be at least 1")
	}
	if c.PhotoFetchTimeout <= 0 {
		return errors.New("PHOTO_FETCH_TIMEOUT must be positive")
	}
	if c.PhotoMaxBytes < 1 {
		return errors.New("PHOTO_MAX_BYTES must be positive")
	}
	return nil
}

// DSN returns the MySQL data source name for the configured database. With clientFoundRows an
// UPDATE that leaves a row unchanged still reports it as affected.
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&clientFoundRows=true",
		c.DBUser, c.DBPassword, c.DBHost, c.DBName)
}

// RequestLogging reports whether HTTP request logging is switched on.
func (c *Config) RequestLogging() bool {
	return !strings.EqualFold(c.GinLogging, "off")
}
