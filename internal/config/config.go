// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds the process settings read from the environment.
type Config struct {
	ListenAddr      string        `env:"MAFIA_LISTEN_ADDR" envDefault:":8080"`
	DatabaseURL     string        `env:"MAFIA_DATABASE_URL"`
	RedisAddr       string        `env:"MAFIA_REDIS_ADDR"`
	RedisQueue      string        `env:"MAFIA_REDIS_QUEUE" envDefault:"mafia:historian:actions"`
	OutboxPath      string        `env:"MAFIA_OUTBOX_PATH" envDefault:"data/outbox.db"`
	SessionCapacity int           `env:"MAFIA_SESSION_CAPACITY" envDefault:"16"`
	RetryInterval   time.Duration `env:"MAFIA_RETRY_INTERVAL" envDefault:"30s"`
	WriteAttempts   int           `env:"MAFIA_WRITE_ATTEMPTS" envDefault:"3"`
	WriteTimeout    time.Duration `env:"MAFIA_WRITE_TIMEOUT" envDefault:"5s"`
	LogLevel        string        `env:"MAFIA_LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"MAFIA_LOG_FORMAT" envDefault:"text"`
}

// Load reads an optional .env file (files override nothing already set in
// the environment) and parses the configuration.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges that env tags cannot express.
func (c Config) Validate() error {
	if c.SessionCapacity < 1 {
		return fmt.Errorf("MAFIA_SESSION_CAPACITY must be positive, got %d", c.SessionCapacity)
	}
	if c.WriteAttempts < 1 {
		return fmt.Errorf("MAFIA_WRITE_ATTEMPTS must be positive, got %d", c.WriteAttempts)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("MAFIA_LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// NewLogger builds the process logger from the level and format settings.
func (c Config) NewLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("MAFIA_LOG_LEVEL: %w", err)
	}
	log := logrus.New()
	log.SetLevel(level)
	if c.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}
