package app

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Env       string `env:"ENV" envDefault:"dev"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	Port      int    `env:"PORT" envDefault:"8080"`

	DatabaseFile string `env:"DASHBOARD_DATABASE_FILE" envDefault:"dashboard.db"`

	// SessionSecret signs dashboard session tokens. Required.
	SessionSecret string        `env:"DASHBOARD_SESSION_SECRET,required"`
	Issuer        string        `env:"DASHBOARD_ISSUER" envDefault:"chatforge-dashboard"`
	SessionTTL    time.Duration `env:"DASHBOARD_SESSION_TTL" envDefault:"12h"`

	// AcceptBaseURL is the dashboard page that redeems invitation links.
	AcceptBaseURL string `env:"DASHBOARD_ACCEPT_BASE_URL" envDefault:"http://localhost:3000/accept"`

	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`
}

// Production reports whether origin enforcement and other prod-only
// checks should be strict.
func (c Config) Production() bool {
	return c.Env == "prod" || c.Env == "production"
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}

	if len(cfg.SessionSecret) < 32 {
		return Config{}, errors.New("DASHBOARD_SESSION_SECRET must be at least 32 bytes")
	}

	return cfg, nil
}
