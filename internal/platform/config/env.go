package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Server is the host process configuration.
type Server struct {
	HTTPAddr           string        `env:"WILDTREK_HTTP_ADDR" envDefault:":8080"`
	DBDSN              string        `env:"WILDTREK_DB_DSN"`
	MigrationsDir      string        `env:"WILDTREK_MIGRATIONS_DIR" envDefault:"./db/migrations"`
	TickInterval       time.Duration `env:"WILDTREK_TICK_INTERVAL" envDefault:"1s"`
	MinTickSpacing     time.Duration `env:"WILDTREK_MIN_TICK_SPACING" envDefault:"1s"`
	SweepInterval      time.Duration `env:"WILDTREK_SWEEP_INTERVAL" envDefault:"30s"`
	BaseEventDelay     time.Duration `env:"WILDTREK_BASE_EVENT_DELAY" envDefault:"5m"`
	CompletedRetention time.Duration `env:"WILDTREK_COMPLETED_RETENTION" envDefault:"10m"`
	Seed               int64         `env:"WILDTREK_SEED"`
	ServiceName        string        `env:"WILDTREK_SERVICE_NAME" envDefault:"wildtrek"`
}

func LoadServer() (Server, error) {
	var cfg Server
	if err := ParseEnv(&cfg); err != nil {
		return Server{}, err
	}
	if cfg.TickInterval <= 0 {
		return Server{}, fmt.Errorf("tick interval must be positive, got %s", cfg.TickInterval)
	}
	if cfg.MinTickSpacing < 0 {
		cfg.MinTickSpacing = 0
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 30 * time.Second
	}
	return cfg, nil
}
