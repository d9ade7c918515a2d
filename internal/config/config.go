package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Database struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     int    `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD"`
	Database string `env:"DB_NAME" envDefault:"qr_dine"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
	MaxConns int    `env:"DB_MAX_CONNS" envDefault:"10"`
}

type RabbitMQ struct {
	Host     string `env:"RABBITMQ_HOST" envDefault:"localhost"`
	Port     int    `env:"RABBITMQ_PORT" envDefault:"5672"`
	User     string `env:"RABBITMQ_USER" envDefault:"guest"`
	Password string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
	VHost    string `env:"RABBITMQ_VHOST" envDefault:"/"`
}

type Config struct {
	HTTPPort        int   `env:"HTTP_PORT" envDefault:"3000"`
	MaxConcurrent   int   `env:"MAX_CONCURRENT" envDefault:"50"`
	SessionTTLHours int   `env:"SESSION_TTL_HOURS" envDefault:"2"`
	ServiceFeeBps   int64 `env:"SERVICE_FEE_BPS" envDefault:"1000"`

	Database Database
	RabbitMQ RabbitMQ
}

// Load reads configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.SessionTTLHours <= 0 {
		return Config{}, fmt.Errorf("SESSION_TTL_HOURS must be positive")
	}
	if cfg.ServiceFeeBps < 0 {
		return Config{}, fmt.Errorf("SERVICE_FEE_BPS must not be negative")
	}
	return cfg, nil
}
