package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"todotracker/internal/utils"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// durationSeconds parses env as time.Duration: "10s", "5m" or bare number = seconds (e.g. "10" -> 10s).
type durationSeconds time.Duration

func (d *durationSeconds) SetValue(data string) error {
	v, err := utils.ParseDurationEnv(data)
	if err != nil {
		return err
	}
	*d = durationSeconds(v)
	return nil
}

func (d durationSeconds) Duration() time.Duration { return time.Duration(d) }

type Config struct {
	App  AppConfig
	HTTP HTTPConfig
	PG   PGConfig
}

type AppConfig struct {
	Env      string `env:"APP_ENV" env-default:"dev"`
	Version  string `env:"VERSION" env-default:"dev"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`
}

type HTTPConfig struct {
	Port string `env:"HTTP_PORT" env-default:"8080"`

	// "10s", "5m" or a bare number of seconds.
	ReadTimeout  durationSeconds `env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout durationSeconds `env:"HTTP_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout  durationSeconds `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`

	CORSOrigins []string `env:"CORS_ORIGINS" env-default:"*" env-separator:","`
}

type PGConfig struct {
	DSN      string `env:"PG_DSN" env-required:"true"`
	MaxConns int32  `env:"PG_MAX_CONNS" env-default:"10"`
	MinConns int32  `env:"PG_MIN_CONNS" env-default:"2"`
}

// Load reads an optional .env file, then the process environment.
// Variables already set in the environment win over .env.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}
	if cfg.PG.MinConns > cfg.PG.MaxConns {
		return Config{}, fmt.Errorf("PG_MIN_CONNS (%d) exceeds PG_MAX_CONNS (%d)", cfg.PG.MinConns, cfg.PG.MaxConns)
	}
	return cfg, nil
}

// IsProd reports whether the service runs in production mode.
func (c Config) IsProd() bool {
	return strings.EqualFold(c.App.Env, "prod") || strings.EqualFold(c.App.Env, "production")
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c AppConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
