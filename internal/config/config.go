package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

type App struct {
	ENV string `env:"APP_ENV" envDefault:"production"`
}

type Log struct {
	Level     string `env:"LOG_LEVEL" envDefault:"info"`
	Format    string `env:"LOG_FORMAT" envDefault:"text"`
	Component string `env:"LOG_COMPONENT" envDefault:"match_server"`
	Source    bool   `env:"LOG_SOURCE"`
}

type DB struct {
	// Driver selects the gorm dialector: mysql, postgres or sqlite.
	Driver   string `env:"DB_DRIVER" envDefault:"mysql"`
	DSN      string `env:"DB_DSN"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT"`
	User     string `env:"DB_USER" envDefault:"root"`
	Password string `env:"DB_PASSWORD" envDefault:"root"`
	Name     string `env:"DB_NAME" envDefault:"muzz"`
	LogLevel string `env:"DB_LOG_LEVEL" envDefault:"warn"`
}

type Redis struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	// Broadcast fans realtime events out through Redis pub/sub so that
	// several server instances can share one presence space.
	Broadcast bool `env:"REDIS_BROADCAST"`
}

type GRPC struct {
	Host string `env:"GRPC_HOST" envDefault:"127.0.0.1"`
	Port string `env:"GRPC_PORT" envDefault:"50051"`
}

type HTTP struct {
	Host        string   `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port        string   `env:"HTTP_PORT" envDefault:"3000"`
	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`
}

type Auth struct {
	JWTSecret string `env:"JWT_SECRET"`
	Issuer    string `env:"JWT_ISSUER" envDefault:"muzz"`
}

type Config struct {
	App   App
	Log   Log
	DB    DB
	Redis Redis
	GRPC  GRPC
	HTTP  HTTP
	Auth  Auth
}

// New reads the configuration from the environment.
func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.DB.Driver = strings.ToLower(strings.TrimSpace(cfg.DB.Driver))
	if cfg.DB.DSN == "" {
		dsn, err := buildDSN(cfg.DB)
		if err != nil {
			return nil, err
		}
		cfg.DB.DSN = dsn
	}

	if cfg.Auth.JWTSecret == "" && !cfg.IsDevelopment() {
		return nil, fmt.Errorf("JWT_SECRET is required outside development")
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "dev-secret-change-me"
	}

	return cfg, nil
}

// IsDevelopment reports whether the app runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.App.ENV, "development")
}

func buildDSN(d DB) (string, error) {
	switch d.Driver {
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			d.User, d.Password, d.Host, portOr(d.Port, "3306"), d.Name,
		), nil
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			d.Host, portOr(d.Port, "5432"), d.User, d.Password, d.Name,
		), nil
	case "sqlite":
		return d.Name + ".db", nil
	default:
		return "", fmt.Errorf("unsupported DB_DRIVER %q", d.Driver)
	}
}

func portOr(p, def string) string {
	if p == "" {
		return def
	}
	return p
}
