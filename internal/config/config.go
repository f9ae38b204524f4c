package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreBadger   = "badger"
	StorePostgres = "postgres"
)

type Config struct {
	Port        string
	Env         string
	LogLevel    string
	CORSOrigins []string

	JWTSecret string
	TokenTTL  time.Duration

	StoreDriver string
	DB          DBConfig
	Badger      BadgerConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	// Driver is the database/sql driver behind GORM: "pgx" or "postgres" (lib/pq).
	Driver string
}

// DSN builds a libpq keyword/value connection string, accepted by both pgx and lib/pq.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode,
	)
}

type BadgerConfig struct {
	Path     string
	InMemory bool
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// .env is optional; the OS environment wins either way
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StorePostgres)),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Driver:   strings.ToLower(getEnv("DB_DRIVER", "pgx")),
		},
		Badger: BadgerConfig{
			Path: getEnv("BADGER_PATH", "./data/badger"),
		},
	}

	ttl, err := time.ParseDuration(getEnv("TOKEN_TTL", "72h"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}
	cfg.TokenTTL = ttl

	if raw := os.Getenv("BADGER_IN_MEMORY"); raw != "" {
		inMemory, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid BADGER_IN_MEMORY: %w", err)
		}
		cfg.Badger.InMemory = inMemory
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	switch c.StoreDriver {
	case StorePostgres:
		if c.DB.Name == "" || c.DB.User == "" {
			return errors.New("DB_NAME and DB_USER are required for the postgres store")
		}
		if c.DB.Driver != "pgx" && c.DB.Driver != "postgres" {
			return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
		}
	case StoreBadger:
		if !c.Badger.InMemory && c.Badger.Path == "" {
			return errors.New("BADGER_PATH is required unless BADGER_IN_MEMORY is set")
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
