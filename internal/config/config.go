package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const defaultDevSecret = "dev-secret-change-me-dev-secret-change-me"

type Config struct {
	HTTPPort       string
	DatabaseDSN    string // empty selects the local sqlite file
	SQLitePath     string
	JWTSecret      string
	JWTTTL         time.Duration
	CORSOrigins    string
	Env            string
	WindowMonths   int
	ForecastMonths int
}

// Analytics defaults passed to the dashboard composer.
type Analytics struct {
	WindowMonths   int
	ForecastMonths int
}

// Load reads the process environment, after merging an optional .env file.
func Load() (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		DatabaseDSN:    getEnv("DATABASE_DSN", ""),
		SQLitePath:     getEnv("SQLITE_PATH", "doflow.db"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		CORSOrigins:    getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		Env:            getEnv("APP_ENV", "development"),
		WindowMonths:   getEnvInt("ANALYTICS_WINDOW_MONTHS", 12),
		ForecastMonths: getEnvInt("ANALYTICS_FORECAST_MONTHS", 6),
	}

	ttl, err := time.ParseDuration(getEnv("JWT_TTL", "24h"))
	if err != nil {
		return nil, &Error{Key: "JWT_TTL", Reason: err.Error()}
	}
	cfg.JWTTTL = ttl

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.DatabaseDSN == "" {
		log.Warn().Str("path", cfg.SQLitePath).Msg("DATABASE_DSN not set, using local sqlite database")
	}
	if cfg.CORSOrigins == "http://localhost:5173" {
		log.Warn().Msg("CORS_ALLOWED_ORIGINS uses the development default")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development" || c.Env == "dev"
}

func (c *Config) Analytics() Analytics {
	return Analytics{WindowMonths: c.WindowMonths, ForecastMonths: c.ForecastMonths}
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		if !c.IsDev() {
			return &Error{Key: "JWT_SECRET", Reason: "required outside development"}
		}
		log.Warn().Msg("JWT_SECRET not set, using the development secret")
		c.JWTSecret = defaultDevSecret
	}
	if len(c.JWTSecret) < 32 {
		return &Error{Key: "JWT_SECRET", Reason: "must be at least 32 characters"}
	}
	if c.WindowMonths < 1 {
		return &Error{Key: "ANALYTICS_WINDOW_MONTHS", Reason: "must be >= 1"}
	}
	if c.ForecastMonths < 1 {
		return &Error{Key: "ANALYTICS_FORECAST_MONTHS", Reason: "must be >= 1"}
	}
	if c.JWTTTL <= 0 {
		return &Error{Key: "JWT_TTL", Reason: "must be positive"}
	}
	return nil
}

// Error reports an invalid configuration value.
type Error struct {
	Key    string
	Reason string
}

func (e *Error) Error() string {
	return "config: " + e.Key + ": " + e.Reason
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}
