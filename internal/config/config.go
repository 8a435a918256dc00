package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration, read from the environment (and an
// optional .env file) once at startup.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	WebSocket WebSocketConfig
	CORS      CORSConfig
	Redis     RedisConfig
	SLA       SLAConfig
	Logging   LoggingConfig
	App       AppConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL             string
	MigrationsDir   string // empty disables migrations at startup
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// JWTConfig holds JWT configuration. Tokens are issued by the identity
// provider; AccessTokenTTL only applies to locally minted tokens.
type JWTConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
	AdminRPS          float64 // Stricter limit for tenant and admin endpoints
	AdminBurst        int
}

// WebSocketConfig holds WebSocket configuration
type WebSocketConfig struct {
	AllowedOrigins  []string
	ReadBufferSize  int
	WriteBufferSize int
	PingInterval    time.Duration
	PongWait        time.Duration
}

// CORSConfig holds cross-origin configuration for the REST API
type CORSConfig struct {
	AllowedOrigins   []string
	AllowCredentials bool
	MaxAge           int
}

// RedisConfig holds Redis configuration. An empty Addr selects the
// in-memory breach ledger.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SLAConfig holds breach monitor and tenant provisioning settings
type SLAConfig struct {
	SweepInterval   time.Duration
	BreachLedgerTTL time.Duration
	DefaultsFile    string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

// Load reads the configuration and validates it. A missing .env file is
// fine; a malformed one is not.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            env("SERVER_PORT", ":8080", parseString),
			ReadTimeout:     env("SERVER_READ_TIMEOUT", 15*time.Second, time.ParseDuration),
			WriteTimeout:    env("SERVER_WRITE_TIMEOUT", 15*time.Second, time.ParseDuration),
			IdleTimeout:     env("SERVER_IDLE_TIMEOUT", time.Minute, time.ParseDuration),
			ShutdownTimeout: env("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second, time.ParseDuration),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MigrationsDir:   env("DB_MIGRATIONS_DIR", "migrations", parseString),
			MaxOpenConns:    env("DB_MAX_OPEN_CONNS", 25, strconv.Atoi),
			MaxIdleConns:    env("DB_MAX_IDLE_CONNS", 5, strconv.Atoi),
			ConnMaxLifetime: env("DB_CONN_MAX_LIFETIME", 5*time.Minute, time.ParseDuration),
			ConnMaxIdleTime: env("DB_CONN_MAX_IDLE_TIME", 5*time.Minute, time.ParseDuration),
		},
		JWT: JWTConfig{
			Secret:         os.Getenv("JWT_SECRET"),
			Issuer:         os.Getenv("JWT_ISSUER"),
			AccessTokenTTL: env("JWT_ACCESS_TOKEN_TTL", time.Hour, time.ParseDuration),
		},
		RateLimit: RateLimitConfig{
			Enabled:           env("RATE_LIMIT_ENABLED", true, strconv.ParseBool),
			RequestsPerSecond: env("RATE_LIMIT_RPS", 10.0, parseFloat),
			BurstSize:         env("RATE_LIMIT_BURST", 20, strconv.Atoi),
			AdminRPS:          env("RATE_LIMIT_ADMIN_RPS", 2.0, parseFloat),
			AdminBurst:        env("RATE_LIMIT_ADMIN_BURST", 5, strconv.Atoi),
		},
		WebSocket: WebSocketConfig{
			AllowedOrigins:  env("WS_ALLOWED_ORIGINS", []string{}, parseList),
			ReadBufferSize:  env("WS_READ_BUFFER_SIZE", 1024, strconv.Atoi),
			WriteBufferSize: env("WS_WRITE_BUFFER_SIZE", 1024, strconv.Atoi),
			PingInterval:    env("WS_PING_INTERVAL", 54*time.Second, time.ParseDuration),
			PongWait:        env("WS_PONG_WAIT", time.Minute, time.ParseDuration),
		},
		CORS: CORSConfig{
			AllowedOrigins:   env("CORS_ALLOWED_ORIGINS", []string{"*"}, parseList),
			AllowCredentials: env("CORS_ALLOW_CREDENTIALS", false, strconv.ParseBool),
			MaxAge:           env("CORS_MAX_AGE", 300, strconv.Atoi),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       env("REDIS_DB", 0, strconv.Atoi),
		},
		SLA: SLAConfig{
			SweepInterval:   env("SLA_SWEEP_INTERVAL", time.Minute, time.ParseDuration),
			BreachLedgerTTL: env("SLA_BREACH_LEDGER_TTL", 30*24*time.Hour, time.ParseDuration),
			DefaultsFile:    os.Getenv("SLA_DEFAULTS_FILE"),
		},
		Logging: LoggingConfig{
			Level:  env("LOG_LEVEL", "info", parseString),
			Format: env("LOG_FORMAT", "json", parseString),
		},
		App: AppConfig{
			Name:        env("APP_NAME", "service-desk-sla", parseString),
			Version:     env("APP_VERSION", "dev", parseString),
			Environment: env("APP_ENV", "development", parseString),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(failed bool, msg string) {
		if failed {
			errs = append(errs, errors.New(msg))
		}
	}

	check(c.Database.URL == "", "DATABASE_URL is required")
	check(c.JWT.Secret == "", "JWT_SECRET is required")
	check(c.Database.MaxIdleConns > c.Database.MaxOpenConns,
		"DB_MAX_IDLE_CONNS cannot be greater than DB_MAX_OPEN_CONNS")
	check(c.SLA.SweepInterval <= 0, "SLA_SWEEP_INTERVAL must be positive")
	check(c.SLA.BreachLedgerTTL < c.SLA.SweepInterval,
		"SLA_BREACH_LEDGER_TTL cannot be shorter than SLA_SWEEP_INTERVAL")

	if c.IsProduction() {
		check(len(c.JWT.Secret) < 32, "JWT_SECRET must be at least 32 characters in production")
		check(len(c.WebSocket.AllowedOrigins) == 0, "WS_ALLOWED_ORIGINS must be set in production")
		check(slices.Contains(c.CORS.AllowedOrigins, "*") && c.CORS.AllowCredentials,
			"CORS_ALLOWED_ORIGINS cannot be * when CORS_ALLOW_CREDENTIALS is set")
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("configuration errors: %w", err)
	}
	return nil
}

// IsDevelopment reports whether APP_ENV is development.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// env parses key with parse, keeping def when the variable is unset or
// does not parse.
func env[T any](key string, def T, parse func(string) (T, error)) T {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		return def
	}
	return v
}

func parseString(s string) (string, error) { return s, nil }

func parseFloat(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

// parseList splits a comma-separated list, dropping blanks.
func parseList(s string) ([]string, error) {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("empty list")
	}
	return out, nil
}

// String returns a redacted string representation of the config (safe for logging)
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Server: %s, DB: %s, JWT: [REDACTED], RateLimit: %v, Redis: %s, SweepInterval: %s, Environment: %s}",
		c.Server.Port,
		redactURL(c.Database.URL),
		c.RateLimit.Enabled,
		redisMode(c.Redis.Addr),
		c.SLA.SweepInterval,
		c.App.Environment,
	)
}

// redactURL hides the credentials of a database URL.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	if _, host, ok := strings.Cut(raw, "@"); ok {
		return "[REDACTED]@" + host
	}
	return "[REDACTED]"
}

func redisMode(addr string) string {
	if addr == "" {
		return "memory"
	}
	return addr
}
