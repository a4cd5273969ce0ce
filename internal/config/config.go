package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config is the root application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Store       StoreConfig       `yaml:"store"`
	History     HistoryConfig     `yaml:"history"`
	Log         LogConfig         `yaml:"log"`
	Auth        AuthConfig        `yaml:"auth"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	CORS        CORSConfig        `yaml:"cors"`
	OpenLibrary OpenLibraryConfig `yaml:"open_library"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"             env:"APP_ADDR"                env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"5s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"   env:"SERVER_MAX_BODY_BYTES"   env-default:"1048576"`
	EnableHSTS      bool          `yaml:"enable_hsts"      env:"ENABLE_HSTS"             env-default:"false"`
}

// StoreConfig selects and configures the record store backend.
type StoreConfig struct {
	Driver       string        `yaml:"driver"        env:"STORE_DRIVER"        env-default:"sqlite"`
	SQLitePath   string        `yaml:"sqlite_path"   env:"SQLITE_PATH"         env-default:"data/library.db"`
	PostgresDSN  string        `yaml:"postgres_dsn"  env:"DB_DSN"`
	QueryTimeout time.Duration `yaml:"query_timeout" env:"STORE_QUERY_TIMEOUT" env-default:"3s"`
}

// HistoryConfig bounds the undo stack. MaxDepth 0 means unbounded.
type HistoryConfig struct {
	MaxDepth int `yaml:"max_depth" env:"HISTORY_MAX_DEPTH" env-default:"0"`
}

type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

// AuthConfig guards mutating routes when JWTSecret is set.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"token_ttl"  env:"AUTH_TOKEN_TTL"  env-default:"24h"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"   env:"RATE_LIMIT_RPS"   env-default:"20"`
	Burst int     `yaml:"burst" env:"RATE_LIMIT_BURST" env-default:"40"`
}

type CORSConfig struct {
	AllowedOrigins string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"http://localhost:3000"`
}

// Origins splits AllowedOrigins on commas.
func (c CORSConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

type OpenLibraryConfig struct {
	Enabled    bool   `yaml:"enabled"     env:"OPENLIBRARY_ENABLED"     env-default:"true"`
	UserAgent  string `yaml:"user_agent"  env:"OPENLIBRARY_USER_AGENT"  env-default:"booklibrary/1.0"`
	RPS        int    `yaml:"rps"         env:"OPENLIBRARY_RPS"         env-default:"2"`
	MaxRetries int    `yaml:"max_retries" env:"OPENLIBRARY_MAX_RETRIES" env-default:"3"`
}

// LoadEnvFiles loads .env and .env.local. Variables already present in the
// environment win.
func LoadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

// Load reads configuration from an optional YAML file and the environment.
// Priority: ENV > YAML > env-default tags. The YAML path comes from
// CONFIG_PATH; when unset and ./config.yaml is absent only ENV is read.
func Load() (*Config, error) {
	LoadEnvFiles()

	var cfg Config
	path := os.Getenv("CONFIG_PATH")
	explicitPath := path != ""
	if !explicitPath {
		path = "./config.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if explicitPath {
		return nil, fmt.Errorf("config: file %s: %w", path, err)
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate checks cross-field rules after loading.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("store.postgres_dsn (DB_DSN) is required for the postgres driver")
		}
	default:
		return fmt.Errorf("store.driver must be sqlite or postgres (got %q)", c.Store.Driver)
	}
	if c.Store.QueryTimeout <= 0 {
		return fmt.Errorf("store.query_timeout must be > 0 (got %v)", c.Store.QueryTimeout)
	}
	if c.History.MaxDepth < 0 {
		return fmt.Errorf("history.max_depth must be >= 0 (got %d)", c.History.MaxDepth)
	}
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(c.Auth.JWTSecret))
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate_limit.rps and rate_limit.burst must be > 0")
	}
	if c.OpenLibrary.Enabled && c.OpenLibrary.RPS <= 0 {
		return fmt.Errorf("open_library.rps must be > 0 (got %d)", c.OpenLibrary.RPS)
	}
	return nil
}
