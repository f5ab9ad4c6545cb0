package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort   string
	APIRateLimit int

	DatabaseType string
	DatabasePath string
	DatabaseURL  string

	// Zero pool values keep the dialect's defaults
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	DefaultTimezone  string
	InsightsCacheTTL time.Duration

	JWTSecret string
	TokenTTL  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AWSRegion    string
	SESFromEmail string
	SESFromName  string
	AppBaseURL   string

	DigestInterval time.Duration
	DigestTimeout  time.Duration

	LogLevel string
	Debug    bool
}

// fileConfig mirrors the optional TOML file named by CONFIG_FILE.
type fileConfig struct {
	Server struct {
		Port      string `toml:"port"`
		RateLimit int    `toml:"rate_limit"`
	} `toml:"server"`
	Database struct {
		Type string `toml:"type"`
		Path string `toml:"path"`
		URL  string `toml:"url"`

		MaxOpenConns    int      `toml:"max_open_conns"`
		MaxIdleConns    int      `toml:"max_idle_conns"`
		ConnMaxLifetime duration `toml:"conn_max_lifetime"`
	} `toml:"database"`
	Insights struct {
		DefaultTimezone string   `toml:"default_timezone"`
		CacheTTL        duration `toml:"cache_ttl"`
	} `toml:"insights"`
	Auth struct {
		JWTSecret string   `toml:"jwt_secret"`
		TokenTTL  duration `toml:"token_ttl"`
	} `toml:"auth"`
	Redis struct {
		Addr     string `toml:"addr"`
		Password string `toml:"password"`
		DB       int    `toml:"db"`
	} `toml:"redis"`
	Email struct {
		Region    string `toml:"region"`
		FromEmail string `toml:"from_email"`
		FromName  string `toml:"from_name"`
		BaseURL   string `toml:"base_url"`
	} `toml:"email"`
	Digest struct {
		Interval duration `toml:"interval"`
		Timeout  duration `toml:"timeout"`
	} `toml:"digest"`
	Log struct {
		Level string `toml:"level"`
		Debug bool   `toml:"debug"`
	} `toml:"log"`
}

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		ServerPort:       "8080",
		APIRateLimit:     120,
		DatabaseType:     "sqlite",
		DatabasePath:     "./chorequest.db",
		DefaultTimezone:  "UTC",
		InsightsCacheTTL: 10 * time.Minute,
		TokenTTL:         30 * 24 * time.Hour,
		AWSRegion:        "us-east-1",
		SESFromName:      "ChoreQuest",
		AppBaseURL:       "http://localhost:8080",
		DigestInterval:   7 * 24 * time.Hour,
		DigestTimeout:    5 * time.Minute,
		LogLevel:         "info",
	}
}

// Load reads configuration from .env, an optional TOML file named by
// CONFIG_FILE, then environment variables, each layer overriding the last.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.loadEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	var f fileConfig
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	setString(&c.ServerPort, f.Server.Port)
	setInt(&c.APIRateLimit, f.Server.RateLimit)
	setString(&c.DatabaseType, f.Database.Type)
	setString(&c.DatabasePath, f.Database.Path)
	setString(&c.DatabaseURL, f.Database.URL)
	setInt(&c.DBMaxOpenConns, f.Database.MaxOpenConns)
	setInt(&c.DBMaxIdleConns, f.Database.MaxIdleConns)
	setDuration(&c.DBConnMaxLifetime, f.Database.ConnMaxLifetime.Duration)
	setString(&c.DefaultTimezone, f.Insights.DefaultTimezone)
	setDuration(&c.InsightsCacheTTL, f.Insights.CacheTTL.Duration)
	setString(&c.JWTSecret, f.Auth.JWTSecret)
	setDuration(&c.TokenTTL, f.Auth.TokenTTL.Duration)
	setString(&c.RedisAddr, f.Redis.Addr)
	setString(&c.RedisPassword, f.Redis.Password)
	setInt(&c.RedisDB, f.Redis.DB)
	setString(&c.AWSRegion, f.Email.Region)
	setString(&c.SESFromEmail, f.Email.FromEmail)
	setString(&c.SESFromName, f.Email.FromName)
	setString(&c.AppBaseURL, f.Email.BaseURL)
	setDuration(&c.DigestInterval, f.Digest.Interval.Duration)
	setDuration(&c.DigestTimeout, f.Digest.Timeout.Duration)
	setString(&c.LogLevel, f.Log.Level)
	c.Debug = c.Debug || f.Log.Debug
	return nil
}

func (c *Config) loadEnv() {
	c.ServerPort = getEnv("PORT", c.ServerPort)
	c.APIRateLimit = getEnvInt("API_RATE_LIMIT", c.APIRateLimit)
	c.DatabaseType = getEnv("DATABASE_TYPE", c.DatabaseType)
	c.DatabasePath = getEnv("DB_PATH", c.DatabasePath)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", c.DBMaxOpenConns)
	c.DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", c.DBMaxIdleConns)
	c.DBConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", c.DBConnMaxLifetime)
	c.DefaultTimezone = getEnv("DEFAULT_TIMEZONE", c.DefaultTimezone)
	c.InsightsCacheTTL = getEnvDuration("INSIGHTS_CACHE_TTL", c.InsightsCacheTTL)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.TokenTTL = getEnvDuration("TOKEN_TTL", c.TokenTTL)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = getEnvInt("REDIS_DB", c.RedisDB)
	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.SESFromEmail = getEnv("SES_FROM_EMAIL", c.SESFromEmail)
	c.SESFromName = getEnv("SES_FROM_NAME", c.SESFromName)
	c.AppBaseURL = getEnv("APP_BASE_URL", c.AppBaseURL)
	c.DigestInterval = getEnvDuration("DIGEST_INTERVAL", c.DigestInterval)
	c.DigestTimeout = getEnvDuration("DIGEST_TIMEOUT", c.DigestTimeout)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Debug = getEnvBool("DEBUG", c.Debug)
}

// Validate checks values that would otherwise fail later at first use
func (c *Config) Validate() error {
	switch strings.ToLower(c.DatabaseType) {
	case "", "sqlite", "sqlite3", "sqlite-purego", "sqlite-pure", "modernc":
	case "postgres", "postgresql", "mysql":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for database type %s", c.DatabaseType)
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}

	if _, err := time.LoadLocation(c.DefaultTimezone); err != nil {
		return fmt.Errorf("invalid DEFAULT_TIMEZONE %q: %w", c.DefaultTimezone, err)
	}
	if c.DBMaxOpenConns < 0 || c.DBMaxIdleConns < 0 {
		return errors.New("database pool sizes must not be negative")
	}
	if c.DigestTimeout <= 0 {
		return errors.New("DIGEST_TIMEOUT must be positive")
	}
	return nil
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}
