// Package config loads the dashboard configuration.
//
// Values are resolved in three layers: built-in defaults, then an optional
// YAML file named by CONFIG_FILE, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redigma/partner-dashboard/pkg/ratelimit"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Pretty bool   `yaml:"pretty"` // console output instead of JSON
}

type UpstreamConfig struct {
	URL     string        `yaml:"url"`     // Apps Script web app; empty fails every fetch
	Timeout time.Duration `yaml:"timeout"` // 0 = transport default
}

type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"` // freshness window
}

type DataConfig struct {
	DateColumn    string   `yaml:"date_column"`
	HiddenColumns []string `yaml:"hidden_columns"` // stripped from headers and exports
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AuthConfig struct {
	Enabled      bool          `yaml:"enabled"`
	SessionTTL   time.Duration `yaml:"session_ttl"`
	CookieSecure bool          `yaml:"cookie_secure"`
	MaxFailures  int           `yaml:"max_failures"` // per account before lockout
	Lockout      time.Duration `yaml:"lockout"`
	RateLimit    int           `yaml:"rate_limit"` // sign-in requests per IP per window
	RateWindow   time.Duration `yaml:"rate_window"`

	// TrustedProxies may name the client through X-Forwarded-For.
	// Addresses or CIDR ranges; empty trusts no forwarding headers.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

type SheetsConfig struct {
	SpreadsheetID       string `yaml:"spreadsheet_id"`
	Sheet               string `yaml:"sheet"`
	ServiceAccountEmail string `yaml:"service_account_email"`
	PrivateKey          string `yaml:"private_key"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Cache    CacheConfig    `yaml:"cache"`
	Data     DataConfig     `yaml:"data"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Sheets   SheetsConfig   `yaml:"sheets"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log:   LogConfig{Level: "info"},
		Cache: CacheConfig{TTL: 5 * time.Minute},
		Data: DataConfig{
			DateColumn:    "Created Time",
			HiddenColumns: []string{"db_system_created_on", "db_pk_pesanan"},
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Auth: AuthConfig{
			Enabled:     true,
			SessionTTL:  30 * 24 * time.Hour,
			MaxFailures: 5,
			Lockout:     15 * time.Minute,
			RateLimit:   20,
			RateWindow:  time.Minute,
		},
		Sheets: SheetsConfig{Sheet: "credentials"},
	}
}

// Load resolves the configuration from CONFIG_FILE and the environment.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var errs []error

	setString(&c.Server.Port, "PORT")
	setString(&c.Log.Level, "LOG_LEVEL")
	errs = append(errs, setBool(&c.Log.Pretty, "LOG_PRETTY"))

	setString(&c.Upstream.URL, "GOOGLE_APPS_SCRIPT_URL")
	errs = append(errs, setDuration(&c.Upstream.Timeout, "UPSTREAM_TIMEOUT"))
	errs = append(errs, setDuration(&c.Cache.TTL, "CACHE_TTL"))

	setString(&c.Data.DateColumn, "DEFAULT_DATE_COLUMN")
	if v := os.Getenv("HIDDEN_COLUMNS"); v != "" {
		c.Data.HiddenColumns = splitList(v)
	}

	setString(&c.Redis.Addr, "REDIS_URL")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	errs = append(errs, setInt(&c.Redis.DB, "REDIS_DB"))

	errs = append(errs,
		setBool(&c.Auth.Enabled, "AUTH_ENABLED"),
		setDuration(&c.Auth.SessionTTL, "SESSION_TTL"),
		setBool(&c.Auth.CookieSecure, "COOKIE_SECURE"),
		setInt(&c.Auth.MaxFailures, "SIGNIN_MAX_FAILURES"),
		setDuration(&c.Auth.Lockout, "SIGNIN_LOCKOUT"),
		setInt(&c.Auth.RateLimit, "SIGNIN_RATE_LIMIT"),
		setDuration(&c.Auth.RateWindow, "SIGNIN_RATE_WINDOW"),
	)
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		c.Auth.TrustedProxies = splitList(v)
	}

	setString(&c.Sheets.SpreadsheetID, "GOOGLE_SHEET_ID")
	setString(&c.Sheets.ServiceAccountEmail, "GOOGLE_SERVICE_ACCOUNT_EMAIL")
	setString(&c.Sheets.PrivateKey, "GOOGLE_PRIVATE_KEY")

	return errors.Join(errs...)
}

// Validate checks values that would make the service misbehave.
// A missing upstream URL is allowed: requests fail with a configuration error.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port must be set"))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache.ttl must be positive"))
	}
	if c.Upstream.Timeout < 0 {
		errs = append(errs, errors.New("upstream.timeout must not be negative"))
	}
	if c.Data.DateColumn == "" {
		errs = append(errs, errors.New("data.date_column must be set"))
	}
	if c.Auth.Enabled {
		if c.Auth.SessionTTL <= 0 {
			errs = append(errs, errors.New("auth.session_ttl must be positive"))
		}
		if c.Auth.MaxFailures <= 0 || c.Auth.RateLimit <= 0 {
			errs = append(errs, errors.New("auth.max_failures and auth.rate_limit must be positive"))
		}
		if _, err := ratelimit.ParseTrustedProxies(c.Auth.TrustedProxies); err != nil {
			errs = append(errs, fmt.Errorf("auth.trusted_proxies: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return ":" + c.Server.Port
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(v string) []string {
	out := []string{}
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
