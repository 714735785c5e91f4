package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"docseal/internal/infra/crypto"

	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	HTTPAddr       string
	DBDriver       string
	PostgresDSN    string
	SQLitePath     string
	DBMaxOpenConns int

	SigningSecret        string
	VerifyBaseURL        string
	SigningPolicyEnabled bool
	SigningPolicyPath    string

	AdminAPIKey string

	LogLevel  string
	LogFormat string
	LogFile   string

	RetryMaxAttempts int
	RetryBackoffMS   int

	RateLimitRequests      int
	RateLimitWindowSeconds int
	RateLimitFailClosed    bool
	RateLimitMaxKeys       int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ShutdownTimeoutSeconds int
}

var defaults = map[string]any{
	"HTTP_ADDR":                 ":8080",
	"DB_DRIVER":                 DriverPostgres,
	"SQLITE_PATH":               "docseal.db",
	"DB_MAX_OPEN_CONNS":         20,
	"VERIFY_BASE_URL":           "http://localhost:8080/v1/verify",
	"SIGNING_POLICY_ENABLED":    true,
	"LOG_LEVEL":                 "info",
	"LOG_FORMAT":                "json",
	"RETRY_MAX_ATTEMPTS":        3,
	"RETRY_BACKOFF_MS":          25,
	"RATE_LIMIT_REQUESTS":       0,
	"RATE_LIMIT_WINDOW_SECONDS": 60,
	"RATE_LIMIT_FAIL_CLOSED":    false,
	"RATE_LIMIT_MAX_KEYS":       10000,
	"REDIS_DB":                  0,
	"SHUTDOWN_TIMEOUT_SECONDS":  10,
}

// FromEnv reads configuration from the process environment only.
func FromEnv() Config {
	cfg, _ := Load("")
	return cfg
}

// Load reads an optional config file and overlays the environment on top of
// it. Keys in the file use the same upper-case names as the environment.
func Load(path string) (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return fromViper(v), nil
}

func fromViper(v *viper.Viper) Config {
	return Config{
		HTTPAddr:               v.GetString("HTTP_ADDR"),
		DBDriver:               strings.ToLower(strings.TrimSpace(v.GetString("DB_DRIVER"))),
		PostgresDSN:            v.GetString("POSTGRES_DSN"),
		SQLitePath:             v.GetString("SQLITE_PATH"),
		DBMaxOpenConns:         positiveInt(v, "DB_MAX_OPEN_CONNS"),
		SigningSecret:          v.GetString("SIGNING_SECRET"),
		VerifyBaseURL:          v.GetString("VERIFY_BASE_URL"),
		SigningPolicyEnabled:   v.GetBool("SIGNING_POLICY_ENABLED"),
		SigningPolicyPath:      v.GetString("SIGNING_POLICY_PATH"),
		AdminAPIKey:            v.GetString("ADMIN_API_KEY"),
		LogLevel:               v.GetString("LOG_LEVEL"),
		LogFormat:              v.GetString("LOG_FORMAT"),
		LogFile:                v.GetString("LOG_FILE"),
		RetryMaxAttempts:       positiveInt(v, "RETRY_MAX_ATTEMPTS"),
		RetryBackoffMS:         v.GetInt("RETRY_BACKOFF_MS"),
		RateLimitRequests:      v.GetInt("RATE_LIMIT_REQUESTS"),
		RateLimitWindowSeconds: positiveInt(v, "RATE_LIMIT_WINDOW_SECONDS"),
		RateLimitFailClosed:    v.GetBool("RATE_LIMIT_FAIL_CLOSED"),
		RateLimitMaxKeys:       positiveInt(v, "RATE_LIMIT_MAX_KEYS"),
		RedisAddr:              v.GetString("REDIS_ADDR"),
		RedisPassword:          v.GetString("REDIS_PASSWORD"),
		RedisDB:                v.GetInt("REDIS_DB"),
		ShutdownTimeoutSeconds: positiveInt(v, "SHUTDOWN_TIMEOUT_SECONDS"),
	}
}

// positiveInt falls back to the registered default for zero, negative or
// unparsable values.
func positiveInt(v *viper.Viper, key string) int {
	if n := v.GetInt(key); n > 0 {
		return n
	}
	def, _ := defaults[key].(int)
	return def
}

// Validate fails fast on settings the service must not start without. The
// signing secret has no default.
func (c Config) Validate() error {
	var errs []error
	if err := crypto.CheckSecret(c.SigningSecret); err != nil {
		errs = append(errs, fmt.Errorf("SIGNING_SECRET: %w", err))
	}
	switch c.DBDriver {
	case DriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required for the postgres driver"))
		}
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver))
	}
	if _, err := crypto.BuildVerificationURL(c.VerifyBaseURL, "x", "y"); err != nil {
		errs = append(errs, fmt.Errorf("VERIFY_BASE_URL: %w", err))
	}
	return errors.Join(errs...)
}

func (c Config) RetryBackoff() time.Duration {
	if c.RetryBackoffMS <= 0 {
		return 0
	}
	return time.Duration(c.RetryBackoffMS) * time.Millisecond
}

func (c Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}
