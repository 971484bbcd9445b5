package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all relay configuration, read once at startup.
type Config struct {
	Environment string
	ServiceName string
	Server      ServerConfig
	Logging     LoggingConfig
	Gotify      GotifyConfig
	Relay       RelayConfig
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CertFile     string
	KeyFile      string

	// AutoCertDomain enables ACME certificates for that host. Challenges are
	// answered on :80.
	AutoCertDomain string
	AutoCertEmail  string
	// CertDir caches ACME and self-signed certificates.
	CertDir    string
	SelfSigned bool
}

type LoggingConfig struct {
	Level  string
	Format string
}

// GotifyConfig is the default destination. Requests may override it with
// url/token query parameters.
type GotifyConfig struct {
	URL     string
	Token   string
	Timeout time.Duration
}

type RelayConfig struct {
	SharedSecret string
	Timezone     string
}

var envFiles = []string{".env", ".env.local"}

// LoadConfig loads .env files (without overriding the process environment)
// and builds a Config from environment variables.
func LoadConfig() *Config {
	for _, file := range envFiles {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		_ = godotenv.Load(file)
	}

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServiceName: getEnv("SERVICE_NAME", "notify-relay"),
		Server: ServerConfig{
			Port:         getEnvInt("PORT", 3000),
			ReadTimeout:  getEnvDuration("READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvDuration("IDLE_TIMEOUT", 60*time.Second),
			CertFile:     os.Getenv("TLS_CERT_FILE"),
			KeyFile:      os.Getenv("TLS_KEY_FILE"),

			AutoCertDomain: os.Getenv("TLS_AUTOCERT_DOMAIN"),
			AutoCertEmail:  os.Getenv("TLS_AUTOCERT_EMAIL"),
			CertDir:        getEnv("TLS_CERT_DIR", "certs"),
			SelfSigned:     getEnvBool("TLS_SELF_SIGNED", false),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
		Gotify: GotifyConfig{
			URL:     os.Getenv("GOTIFY_URL"),
			Token:   os.Getenv("GOTIFY_TOKEN"),
			Timeout: getEnvDuration("GOTIFY_TIMEOUT", 10*time.Second),
		},
		Relay: RelayConfig{
			SharedSecret: os.Getenv("RELAY_SHARED_SECRET"),
			Timezone:     getEnv("TIMEZONE", "Local"),
		},
	}
}

// Validate reports configuration that would prevent the server from starting.
// A missing Gotify URL/token is not an error: requests can supply their own.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid PORT %d", c.Server.Port))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("invalid TIMEZONE %q: %w", c.Relay.Timezone, err))
	}
	if (c.Server.CertFile == "") != (c.Server.KeyFile == "") {
		errs = append(errs, errors.New("TLS_CERT_FILE and TLS_KEY_FILE must be set together"))
	}
	if c.Server.SelfSigned && c.IsProduction() {
		errs = append(errs, errors.New("TLS_SELF_SIGNED is not allowed in production"))
	}
	if c.Gotify.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("invalid GOTIFY_TIMEOUT %s", c.Gotify.Timeout))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) TLSEnabled() bool {
	return (c.Server.CertFile != "" && c.Server.KeyFile != "") || c.Server.AutoCertDomain != "" || c.Server.SelfSigned
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// Location resolves the timezone used to render upstream timestamps.
func (c *Config) Location() (*time.Location, error) {
	if c.Relay.Timezone == "" || c.Relay.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Relay.Timezone)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
