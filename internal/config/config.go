// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Fetch    FetchConfig
	Data     DataConfig
	Database DatabaseConfig
	LLM      LLMConfig
	Session  SessionConfig
	Profile  ProfileConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout covers profile generation, which fetches every profile
	// indicator and waits for the narrative (default: 5m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"5m"`

	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for API requests (default: 2m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"2m"`

	// ProfileTimeout is the middleware timeout for profile endpoints (default: 5m)
	ProfileTimeout time.Duration `env:"SERVER_PROFILE_TIMEOUT" default:"5m"`
}

// FetchConfig holds settings for requests to the statistics providers.
type FetchConfig struct {
	// Timeout bounds every upstream request (default: 30s)
	Timeout time.Duration `env:"FETCH_TIMEOUT" default:"30s"`

	// UserAgent overrides the browser-like default agent
	UserAgent string `env:"FETCH_USER_AGENT"`

	// MaxBodyBytes caps a response body (default: 128MB)
	MaxBodyBytes int64 `env:"FETCH_MAX_BODY_BYTES" default:"134217728"`
}

// DataConfig points at reference data and offline datasets.
type DataConfig struct {
	// ReferenceSource selects where the catalog and country table come from:
	// "file" or "postgres" (default: file)
	ReferenceSource string `env:"REFERENCE_SOURCE" default:"file"`

	// CatalogPath is the indicator catalog, CSV or XLSX
	CatalogPath string `env:"INDICATOR_CATALOG" default:"data/Indicators.xlsx"`

	// CountriesPath is the country reference table, CSV or XLSX
	CountriesPath string `env:"COUNTRY_TABLE" default:"data/countries_WHO_Euro.xlsx"`

	HESRIWorkbook1 string `env:"HESRI_WORKBOOK_1" default:"data/HESR1.xlsx"`
	HESRIWorkbook2 string `env:"HESRI_WORKBOOK_2" default:"data/HESR2.xlsx"`

	// OECDOfflineCSV is read when the OECD API fails; empty disables the fallback
	OECDOfflineCSV string `env:"OECD_OFFLINE_CSV"`

	// OECDOfflineUnit is the "Unit of measure" kept from the offline CSV
	OECDOfflineUnit string `env:"OECD_OFFLINE_UNIT" default:"Percentage of GDP"`

	// ReloadCron reloads reference data on a cron schedule; empty disables
	ReloadCron string `env:"REFERENCE_RELOAD_CRON"`
}

// DatabaseConfig holds database connection settings.
// Only used when REFERENCE_SOURCE=postgres.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// LLMConfig holds settings for the country profile narrative.
type LLMConfig struct {
	// APIKey enables narratives; empty leaves profile reports without one
	APIKey string `env:"OPENAI_API_KEY" envAlt:"LLM_API_KEY"`

	// BaseURL targets an OpenAI-compatible endpoint other than api.openai.com
	BaseURL string `env:"OPENAI_BASE_URL"`

	Model string `env:"LLM_MODEL" default:"gpt-4.1-mini"`

	Timeout time.Duration `env:"LLM_TIMEOUT" default:"2m"`

	Temperature float64 `env:"LLM_TEMPERATURE" default:"0.3"`
}

// SessionConfig holds browser session settings.
type SessionConfig struct {
	CookieName string `env:"SESSION_COOKIE" default:"hd_session"`

	// CookieSecure sets the Secure attribute; enable behind HTTPS
	CookieSecure bool `env:"SESSION_COOKIE_SECURE" default:"false"`

	// TTL is how long an idle session keeps its cache (default: 2h)
	TTL time.Duration `env:"SESSION_TTL" default:"2h"`

	// PruneCron schedules removal of idle sessions
	PruneCron string `env:"SESSION_PRUNE_CRON" default:"@every 10m"`
}

// ProfileConfig bounds concurrent country profile generation.
type ProfileConfig struct {
	// MaxConcurrent is the number of profiles built at once (default: 2)
	MaxConcurrent int `env:"PROFILE_MAX_CONCURRENT" default:"2"`

	// MaxWait is how long a request waits for a free slot (default: 30s)
	MaxWait time.Duration `env:"PROFILE_MAX_WAIT" default:"30s"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ProfileLimit is requests per minute for profile endpoints (default: 5)
	ProfileLimit int `env:"RATE_LIMIT_PROFILE" default:"5"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// UsePostgres reports whether reference data is read from the database.
func (c *DataConfig) UsePostgres() bool {
	return c.ReferenceSource == "postgres"
}
