package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Database  DatabaseConfig
	Accounts  []AccountConfig
	Redis     RedisConfig
	Server    ServerConfig
	Paging    PagingConfig
	Logging   LoggingConfig
	Telemetry TelemetryConfig
}

// DatabaseConfig holds the embedded cache database configuration
type DatabaseConfig struct {
	Path string
}

// AccountConfig describes one signed-in backend account
type AccountConfig struct {
	Platform string `mapstructure:"platform"`
	Host     string `mapstructure:"host"`
	UserID   string `mapstructure:"user_id"`
	Token    string `mapstructure:"token"`
	// DID is only meaningful for Bluesky accounts
	DID string `mapstructure:"did"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL     string
	Enabled bool
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int
	Host string
}

// PagingConfig holds timeline paging configuration
type PagingConfig struct {
	PageSize int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // "json" or "text"
}

// TelemetryConfig holds observability configuration
type TelemetryConfig struct {
	Enabled           bool
	JaegerURL         string
	PrometheusEnabled bool
	PrometheusPort    int
	ServiceName       string
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	// Set defaults
	setDefaults()

	// Load from environment
	viper.SetEnvPrefix("FLARE")
	viper.AutomaticEnv()

	// Load from config file if exists
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.flare")
	viper.AddConfigPath("/etc/flare")

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found; this is OK if we have env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var accounts []AccountConfig
	if err := viper.UnmarshalKey("accounts", &accounts); err != nil {
		return nil, fmt.Errorf("error reading accounts: %w", err)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Path: getString("database_path", "flare.db"),
		},
		Accounts: accounts,
		Redis: RedisConfig{
			URL:     getString("redis_url", ""),
			Enabled: getString("redis_url", "") != "",
		},
		Server: ServerConfig{
			Port: getInt("http_server_port", 8080),
			Host: getString("http_server_host", "0.0.0.0"),
		},
		Paging: PagingConfig{
			PageSize: getInt("page_size", 20),
		},
		Logging: LoggingConfig{
			Level:  getString("log_level", "INFO"),
			Format: getString("log_format", "json"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           getBool("telemetry_enabled", false),
			JaegerURL:         getString("jaeger_url", ""),
			PrometheusEnabled: getBool("prometheus_enabled", false),
			PrometheusPort:    getInt("prometheus_port", 9090),
			ServiceName:       getString("service_name", "flare-engine"),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("database_path", "flare.db")
	viper.SetDefault("http_server_port", 8080)
	viper.SetDefault("http_server_host", "0.0.0.0")
	viper.SetDefault("page_size", 20)
	viper.SetDefault("log_level", "INFO")
	viper.SetDefault("log_format", "json")
	viper.SetDefault("telemetry_enabled", false)
	viper.SetDefault("prometheus_enabled", false)
	viper.SetDefault("prometheus_port", 9090)
	viper.SetDefault("service_name", "flare-engine")
}

func getString(key, defaultValue string) string {
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	// Also check environment variable directly
	if val := os.Getenv("FLARE_" + toEnvKey(key)); val != "" {
		return val
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if viper.IsSet(key) {
		return viper.GetInt(key)
	}
	if val := os.Getenv("FLARE_" + toEnvKey(key)); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if viper.IsSet(key) {
		return viper.GetBool(key)
	}
	if val := os.Getenv("FLARE_" + toEnvKey(key)); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultValue
}

func toEnvKey(key string) string {
	// Convert snake_case to UPPER_SNAKE_CASE
	result := ""
	for i, r := range key {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result += "_"
		}
		if r == '-' || r == '_' {
			result += "_"
		} else {
			result += string(r)
		}
	}
	return result
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database_path is required")
	}
	if c.Paging.PageSize <= 0 || c.Paging.PageSize > 100 {
		return fmt.Errorf("page_size must be between 1 and 100")
	}
	for i, account := range c.Accounts {
		switch account.Platform {
		case "mastodon", "misskey", "bluesky", "xqt", "vvo":
		default:
			return fmt.Errorf("accounts[%d]: unknown platform %q", i, account.Platform)
		}
		if account.Host == "" {
			return fmt.Errorf("accounts[%d]: host is required", i)
		}
		if account.UserID == "" {
			return fmt.Errorf("accounts[%d]: user_id is required", i)
		}
	}
	return nil
}

// GetDuration returns a duration from config key, with default
func GetDuration(key string, defaultValue time.Duration) time.Duration {
	if viper.IsSet(key) {
		return viper.GetDuration(key)
	}
	return defaultValue
}
