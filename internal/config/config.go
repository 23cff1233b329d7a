package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Logging    LoggingConfig
	AWS        AWSConfig
	Mailer     MailerConfig
	ServiceNow ServiceNowConfig
	Worker     WorkerConfig
	// Path to the YAML file holding watcher settings
	SettingsPath string
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	Environment     string
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// For SQLite
	Path string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// AWSConfig contains AWS credential and topology configuration
type AWSConfig struct {
	DefaultRegion string
	// Role assumed in each watched account
	RoleName   string
	ExternalID string
	MaxRetries int
}

// MailerConfig contains SMTP configuration for the report mailer
type MailerConfig struct {
	Enabled    bool
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	Recipients []string
}

// ServiceNowConfig contains the ticketing endpoint configuration
type ServiceNowConfig struct {
	Enabled  bool
	URL      string
	Username string
	Password string
}

// WorkerConfig contains background worker configuration
type WorkerConfig struct {
	Enabled      bool
	ScanInterval time.Duration
	ReportCron   string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors as it's optional)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			AllowedOrigins:  getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			Environment:     getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "sqlite"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "stackwatch"),
			User:            getEnv("DB_USER", ""),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			Path:            getEnv("DB_PATH", "./stackwatch.db"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		AWS: AWSConfig{
			DefaultRegion: getEnv("AWS_DEFAULT_REGION", "us-east-1"),
			RoleName:      getEnv("AWS_AUDIT_ROLE", "StackWatch"),
			ExternalID:    getEnv("AWS_EXTERNAL_ID", ""),
			MaxRetries:    getEnvAsInt("AWS_MAX_RETRIES", 5),
		},
		Mailer: MailerConfig{
			Enabled:    getEnvAsBool("MAILER_ENABLED", false),
			Host:       getEnv("SMTP_HOST", "localhost"),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Username:   getEnv("SMTP_USERNAME", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			From:       getEnv("SMTP_FROM", "stackwatch@localhost"),
			Recipients: getEnvAsSlice("REPORT_RECIPIENTS", nil),
		},
		ServiceNow: ServiceNowConfig{
			Enabled:  getEnvAsBool("SERVICENOW_ENABLED", false),
			URL:      getEnv("SERVICENOW_URL", ""),
			Username: getEnv("SERVICENOW_USERNAME", ""),
			Password: getEnv("SERVICENOW_PASSWORD", ""),
		},
		Worker: WorkerConfig{
			Enabled:      getEnvAsBool("WORKER_ENABLED", true),
			ScanInterval: getEnvAsDuration("WORKER_SCAN_INTERVAL", time.Hour),
			ReportCron:   getEnv("REPORT_CRON", "0 10 * * 1"),
		},
		SettingsPath: getEnv("SETTINGS_PATH", "./settings.yaml"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if _, err := cron.ParseStandard(c.Worker.ReportCron); err != nil {
		return fmt.Errorf("invalid report cron expression %q: %w", c.Worker.ReportCron, err)
	}

	if c.ServiceNow.Enabled && c.ServiceNow.URL == "" {
		return fmt.Errorf("SERVICENOW_URL must be set when ticketing is enabled")
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
