package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Store        StoreConfig        `yaml:"store"`
	Redis        RedisConfig        `yaml:"redis"`
	Availability AvailabilityConfig `yaml:"availability"`
	Calendar     CalendarConfig     `yaml:"calendar"`
	Notify       NotifyConfig       `yaml:"notify"`
	Log          LogConfig          `yaml:"log"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
	Reports      ReportsConfig      `yaml:"reports"`
}

// ServerConfig contains gRPC and HTTP listener settings
type ServerConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	HTTPPort        int    `yaml:"http_port"`
	Timezone        string `yaml:"timezone"`
	ShutdownTimeout int    `yaml:"shutdown_timeout_seconds"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	Database        string `yaml:"database"`
	SSLMode         string `yaml:"ssl_mode"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_minutes"`
}

// StoreConfig selects the store adapter
type StoreConfig struct {
	Type string `yaml:"type"` // "memory" or "postgres"
	// SeedFile lists resources loaded into the memory store at startup
	SeedFile string `yaml:"seed_file"`
}

// RedisConfig enables the snapshot cache when Addr is set
type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TTLSeconds int    `yaml:"ttl_seconds"`
	KeyPrefix  string `yaml:"key_prefix"`
}

type AvailabilityConfig struct {
	HorizonDays int `yaml:"horizon_days"`
}

type CalendarConfig struct {
	DeliveryTime string `yaml:"delivery_time"` // HH:MM
	ReturnTime   string `yaml:"return_time"`   // HH:MM
}

type NotifyConfig struct {
	Email EmailConfig `yaml:"email"`
	Push  PushConfig  `yaml:"push"`
}

// EmailConfig contains SendGrid settings. Email is disabled without an API key.
type EmailConfig struct {
	APIKey     string   `yaml:"api_key"`
	FromEmail  string   `yaml:"from_email"`
	FromName   string   `yaml:"from_name"`
	Recipients []string `yaml:"recipients"`
	MinKind    string   `yaml:"min_kind"`
	PerMinute  int      `yaml:"per_minute"`
	Burst      int      `yaml:"burst"`
}

// PushConfig contains Firebase Cloud Messaging settings. Push is disabled
// without a credentials file.
type PushConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	Topic           string `yaml:"topic"`
	MinKind         string `yaml:"min_kind"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	ReconcileCapacity string `yaml:"reconcile_capacity"`
	RemindOvertime    string `yaml:"remind_overtime"`
	ExportStatusLog   string `yaml:"export_status_log"`
}

// ReportsConfig controls the scheduled xlsx export
type ReportsConfig struct {
	Dir string `yaml:"dir"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies environment overrides and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
		}
	}
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Server
	envString("SERVER_HOST", &c.Server.Host)
	envInt("SERVER_PORT", &c.Server.Port)
	envInt("HTTP_PORT", &c.Server.HTTPPort)
	envString("TZ_NAME", &c.Server.Timezone)

	// Database
	envString("DB_HOST", &c.Database.Host)
	envInt("DB_PORT", &c.Database.Port)
	envString("DB_USER", &c.Database.User)
	envString("DB_PASSWORD", &c.Database.Password)
	envString("DB_NAME", &c.Database.Database)
	envString("DB_SSL_MODE", &c.Database.SSLMode)

	envString("STORE_TYPE", &c.Store.Type)
	envString("STORE_SEED_FILE", &c.Store.SeedFile)

	// Redis
	envString("REDIS_ADDR", &c.Redis.Addr)
	envString("REDIS_PASSWORD", &c.Redis.Password)

	// Notify
	envString("SENDGRID_API_KEY", &c.Notify.Email.APIKey)
	envString("SENDGRID_FROM_EMAIL", &c.Notify.Email.FromEmail)
	if val := os.Getenv("STAFF_EMAILS"); val != "" {
		c.Notify.Email.Recipients = splitList(val)
	}
	envString("FIREBASE_CREDENTIALS_FILE", &c.Notify.Push.CredentialsFile)

	// Log
	envString("LOG_LEVEL", &c.Log.Level)
	envString("LOG_FORMAT", &c.Log.Format)

	envString("REPORTS_DIR", &c.Reports.Dir)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the configuration and fills in defaults
func (c *Config) Validate() error {
	// Server
	if c.Server.Port == 0 {
		c.Server.Port = 50051
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = 8080
	}
	if c.Server.HTTPPort < 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid http port: %d", c.Server.HTTPPort)
	}
	if c.Server.HTTPPort == c.Server.Port {
		return fmt.Errorf("http port must differ from grpc port %d", c.Server.Port)
	}
	if c.Server.Timezone == "" {
		c.Server.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(c.Server.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Server.Timezone, err)
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10
	}

	// Store
	if c.Store.Type == "" {
		c.Store.Type = "postgres"
	}
	switch c.Store.Type {
	case "memory":
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	default:
		return fmt.Errorf("unknown store type %q", c.Store.Type)
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 30
	}

	// Redis
	if c.Redis.TTLSeconds <= 0 {
		c.Redis.TTLSeconds = 60
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "camrent"
	}

	if c.Availability.HorizonDays < 0 {
		return fmt.Errorf("availability horizon must not be negative: %d", c.Availability.HorizonDays)
	}
	if c.Availability.HorizonDays == 0 {
		c.Availability.HorizonDays = 14
	}

	if c.Calendar.DeliveryTime == "" {
		c.Calendar.DeliveryTime = "09:00"
	}
	if c.Calendar.ReturnTime == "" {
		c.Calendar.ReturnTime = "18:00"
	}

	// Notify
	if c.Notify.Email.APIKey != "" {
		if c.Notify.Email.FromEmail == "" {
			return fmt.Errorf("email from address is required when email notifications are enabled")
		}
		if len(c.Notify.Email.Recipients) == 0 {
			return fmt.Errorf("at least one staff email recipient is required")
		}
	}
	if c.Notify.Email.FromName == "" {
		c.Notify.Email.FromName = "Camrent"
	}
	if c.Notify.Email.MinKind == "" {
		c.Notify.Email.MinKind = "warning"
	}
	if c.Notify.Email.PerMinute <= 0 {
		c.Notify.Email.PerMinute = 30
	}
	if c.Notify.Email.Burst <= 0 {
		c.Notify.Email.Burst = 5
	}
	if c.Notify.Push.Topic == "" {
		c.Notify.Push.Topic = "camrent-staff"
	}
	if c.Notify.Push.MinKind == "" {
		c.Notify.Push.MinKind = "error"
	}
	for _, kind := range []string{c.Notify.Email.MinKind, c.Notify.Push.MinKind} {
		switch kind {
		case "info", "success", "warning", "error":
		default:
			return fmt.Errorf("invalid notification kind %q", kind)
		}
	}

	// Log
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	// Scheduler defaults
	if c.Scheduler.ReconcileCapacity == "" {
		c.Scheduler.ReconcileCapacity = "0 5 0 * * *" // 00:05 UTC daily
	}
	if c.Scheduler.RemindOvertime == "" {
		c.Scheduler.RemindOvertime = "0 0 8 * * *" // 8 AM UTC
	}
	if c.Scheduler.ExportStatusLog == "" {
		c.Scheduler.ExportStatusLog = "0 0 1 1 * *" // 1st of month at 1 AM UTC
	}

	if c.Reports.Dir == "" {
		c.Reports.Dir = "reports"
	}
	return nil
}

// Location returns the time zone that decides calendar days.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the gRPC server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetHTTPAddress returns the HTTP server address
func (c *Config) GetHTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.HTTPPort)
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeout) * time.Second
}

func (c *Config) ConnMaxLifetime() time.Duration {
	return time.Duration(c.Database.ConnMaxLifetime) * time.Minute
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Redis.TTLSeconds) * time.Second
}
