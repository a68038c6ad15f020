package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the environment variable pointing at an optional YAML file.
const ConfigFileEnv = "SCHEDULER_CONFIG_FILE"

// Config captures file and environment driven configuration values for the
// scheduler service.
type Config struct {
	HTTPPort         int           `yaml:"http_port"`
	SQLiteDSN        string        `yaml:"sqlite_dsn"`
	Timezone         string        `yaml:"timezone"`
	Areas            []string      `yaml:"areas"`
	CacheTTL         time.Duration `yaml:"cache_ttl"`
	CacheMaxEntries  int           `yaml:"cache_max_entries"`
	AuditMaxEntries  int           `yaml:"audit_max_entries"`
	CleanupSchedule  string        `yaml:"cleanup_schedule"`
	CleanupAfterDays int           `yaml:"cleanup_after_days"`
	ReminderSchedule string        `yaml:"reminder_schedule"`
	SessionTTL       time.Duration `yaml:"session_ttl"`
	// BasicAuth lets requests without a session token authenticate with
	// HTTP Basic credentials. Each such request rehashes the password.
	BasicAuth        bool          `yaml:"basic_auth"`
	AdminEmail       string        `yaml:"admin_email"`
	AdminPassword    string        `yaml:"admin_password"`
	LogLevel         string        `yaml:"log_level"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		HTTPPort:         8080,
		SQLiteDSN:        "scheduler.db",
		Timezone:         "America/Bogota",
		CacheTTL:         30 * time.Second,
		CacheMaxEntries:  128,
		AuditMaxEntries:  1000,
		CleanupSchedule:  "@daily",
		CleanupAfterDays: 90,
		ReminderSchedule: "@every 1m",
		SessionTTL:       12 * time.Hour,
		LogLevel:         "info",
	}
}

// Location resolves the configured IANA time zone.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// Load reads the optional YAML file named by SCHEDULER_CONFIG_FILE and then
// applies environment overrides.
//
// Every missing or malformed value is reported in a single error.
func Load() (Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv(ConfigFileEnv)); path != "" {
		if err := readFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	var missing, invalid []string
	overrideInt := func(key string, dst *int, min int) {
		value := strings.TrimSpace(os.Getenv(key))
		if value == "" {
			return
		}
		n, err := strconv.Atoi(value)
		if err != nil || n < min {
			invalid = append(invalid, key)
			return
		}
		*dst = n
	}
	overrideDuration := func(key string, dst *time.Duration) {
		value := strings.TrimSpace(os.Getenv(key))
		if value == "" {
			return
		}
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			invalid = append(invalid, key)
			return
		}
		*dst = d
	}
	overrideString := func(key string, dst *string) {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			*dst = value
		}
	}

	overrideInt("SCHEDULER_HTTP_PORT", &cfg.HTTPPort, 1)
	overrideString("SCHEDULER_SQLITE_DSN", &cfg.SQLiteDSN)
	overrideString("SCHEDULER_TIMEZONE", &cfg.Timezone)
	if value := strings.TrimSpace(os.Getenv("SCHEDULER_AREAS")); value != "" {
		cfg.Areas = splitAreas(value)
	}
	overrideDuration("SCHEDULER_CACHE_TTL", &cfg.CacheTTL)
	overrideInt("SCHEDULER_CACHE_MAX_ENTRIES", &cfg.CacheMaxEntries, 1)
	overrideInt("SCHEDULER_AUDIT_MAX_ENTRIES", &cfg.AuditMaxEntries, 1)
	overrideString("SCHEDULER_CLEANUP_SCHEDULE", &cfg.CleanupSchedule)
	overrideInt("SCHEDULER_CLEANUP_AFTER_DAYS", &cfg.CleanupAfterDays, 1)
	overrideString("SCHEDULER_REMINDER_SCHEDULE", &cfg.ReminderSchedule)
	overrideDuration("SCHEDULER_SESSION_TTL", &cfg.SessionTTL)
	if value := strings.TrimSpace(os.Getenv("SCHEDULER_BASIC_AUTH")); value != "" {
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			invalid = append(invalid, "SCHEDULER_BASIC_AUTH")
		} else {
			cfg.BasicAuth = enabled
		}
	}
	overrideString("SCHEDULER_ADMIN_EMAIL", &cfg.AdminEmail)
	overrideString("SCHEDULER_ADMIN_PASSWORD", &cfg.AdminPassword)
	overrideString("SCHEDULER_LOG_LEVEL", &cfg.LogLevel)

	if cfg.AdminEmail == "" {
		missing = append(missing, "SCHEDULER_ADMIN_EMAIL")
	}
	if cfg.AdminPassword == "" {
		missing = append(missing, "SCHEDULER_ADMIN_PASSWORD")
	}
	if _, err := cfg.Location(); err != nil {
		invalid = append(invalid, "SCHEDULER_TIMEZONE")
	}

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("missing required settings: %s", strings.Join(missing, ", ")))
	}
	if len(invalid) > 0 {
		errs = append(errs, fmt.Errorf("invalid settings: %s", strings.Join(invalid, ", ")))
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

func readFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func splitAreas(value string) []string {
	parts := strings.Split(value, ",")
	areas := make([]string, 0, len(parts))
	for _, part := range parts {
		if area := strings.TrimSpace(part); area != "" {
			areas = append(areas, area)
		}
	}
	return areas
}
