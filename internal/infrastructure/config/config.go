package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported database drivers.
const (
	DriverSQLite = "sqlite3"
	DriverDuckDB = "duckdb"
)

// Config is the root configuration structure for the SQL façade.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Migrations MigrationsConfig `yaml:"migrations"`
	Logging    LoggingConfig    `yaml:"logging"`
	Events     EventsConfig     `yaml:"events"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// DatabaseConfig contains embedded engine settings.
type DatabaseConfig struct {
	// Driver selects the embedded engine: "sqlite3" (default) or "duckdb".
	Driver string `yaml:"driver"`

	// Path is the database file. The directory is created if missing.
	Path string `yaml:"path"`

	// WALMode enables Write-Ahead Logging (SQLite only).
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the lock wait in seconds (SQLite only).
	BusyTimeout int `yaml:"busy_timeout"`

	// ForeignKeys enables foreign key enforcement (SQLite only).
	ForeignKeys bool `yaml:"foreign_keys"`
}

// MigrationsConfig points at a directory of versioned .up.sql/.down.sql files.
type MigrationsConfig struct {
	Dir string `yaml:"dir"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// EventsConfig controls transaction outcome notifications over MQTT.
type EventsConfig struct {
	Enabled     bool                `yaml:"enabled"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// MetricsConfig contains InfluxDB settings for statement timing metrics.
type MetricsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: SQLFACADE_SECTION_KEY
// For example: SQLFACADE_DATABASE_PATH, SQLFACADE_LOG_LEVEL
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:      DriverSQLite,
			Path:        "./data/sqlfacade.db",
			WALMode:     true,
			BusyTimeout: 5,
			ForeignKeys: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Events: EventsConfig{
			TopicPrefix: "sqlfacade",
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "sqlfacade",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Metrics: MetricsConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SQLFACADE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("SQLFACADE_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("SQLFACADE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Events
	if v := os.Getenv("SQLFACADE_MQTT_HOST"); v != "" {
		cfg.Events.Broker.Host = v
	}
	if v := os.Getenv("SQLFACADE_MQTT_USERNAME"); v != "" {
		cfg.Events.Auth.Username = v
	}
	if v := os.Getenv("SQLFACADE_MQTT_PASSWORD"); v != "" {
		cfg.Events.Auth.Password = v
	}

	if v := os.Getenv("SQLFACADE_INFLUXDB_TOKEN"); v != "" {
		cfg.Metrics.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	switch strings.ToLower(c.Database.Driver) {
	case DriverSQLite, DriverDuckDB:
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported (use %q or %q)",
			c.Database.Driver, DriverSQLite, DriverDuckDB))
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.Database.BusyTimeout < 0 {
		errs = append(errs, "database.busy_timeout must not be negative")
	}

	if c.Events.Enabled {
		if c.Events.QoS < 0 || c.Events.QoS > 2 {
			errs = append(errs, "events.qos must be 0, 1, or 2")
		}
		if c.Events.Broker.Host == "" {
			errs = append(errs, "events.broker.host is required when events are enabled")
		}
		if c.Events.TopicPrefix == "" {
			errs = append(errs, "events.topic_prefix is required when events are enabled")
		}
	}

	if c.Metrics.Enabled {
		if c.Metrics.URL == "" {
			errs = append(errs, "metrics.url is required when metrics are enabled")
		}
		if c.Metrics.Bucket == "" {
			errs = append(errs, "metrics.bucket is required when metrics are enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
