package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the peripheral engine.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Detection DetectionConfig `yaml:"detection"`
}

// SiteConfig identifies the lab scope and host this instance monitors.
type SiteConfig struct {
	// LabScope is the lab the monitored PC belongs to.
	LabScope string `yaml:"lab_scope"`

	// PCTag identifies the monitored PC. Empty means "use the hostname".
	PCTag string `yaml:"pc_tag"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
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
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// DetectionConfig holds the polling cadence and anomaly thresholds.
type DetectionConfig struct {
	// PollInterval is the time between enumeration passes.
	// Default: 10s
	PollInterval time.Duration `yaml:"poll_interval"`

	// EnumerationTimeout bounds a single native enumeration call.
	// Default: 5s
	EnumerationTimeout time.Duration `yaml:"enumeration_timeout"`

	// FaultyCycles is the number of connect→disconnect cycles inside
	// FaultyWindow that marks a device faulty.
	// Default: 3
	FaultyCycles int `yaml:"faulty_cycles"`

	// FaultyWindow is the sliding window for the faulty classifier.
	// Default: 10m
	FaultyWindow time.Duration `yaml:"faulty_window"`

	// MissingAfter is how long a device may stay disconnected before it is
	// classified missing.
	// Default: 600s
	MissingAfter time.Duration `yaml:"missing_after"`

	// EventRetention is how long raw connect/disconnect events are kept.
	// Default: 24h
	EventRetention time.Duration `yaml:"event_retention"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: PERIPHCORE_SECTION_KEY
// For example: PERIPHCORE_DATABASE_PATH, PERIPHCORE_SITE_PC_TAG
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

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

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			LabScope: "default",
		},
		Database: DatabaseConfig{
			Path:        "./data/peripherals.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: true,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "peripheralcore",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Detection: DetectionConfig{
			PollInterval:       10 * time.Second,
			EnumerationTimeout: 5 * time.Second,
			FaultyCycles:       3,
			FaultyWindow:       10 * time.Minute,
			MissingAfter:       600 * time.Second,
			EventRetention:     24 * time.Hour,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PERIPHCORE_SITE_LAB_SCOPE"); v != "" {
		cfg.Site.LabScope = v
	}
	if v := os.Getenv("PERIPHCORE_SITE_PC_TAG"); v != "" {
		cfg.Site.PCTag = v
	}

	if v := os.Getenv("PERIPHCORE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("PERIPHCORE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("PERIPHCORE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("PERIPHCORE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("PERIPHCORE_MQTT_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.MQTT.Enabled = b
		}
	}

	if v := os.Getenv("PERIPHCORE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("PERIPHCORE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Site.LabScope == "" {
		errs = append(errs, "site.lab_scope is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	d := c.Detection
	if d.PollInterval <= 0 {
		errs = append(errs, "detection.poll_interval must be positive")
	}
	if d.EnumerationTimeout <= 0 {
		errs = append(errs, "detection.enumeration_timeout must be positive")
	}
	if d.FaultyCycles < 1 {
		errs = append(errs, "detection.faulty_cycles must be at least 1")
	}
	if d.FaultyWindow <= 0 {
		errs = append(errs, "detection.faulty_window must be positive")
	}
	if d.MissingAfter <= 0 {
		errs = append(errs, "detection.missing_after must be positive")
	}
	if d.EventRetention > 0 && d.EventRetention < d.FaultyWindow {
		errs = append(errs, "detection.event_retention must not be shorter than detection.faulty_window")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
