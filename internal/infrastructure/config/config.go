package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the sequencer daemon.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
	Engine   EngineConfig   `yaml:"engine"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
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

// EngineConfig contains sequence engine limits and timing settings.
//
// The limits exist to keep hostile or malformed sequence files from
// driving the engine into unbounded work: every command, expansion and
// wait is capped before execution begins.
type EngineConfig struct {
	// MaxCommandLength is the longest accepted raw command string.
	MaxCommandLength int `yaml:"max_command_length"`

	// MaxWaitSeconds caps the argument of a wait command.
	MaxWaitSeconds float64 `yaml:"max_wait_seconds"`

	// MaxCaptures caps how many parameter groups one command may carry.
	MaxCaptures int `yaml:"max_captures"`

	// ParseBudgetMS is the wall-clock budget for classifying one command.
	ParseBudgetMS int `yaml:"parse_budget_ms"`

	// MaxRecursionDepth caps nested sequence-of-sequence expansion.
	MaxRecursionDepth int `yaml:"max_recursion_depth"`

	// MaxSequenceLength caps the number of commands in one sequence.
	MaxSequenceLength int `yaml:"max_sequence_length"`

	// CacheSize is the capacity of each result cache (validate/expand/search).
	CacheSize int `yaml:"cache_size"`

	// WaitSliceMS is the granularity of wait-command sleeping. Cancellation
	// is re-checked between slices.
	WaitSliceMS int `yaml:"wait_slice_ms"`

	// AckTimeoutSeconds is how long to wait for a device acknowledgement
	// after a regular command.
	AckTimeoutSeconds int `yaml:"ack_timeout_seconds"`

	// ZoneAckTimeoutSeconds is how long to wait for an acknowledgement of a
	// zone mask command during fan-out.
	ZoneAckTimeoutSeconds int `yaml:"zone_ack_timeout_seconds"`

	// ZoneCount is the number of addressable zones.
	ZoneCount int `yaml:"zone_count"`

	// SuccessKeywords classify a device response line as an acknowledgement.
	SuccessKeywords []string `yaml:"success_keywords"`

	// ErrorKeywords classify a device response line as a failure.
	ErrorKeywords []string `yaml:"error_keywords"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: OGSEQ_SECTION_KEY
// For example: OGSEQ_DATABASE_PATH, OGSEQ_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "./data/ogsequence.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "ogsequence-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Engine: EngineConfig{
			MaxCommandLength:      1000,
			MaxWaitSeconds:        3600,
			MaxCaptures:           10,
			ParseBudgetMS:         1000,
			MaxRecursionDepth:     20,
			MaxSequenceLength:     10000,
			CacheSize:             256,
			WaitSliceMS:           100,
			AckTimeoutSeconds:     10,
			ZoneAckTimeoutSeconds: 5,
			ZoneCount:             4,
			SuccessKeywords:       []string{"ok", "done", "complete"},
			ErrorKeywords:         []string{"error", "fail", "err"},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: OGSEQ_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("OGSEQ_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("OGSEQ_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("OGSEQ_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("OGSEQ_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("OGSEQ_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("OGSEQ_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// Engine validation
	if c.Engine.MaxCommandLength < 1 {
		errs = append(errs, "engine.max_command_length must be positive")
	}
	if c.Engine.MaxWaitSeconds <= 0 {
		errs = append(errs, "engine.max_wait_seconds must be positive")
	}
	if c.Engine.MaxCaptures < 1 {
		errs = append(errs, "engine.max_captures must be positive")
	}
	if c.Engine.MaxRecursionDepth < 1 {
		errs = append(errs, "engine.max_recursion_depth must be positive")
	}
	if c.Engine.MaxSequenceLength < 1 {
		errs = append(errs, "engine.max_sequence_length must be positive")
	}
	if c.Engine.ZoneCount < 1 || c.Engine.ZoneCount > 4 {
		errs = append(errs, "engine.zone_count must be between 1 and 4")
	}
	if len(c.Engine.SuccessKeywords) == 0 {
		errs = append(errs, "engine.success_keywords must not be empty")
	}
	if len(c.Engine.ErrorKeywords) == 0 {
		errs = append(errs, "engine.error_keywords must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ParseBudget returns the per-command classification budget as a Duration.
func (c *EngineConfig) ParseBudget() time.Duration {
	return time.Duration(c.ParseBudgetMS) * time.Millisecond
}

// WaitSlice returns the wait-command slice granularity as a Duration.
func (c *EngineConfig) WaitSlice() time.Duration {
	return time.Duration(c.WaitSliceMS) * time.Millisecond
}

// AckTimeout returns the regular-command acknowledgement timeout as a Duration.
func (c *EngineConfig) AckTimeout() time.Duration {
	return time.Duration(c.AckTimeoutSeconds) * time.Second
}

// ZoneAckTimeout returns the zone-mask acknowledgement timeout as a Duration.
func (c *EngineConfig) ZoneAckTimeout() time.Duration {
	return time.Duration(c.ZoneAckTimeoutSeconds) * time.Second
}
