package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Sensaur hub.
// All configuration is loaded from YAML and can be overridden by
// environment variables.
type Config struct {
	Serial   SerialConfig   `yaml:"serial"`
	Hub      HubConfig      `yaml:"hub"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	History  HistoryConfig  `yaml:"history"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	API      APIConfig      `yaml:"api"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SerialConfig contains serial port settings.
type SerialConfig struct {
	// Port is the serial device path (e.g. /dev/ttyS0).
	Port string `yaml:"port"`

	// BaudRate is the line speed shared with the board firmware.
	BaudRate int `yaml:"baud_rate"`

	// ReadTimeoutMs is the per-read timeout in milliseconds.
	ReadTimeoutMs int `yaml:"read_timeout_ms"`
}

// ReadTimeout returns the per-read timeout as a duration.
func (c SerialConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMs) * time.Millisecond
}

// HubConfig contains protocol engine timing settings.
// The defaults match the board firmware's expectations; change them only
// when the firmware changes.
type HubConfig struct {
	// PollIntervalMs is how often the broadcast poll is sent.
	PollIntervalMs int `yaml:"poll_interval_ms"`

	// ReceiveYieldMs is the receiver's sleep between read attempts.
	ReceiveYieldMs int `yaml:"receive_yield_ms"`

	// CheckIntervalMs is how often silent devices are looked for.
	CheckIntervalMs int `yaml:"check_interval_ms"`

	// SilenceThresholdMs is how long a device may stay silent before
	// eviction.
	SilenceThresholdMs int `yaml:"silence_threshold_ms"`
}

// PollInterval returns the poll interval as a duration.
func (c HubConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// ReceiveYield returns the receiver yield as a duration.
func (c HubConfig) ReceiveYield() time.Duration {
	return time.Duration(c.ReceiveYieldMs) * time.Millisecond
}

// CheckInterval returns the disconnect check interval as a duration.
func (c HubConfig) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalMs) * time.Millisecond
}

// SilenceThreshold returns the eviction threshold as a duration.
func (c HubConfig) SilenceThreshold() time.Duration {
	return time.Duration(c.SilenceThresholdMs) * time.Millisecond
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`

	// HealthIntervalSec is how often the bridge publishes hub health.
	HealthIntervalSec int `yaml:"health_interval_sec"`
}

// HealthInterval returns the health publication interval as a duration.
func (c MQTTConfig) HealthInterval() time.Duration {
	return time.Duration(c.HealthIntervalSec) * time.Second
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

// HistoryConfig contains reading-history database settings.
// History stores accepted readings only; the device registry itself is
// never persisted and is rebuilt from the serial line on restart.
type HistoryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// RetentionDays is how long readings are kept before pruning.
	RetentionDays int `yaml:"retention_days"`
}

// InfluxDBConfig contains InfluxDB v2 connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is json or text.
	Format string `yaml:"format"`

	// Output is stdout or stderr.
	Output string `yaml:"output"`
}

// Load reads, overrides and validates the configuration.
//
// Precedence: defaults, then the YAML file at path, then SENSAUR_*
// environment variables (e.g. SENSAUR_SERIAL_PORT, SENSAUR_MQTT_HOST).
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If the file cannot be read or parsed, or validation fails
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

// defaultConfig returns a Config with the protocol and service defaults.
func defaultConfig() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:          "/dev/ttyS0",
			BaudRate:      38400,
			ReadTimeoutMs: 50,
		},
		Hub: HubConfig{
			PollIntervalMs:     1000,
			ReceiveYieldMs:     100,
			CheckIntervalMs:    1000,
			SilenceThresholdMs: 3500,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "sensaur-hub",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			HealthIntervalSec: 30,
		},
		History: HistoryConfig{
			Path:          "./data/sensaur.db",
			WALMode:       true,
			BusyTimeout:   5,
			RetentionDays: 30,
		},
		InfluxDB: InfluxDBConfig{
			URL:           "http://localhost:8086",
			Bucket:        "sensaur",
			BatchSize:     100,
			FlushInterval: 10,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  15,
				Write: 15,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies SENSAUR_* environment variables on top of the
// file configuration. Only settings that change between deployments of the
// same file (paths, hosts, secrets) are overridable.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SENSAUR_SERIAL_PORT"); v != "" {
		cfg.Serial.Port = v
	}
	if v := os.Getenv("SENSAUR_SERIAL_BAUD"); v != "" {
		if baud, err := strconv.Atoi(v); err == nil {
			cfg.Serial.BaudRate = baud
		}
	}
	if v := os.Getenv("SENSAUR_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("SENSAUR_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("SENSAUR_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("SENSAUR_HISTORY_PATH"); v != "" {
		cfg.History.Path = v
	}
	if v := os.Getenv("SENSAUR_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
	if v := os.Getenv("SENSAUR_API_HOST"); v != "" {
		cfg.API.Host = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Serial.Port == "" {
		return fmt.Errorf("serial.port is required")
	}
	if c.Serial.BaudRate <= 0 {
		return fmt.Errorf("serial.baud_rate must be positive, got %d", c.Serial.BaudRate)
	}
	if c.Serial.ReadTimeoutMs <= 0 {
		return fmt.Errorf("serial.read_timeout_ms must be positive, got %d", c.Serial.ReadTimeoutMs)
	}
	if c.Hub.PollIntervalMs <= 0 {
		return fmt.Errorf("hub.poll_interval_ms must be positive, got %d", c.Hub.PollIntervalMs)
	}
	if c.Hub.SilenceThresholdMs <= c.Hub.PollIntervalMs {
		return fmt.Errorf("hub.silence_threshold_ms (%d) must exceed hub.poll_interval_ms (%d), or every device is evicted between polls",
			c.Hub.SilenceThresholdMs, c.Hub.PollIntervalMs)
	}
	if c.MQTT.Enabled {
		if c.MQTT.Broker.Host == "" {
			return fmt.Errorf("mqtt.broker.host is required when mqtt is enabled")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
		}
	}
	if c.History.Enabled && c.History.Path == "" {
		return fmt.Errorf("history.path is required when history is enabled")
	}
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			return fmt.Errorf("influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Token == "" {
			return fmt.Errorf("influxdb.token is required when influxdb is enabled")
		}
	}
	if c.API.Enabled && (c.API.Port <= 0 || c.API.Port > 65535) {
		return fmt.Errorf("api.port must be 1-65535, got %d", c.API.Port)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	return nil
}
