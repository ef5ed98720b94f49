package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeConfig writes a YAML config file into a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

// =============================================================================
// Load Tests
// =============================================================================

func TestLoadDefaults(t *testing.T) {
	// An empty file leaves every default in place.
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Serial.Port != "/dev/ttyS0" {
		t.Errorf("Serial.Port = %q, want /dev/ttyS0", cfg.Serial.Port)
	}
	if cfg.Serial.BaudRate != 38400 {
		t.Errorf("Serial.BaudRate = %d, want 38400", cfg.Serial.BaudRate)
	}
	if cfg.Hub.PollInterval() != time.Second {
		t.Errorf("Hub.PollInterval() = %v, want 1s", cfg.Hub.PollInterval())
	}
	if cfg.Hub.SilenceThreshold() != 3500*time.Millisecond {
		t.Errorf("Hub.SilenceThreshold() = %v, want 3.5s", cfg.Hub.SilenceThreshold())
	}
	if cfg.MQTT.Enabled || cfg.History.Enabled || cfg.InfluxDB.Enabled || cfg.API.Enabled {
		t.Error("optional services enabled by default, want all disabled")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
serial:
  port: /dev/ttyUSB0
hub:
  poll_interval_ms: 500
  silence_threshold_ms: 2000
logging:
  level: debug
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Serial.Port != "/dev/ttyUSB0" {
		t.Errorf("Serial.Port = %q, want /dev/ttyUSB0", cfg.Serial.Port)
	}
	// Untouched siblings keep their defaults.
	if cfg.Serial.BaudRate != 38400 {
		t.Errorf("Serial.BaudRate = %d, want default 38400", cfg.Serial.BaudRate)
	}
	if cfg.Hub.PollInterval() != 500*time.Millisecond {
		t.Errorf("Hub.PollInterval() = %v, want 500ms", cfg.Hub.PollInterval())
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "serial: [unclosed")); err == nil {
		t.Error("Load() expected error for invalid YAML")
	}
}

// =============================================================================
// Environment Override Tests
// =============================================================================

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SENSAUR_SERIAL_PORT", "/dev/ttyACM3")
	t.Setenv("SENSAUR_MQTT_PASSWORD", "hunter2")
	t.Setenv("SENSAUR_INFLUXDB_TOKEN", "tok-123")

	cfg, err := Load(writeConfig(t, "serial:\n  port: /dev/ttyS9\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Environment wins over the file.
	if cfg.Serial.Port != "/dev/ttyACM3" {
		t.Errorf("Serial.Port = %q, want env override", cfg.Serial.Port)
	}
	if cfg.MQTT.Auth.Password != "hunter2" {
		t.Errorf("MQTT.Auth.Password = %q, want env override", cfg.MQTT.Auth.Password)
	}
	if cfg.InfluxDB.Token != "tok-123" {
		t.Errorf("InfluxDB.Token = %q, want env override", cfg.InfluxDB.Token)
	}
}

// =============================================================================
// Validation Tests
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"empty serial port", func(c *Config) { c.Serial.Port = "" }, "serial.port"},
		{"zero baud", func(c *Config) { c.Serial.BaudRate = 0 }, "baud_rate"},
		{"zero poll interval", func(c *Config) { c.Hub.PollIntervalMs = 0 }, "poll_interval_ms"},
		{
			"threshold not above poll",
			func(c *Config) { c.Hub.SilenceThresholdMs = c.Hub.PollIntervalMs },
			"silence_threshold_ms",
		},
		{
			"mqtt bad qos",
			func(c *Config) { c.MQTT.Enabled = true; c.MQTT.QoS = 3 },
			"mqtt.qos",
		},
		{
			"history without path",
			func(c *Config) { c.History.Enabled = true; c.History.Path = "" },
			"history.path",
		},
		{
			"influxdb without token",
			func(c *Config) { c.InfluxDB.Enabled = true },
			"influxdb.token",
		},
		{
			"api bad port",
			func(c *Config) { c.API.Enabled = true; c.API.Port = 0 },
			"api.port",
		},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
