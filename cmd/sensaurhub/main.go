// Sensaur Hub - serial sensor and actuator gateway
//
// This is the main entry point for the sensaur hub application. The hub
// speaks a line-oriented checksummed protocol to microcontroller boards
// over a serial port, discovers their sensors and actuators, and fans
// readings out to MQTT, SQLite history, InfluxDB, and an HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/sensaur/sensaur-hub/migrations"

	"github.com/sensaur/sensaur-hub/internal/api"
	"github.com/sensaur/sensaur-hub/internal/bridge"
	"github.com/sensaur/sensaur-hub/internal/history"
	"github.com/sensaur/sensaur-hub/internal/hub"
	"github.com/sensaur/sensaur-hub/internal/infrastructure/config"
	"github.com/sensaur/sensaur-hub/internal/infrastructure/database"
	"github.com/sensaur/sensaur-hub/internal/infrastructure/influxdb"
	"github.com/sensaur/sensaur-hub/internal/infrastructure/logging"
	"github.com/sensaur/sensaur-hub/internal/infrastructure/mqtt"
	"github.com/sensaur/sensaur-hub/internal/serialport"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting sensaur hub",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open the serial port
	port, err := serialport.Open(serialport.Config{
		Name:        cfg.Serial.Port,
		BaudRate:    cfg.Serial.BaudRate,
		ReadTimeout: cfg.Serial.ReadTimeout(),
	})
	if err != nil {
		return fmt.Errorf("opening serial port: %w", err)
	}
	defer func() {
		log.Info("closing serial port")
		if closeErr := port.Close(); closeErr != nil {
			log.Error("error closing serial port", "error", closeErr)
		}
	}()
	log.Info("serial port open", "port", cfg.Serial.Port, "baud", cfg.Serial.BaudRate)

	// Create the protocol engine
	engine := hub.New(port, hub.Options{
		Logger:           log,
		PollInterval:     cfg.Hub.PollInterval(),
		ReceiveYield:     cfg.Hub.ReceiveYield(),
		CheckInterval:    cfg.Hub.CheckInterval(),
		SilenceThreshold: cfg.Hub.SilenceThreshold(),
	})

	// Reading history (optional)
	var historyRepo *history.Repository
	if cfg.History.Enabled {
		db, dbErr := database.Open(ctx, database.Config{
			Path:        cfg.History.Path,
			WALMode:     cfg.History.WALMode,
			BusyTimeout: cfg.History.BusyTimeout,
		})
		if dbErr != nil {
			return fmt.Errorf("opening history database: %w", dbErr)
		}
		defer func() {
			log.Info("closing history database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing history database", "error", closeErr)
			}
		}()

		if migrateErr := db.Migrate(ctx); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		log.Info("history database ready", "path", cfg.History.Path)

		historyRepo = history.NewRepository(db.DB)
		retention := time.Duration(cfg.History.RetentionDays) * 24 * time.Hour
		recorder := history.NewRecorder(historyRepo, retention, log)
		recorder.Start(ctx)
		defer recorder.Stop()
		engine.AddHandler(recorder)
	} else {
		log.Info("reading history disabled")
	}

	// InfluxDB export (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		// Only numeric readings go to the time-series store.
		engine.AddHandler(hub.HandlerFunc(func(c *hub.Component, value string) {
			f, parseErr := strconv.ParseFloat(value, 64)
			if parseErr != nil {
				return
			}
			influxClient.WriteReading(c.Device.ID, c.Name, c.Type, c.Units, f)
		}))
	} else {
		log.Info("InfluxDB disabled")
	}

	// MQTT bridge (optional)
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		b, bridgeErr := bridge.New(bridge.Options{
			MQTT:           mqttClient,
			Hub:            engine,
			QoS:            byte(cfg.MQTT.QoS),
			HealthInterval: cfg.MQTT.HealthInterval(),
			Version:        version,
			Logger:         log,
		})
		if bridgeErr != nil {
			return fmt.Errorf("creating MQTT bridge: %w", bridgeErr)
		}
		if startErr := b.Start(ctx); startErr != nil {
			return fmt.Errorf("starting MQTT bridge: %w", startErr)
		}
		defer func() {
			log.Info("stopping MQTT bridge")
			b.Stop()
		}()
		engine.AddHandler(b)
		log.Info("MQTT bridge started")
	} else {
		log.Info("MQTT bridge disabled")
	}

	// HTTP API (optional)
	if cfg.API.Enabled {
		server, apiErr := api.New(api.Deps{
			Config:  cfg.API,
			Logger:  log,
			Hub:     engine,
			History: historyRepo,
			Version: version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("HTTP API disabled")
	}

	// Start the protocol loops last so handlers see readings from the
	// first poll onwards.
	engine.Start(ctx)
	defer func() {
		log.Info("stopping protocol engine")
		engine.Stop()
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses SENSAUR_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("SENSAUR_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
