// OG Sequence Core - Command Sequence Engine
//
// This is the main entry point for the sequencer daemon. The daemon owns
// the sequence engine and talks to the device through an MQTT serial
// bridge: command lines go out on ogsequence/device/command, response
// lines come back on ogsequence/device/response, and run control
// (cancel, pause, resume) arrives on ogsequence/control/+.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/ogsystems/og-sequence-core/migrations"

	"github.com/ogsystems/og-sequence-core/internal/infrastructure/config"
	"github.com/ogsystems/og-sequence-core/internal/infrastructure/database"
	"github.com/ogsystems/og-sequence-core/internal/infrastructure/influxdb"
	"github.com/ogsystems/og-sequence-core/internal/infrastructure/logging"
	"github.com/ogsystems/og-sequence-core/internal/infrastructure/mqtt"
	"github.com/ogsystems/og-sequence-core/internal/multizone"
	"github.com/ogsystems/og-sequence-core/internal/sequence"
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
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting OG Sequence Core",
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

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Build the engine
	qos := byte(cfg.MQTT.QoS)
	topics := mqtt.Topics{}

	zones := multizone.NewManager(cfg.Engine.ZoneCount)
	zones.SetLogger(log)
	zones.SetOnStatusChange(func(zone int, status multizone.ZoneStatus) {
		if pubErr := mqttClient.PublishString(topics.ZoneStatus(zone), string(status), qos, true); pubErr != nil {
			log.Warn("failed to publish zone status", "zone", zone, "error", pubErr)
		}
		if influxClient != nil {
			influxClient.WriteZoneMetric(zone, string(status))
		}
	})

	transport := &mqttTransport{client: mqttClient, topic: topics.DeviceCommand(), qos: qos}
	manager := sequence.NewManager(sequence.Config{
		MaxCommandLength:  cfg.Engine.MaxCommandLength,
		MaxWaitSeconds:    cfg.Engine.MaxWaitSeconds,
		MaxCaptures:       cfg.Engine.MaxCaptures,
		ParseBudget:       cfg.Engine.ParseBudget(),
		MaxRecursionDepth: cfg.Engine.MaxRecursionDepth,
		MaxSequenceLength: cfg.Engine.MaxSequenceLength,
		CacheSize:         cfg.Engine.CacheSize,
		WaitSlice:         cfg.Engine.WaitSlice(),
		AckTimeout:        cfg.Engine.AckTimeout(),
		ZoneAckTimeout:    cfg.Engine.ZoneAckTimeout(),
		SuccessKeywords:   cfg.Engine.SuccessKeywords,
		ErrorKeywords:     cfg.Engine.ErrorKeywords,
	}, transport, zones)
	manager.SetLogger(log)
	manager.SetRepository(sequence.NewSQLiteRepository(db.DB))

	wireExecutionEvents(manager, mqttClient, influxClient, qos, log)

	if err := subscribeEngineTopics(manager, mqttClient, qos, log); err != nil {
		return fmt.Errorf("subscribing engine topics: %w", err)
	}
	log.Info("engine initialised", "zones", zones.ZoneCount())

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Stop any in-flight run before the transport goes away.
	if cancelErr := manager.Cancel(); cancelErr == nil {
		log.Info("cancelled in-flight execution")
	}

	// Deferred Close() calls will run in reverse order:
	// 1. InfluxDB (if enabled)
	// 2. MQTT
	// 3. Database

	log.Info("OG Sequence Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses OGSEQ_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("OGSEQ_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// wireExecutionEvents publishes run lifecycle events to the broker and
// records metrics for each.
func wireExecutionEvents(manager *sequence.Manager, mqttClient *mqtt.Client, influxClient *influxdb.Client, qos byte, log *logging.Logger) {
	topics := mqtt.Topics{}

	// Source label per in-flight run, for the finish metric.
	var sourceMu sync.Mutex
	sources := make(map[string]string)

	manager.SetOnStarted(func(executionID, source string, total int) {
		sourceMu.Lock()
		sources[executionID] = source
		sourceMu.Unlock()
		payload, _ := json.Marshal(map[string]any{
			"execution_id": executionID,
			"source":       source,
			"commands":     total,
			"started_at":   time.Now().UTC().Format(time.RFC3339),
		})
		if err := mqttClient.Publish(topics.ExecutionStarted(executionID), payload, qos, false); err != nil {
			log.Warn("failed to publish execution start", "id", executionID, "error", err)
		}
	})

	manager.SetOnCommand(func(executionID string, result sequence.CommandResult) {
		payload, _ := json.Marshal(result)
		if err := mqttClient.Publish(topics.ExecutionCommand(executionID), payload, qos, false); err != nil {
			log.Warn("failed to publish command result", "id", executionID, "error", err)
		}
		if influxClient != nil {
			kind := string(manager.ValidateCommand(result.Command).Kind)
			influxClient.WriteCommandMetric(kind, result.DurationMS, result.Success)
		}

		if progress, ok := manager.Progress(); ok {
			progressPayload, _ := json.Marshal(progress)
			if err := mqttClient.Publish(topics.ExecutionProgress(executionID), progressPayload, qos, false); err != nil {
				log.Warn("failed to publish progress", "id", executionID, "error", err)
			}
		}
	})

	manager.SetOnFinished(func(executionID string, state sequence.WorkerState, message string, results []sequence.CommandResult) {
		payload, _ := json.Marshal(map[string]any{
			"execution_id": executionID,
			"state":        string(state),
			"message":      message,
			"commands":     len(results),
		})
		if err := mqttClient.Publish(topics.ExecutionFinished(executionID), payload, qos, false); err != nil {
			log.Warn("failed to publish execution finish", "id", executionID, "error", err)
		}
		sourceMu.Lock()
		source := sources[executionID]
		delete(sources, executionID)
		sourceMu.Unlock()

		if influxClient != nil {
			var total float64
			for _, result := range results {
				total += result.DurationMS
			}
			influxClient.WriteExecutionMetric(source, string(state), len(results), total)

			// Cache counters drift between runs, not within one, so a
			// snapshot per finished run is enough resolution.
			for name, stats := range manager.Statistics().Caches {
				influxClient.WriteCacheMetric(name, stats.Hits, stats.Misses, stats.Size)
			}
		}
	})
}

// subscribeEngineTopics wires the inbound topics: device responses feed
// the acknowledgement pipeline and control topics drive run control.
func subscribeEngineTopics(manager *sequence.Manager, mqttClient *mqtt.Client, qos byte, log *logging.Logger) error {
	topics := mqtt.Topics{}

	if err := mqttClient.Subscribe(topics.DeviceResponse(), qos, func(_ string, payload []byte) error {
		manager.HandleResponse(string(payload))
		return nil
	}); err != nil {
		return fmt.Errorf("subscribing to device responses: %w", err)
	}

	controls := map[string]func() error{
		topics.ControlCancel(): manager.Cancel,
		topics.ControlPause():  manager.Pause,
		topics.ControlResume(): manager.Resume,
	}
	for topic, action := range controls {
		action := action
		if err := mqttClient.Subscribe(topic, qos, func(t string, _ []byte) error {
			if ctlErr := action(); ctlErr != nil {
				log.Warn("run control rejected", "topic", t, "error", ctlErr)
			}
			return nil
		}); err != nil {
			return fmt.Errorf("subscribing to %s: %w", topic, err)
		}
	}
	return nil
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// mqttTransport adapts the infrastructure MQTT client to the engine's
// Transport interface: each command line is published to the serial
// bridge's command topic.
type mqttTransport struct {
	client *mqtt.Client
	topic  string
	qos    byte
}

// Send implements sequence.Transport.
func (t *mqttTransport) Send(command string) error {
	return t.client.PublishString(t.topic, command, t.qos, false)
}

// IsConnected implements sequence.Transport.
func (t *mqttTransport) IsConnected() bool {
	return t.client.IsConnected()
}
