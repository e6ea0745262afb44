// Peripheral Core tracks the USB peripherals of lab PCs.
//
// It enumerates the devices attached to this PC, reconciles them against
// the peripheral registry, drives each registered unit through its status
// lifecycle and raises faulty, missing and replaced alerts. Events from
// other PCs arrive over MQTT; alerts and reconciliation reports leave the
// same way.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	_ "github.com/nerrad567/peripheral-core/migrations"

	"github.com/nerrad567/peripheral-core/internal/alert"
	"github.com/nerrad567/peripheral-core/internal/enumerate"
	"github.com/nerrad567/peripheral-core/internal/identity"
	"github.com/nerrad567/peripheral-core/internal/infrastructure/config"
	"github.com/nerrad567/peripheral-core/internal/infrastructure/database"
	"github.com/nerrad567/peripheral-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/peripheral-core/internal/infrastructure/logging"
	"github.com/nerrad567/peripheral-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/peripheral-core/internal/monitor"
	"github.com/nerrad567/peripheral-core/internal/registry"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the service and blocks until ctx is cancelled. It is separate
// from main for testability.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting peripheral core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", configPath, "level", cfg.Logging.Level)

	db, err := database.Open(ctx, database.Config{
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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	store := registry.NewStore(db.DB)

	pcTag, err := resolvePCTag(ctx, cfg.Site)
	if err != nil {
		return err
	}
	log = log.With("lab_scope", cfg.Site.LabScope, "pc_tag", pcTag)

	engine := alert.NewEngine(store, alert.Thresholds{
		FaultyCycles: cfg.Detection.FaultyCycles,
		FaultyWindow: cfg.Detection.FaultyWindow,
		MissingAfter: cfg.Detection.MissingAfter,
	})
	engine.SetLogger(log.Component("alert"))

	opts := monitor.Options{
		LabScope:       cfg.Site.LabScope,
		PCTag:          pcTag,
		Registry:       store,
		Recorder:       engine,
		PollInterval:   cfg.Detection.PollInterval,
		EventRetention: cfg.Detection.EventRetention,
		Logger:         log.Component("monitor"),
	}

	capability := enumerate.DetectCapability(ctx)
	if capability.Compatible() {
		native := enumerate.NewSetupAPI()
		native.SetLogger(log.Component("enumerate"))
		opts.Enumerator = enumerate.WithTimeout(native, cfg.Detection.EnumerationTimeout)

		resolver := identity.NewResolver()
		resolver.SetLogger(log.Component("identity"))
		opts.Resolver = resolver
	} else {
		log.Warn("device detection unavailable",
			"capability", capability.Capability,
			"os", capability.OS,
			"platform", capability.Platform,
			"platform_version", capability.PlatformVersion,
			"message", capability.Message,
		)
	}

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT connected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		opts.Publisher = mqttClient
		opts.Subscriber = mqttClient
		// #nosec G115 -- validated to 0..2
		opts.IngestQoS = byte(cfg.MQTT.QoS)
	} else {
		log.Info("MQTT disabled")
	}

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
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)

		opts.Telemetry = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	notifier := monitor.NewNotifier(opts.Publisher, opts.Telemetry, log.Component("notify"))
	engine.SetNotifier(notifier)

	mon, err := monitor.New(opts)
	if err != nil {
		return fmt.Errorf("creating monitor: %w", err)
	}

	log.Info("initialisation complete")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return notifier.Run(gctx) })
	g.Go(func() error { return mon.Run(gctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("monitor stopped: %w", err)
	}

	log.Info("peripheral core stopped")
	return nil
}

// getConfigPath returns PERIPHCORE_CONFIG, or the default path.
func getConfigPath() string {
	if path := os.Getenv("PERIPHCORE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// resolvePCTag returns the configured PC tag, falling back to the host name.
func resolvePCTag(ctx context.Context, site config.SiteConfig) (string, error) {
	if site.PCTag != "" {
		return site.PCTag, nil
	}
	name, err := enumerate.Hostname(ctx)
	if err != nil {
		return "", fmt.Errorf("site.pc_tag is empty and the host name is unavailable: %w", err)
	}
	return name, nil
}

// healthCheck verifies every enabled connection. mqttClient and
// influxClient may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
