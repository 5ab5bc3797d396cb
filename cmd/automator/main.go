// Automator - local automation runtime.
//
// Binds triggers (schedules, webhooks, file changes, polled feeds, host
// metrics, MQTT topics) to conditions and actions, with at most one run
// per automation in flight at a time.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-automator/internal/api"
	"github.com/nerrad567/gray-logic-automator/internal/automation"
	"github.com/nerrad567/gray-logic-automator/internal/automation/action"
	"github.com/nerrad567/gray-logic-automator/internal/automation/condition"
	"github.com/nerrad567/gray-logic-automator/internal/automation/trigger"
	"github.com/nerrad567/gray-logic-automator/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-automator/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-automator/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-automator/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-automator/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-automator/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// feedCheckTimeout bounds one email or calendar feed request.
const feedCheckTimeout = 30 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the runtime and blocks until ctx is cancelled.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting automator",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := loadConfig(getConfigPath())
	if err != nil {
		return err
	}

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(cfg.Database)
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

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// MQTT (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		mqttClient.SetLogger(log)
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
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB (optional)
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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	store := automation.NewSQLiteStore(db.DB)
	engine := newEngine(cfg, store, log, mqttClient, influxClient)

	if mqttClient != nil {
		unmirror := engine.Subscribe(eventMirror(mqttClient, log))
		defer unmirror()
	}

	if loadErr := engine.Load(ctx); loadErr != nil {
		engine.Close() //nolint:errcheck // startup failure path
		return fmt.Errorf("loading automations: %w", loadErr)
	}
	if seedErr := applySeed(ctx, engine, cfg.Automation.SeedFile, log); seedErr != nil {
		engine.Close() //nolint:errcheck // startup failure path
		return seedErr
	}
	log.Info("automation engine ready",
		"automations", len(engine.List()),
		"kinds", engine.Types().Kinds(),
	)

	srv, err := api.New(api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Logger:  log,
		Engine:  engine,
		Runs:    store,
		MQTT:    mqttClient,
		DB:      db.DB,
		Version: version,
	})
	if err != nil {
		engine.Close() //nolint:errcheck // startup failure path
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		engine.Close() //nolint:errcheck // startup failure path
		return fmt.Errorf("starting API server: %w", err)
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient, srv); err != nil {
		log.Warn("health check failed", "error", err)
	}

	log.Info("initialisation complete, waiting for shutdown signal", "api", srv.Addr())

	// Stop accepting API requests and release trigger bindings together.
	// Deferred closes then run in reverse: InfluxDB, MQTT, database.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		return srv.Close()
	})
	g.Go(func() error {
		<-gctx.Done()
		return engine.Close()
	})
	err = g.Wait()

	log.Info("automator stopped")
	return err
}

// newEngine builds the engine and registers every built-in kind.
func newEngine(cfg *config.Config, store *automation.SQLiteStore, log *logging.Logger, mqttClient *mqtt.Client, influxClient *influxdb.Client) *automation.Engine {
	opts := []automation.Option{
		automation.WithLogger(log.Component("automation")),
		automation.WithRunRecorder(store),
	}
	if influxClient != nil {
		opts = append(opts, automation.WithRunRecorder(influxRecorder{client: influxClient}))
	}
	engine := automation.NewEngine(store, opts...)

	triggerOpts := trigger.Options{
		Logger:           log.Component("trigger"),
		WebhookHost:      cfg.Automation.WebhookHost,
		EmailInterval:    cfg.Automation.EmailInterval,
		CalendarInterval: cfg.Automation.CalendarInterval,
		SystemInterval:   cfg.Automation.SystemInterval,
		EmailDedupSize:   cfg.Automation.EmailDedupSize,
		EmailDedupWindow: cfg.Automation.EmailDedupWindow,
		Email:            trigger.NewFeedChecker(feedCheckTimeout),
		Calendar:         trigger.NewFeedChecker(feedCheckTimeout),
		Sampler:          trigger.HostSampler{},
	}
	actionOpts := action.Options{
		Shell:   cfg.Automation.Shell,
		Timeout: cfg.Automation.ShellTimeout,
	}

	// Assigned only when non-nil so the interfaces stay nil without a broker.
	if mqttClient != nil {
		triggerOpts.Subscriber = mqttClient
		actionOpts.Publisher = mqttClient
	}
	if influxClient != nil {
		triggerOpts.SampleSink = systemSampleSink(influxClient, cfg.Site.ID)
	}

	trigger.Register(engine.Types(), triggerOpts)
	condition.Register(engine.Types())
	action.Register(engine.Types(), actionOpts)

	return engine
}

// applySeed upserts the definitions in path. Definitions that fail to
// validate or bind are logged; a missing or unreadable file is fatal.
func applySeed(ctx context.Context, engine *automation.Engine, path string, log *logging.Logger) error {
	if path == "" {
		return nil
	}

	defs, err := automation.LoadSeed(path)
	if err != nil {
		return fmt.Errorf("loading seed file: %w", err)
	}

	applied, err := engine.Apply(ctx, defs)
	if err != nil {
		log.Warn("some seed automations were not applied", "path", path, "error", err)
	}
	log.Info("seed file applied", "path", path, "applied", applied, "total", len(defs))
	return nil
}

// loadConfig reads path, falling back to built-in defaults when the file
// does not exist.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && os.Getenv("AUTOMATOR_CONFIG") == "" {
		cfg, defErr := config.Default()
		if defErr != nil {
			return nil, fmt.Errorf("loading default config: %w", defErr)
		}
		return cfg, nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// getConfigPath returns the configuration file path.
// Uses AUTOMATOR_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("AUTOMATOR_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies every started component.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, srv *api.Server) error {
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
	if err := srv.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}
