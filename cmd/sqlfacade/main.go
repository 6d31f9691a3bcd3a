// sqlfacade - statement execution over an embedded SQL engine
//
// This command opens the configured database, applies migrations, wires
// logging, metrics and event observers, and then either runs a statement
// file and/or a query, or holds the connection until it is signalled.
//
// Usage:
//
//	sqlfacade -config configs/config.yaml -exec insert.sql -params rows.json
//	sqlfacade -query "SELECT * FROM friends WHERE id = ?" 1
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nerrad567/gray-logic-sqlfacade/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-sqlfacade/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-sqlfacade/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-sqlfacade/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-sqlfacade/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-sqlfacade/internal/observer"
	"github.com/nerrad567/gray-logic-sqlfacade/internal/sqlfacade"
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

// options holds command-line flags.
type options struct {
	configPath string
	execFile   string
	paramsFile string
	query      string
	queryArgs  []string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags reads flags from args. Arguments after the flags are text
// parameters for -query.
func parseFlags(args []string) (options, error) {
	var opts options

	fs := flag.NewFlagSet("sqlfacade", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.configPath, "config", "", "configuration file (default $SQLFACADE_CONFIG or "+defaultConfigPath+")")
	fs.StringVar(&opts.execFile, "exec", "", "file holding one statement to run in a transaction")
	fs.StringVar(&opts.paramsFile, "params", "", "JSON array of text parameter sets for -exec")
	fs.StringVar(&opts.query, "query", "", "query to run; results are printed as JSON lines")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	opts.queryArgs = fs.Args()

	if opts.paramsFile != "" && opts.execFile == "" {
		return options{}, errors.New("-params requires -exec")
	}
	if len(opts.queryArgs) > 0 && opts.query == "" {
		return options{}, fmt.Errorf("unexpected arguments %q without -query", opts.queryArgs)
	}
	if opts.configPath == "" {
		opts.configPath = getConfigPath()
	}
	return opts, nil
}

// run is the application logic, separated from main for testability.
// Query rows are written to stdout.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return fmt.Errorf("parsing flags: %w", err)
	}

	log := logging.Default()
	log.Info("starting sqlfacade",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", opts.configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	obs, closeObservers, err := buildObservers(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeObservers()

	facade := sqlfacade.New(database.Config{
		Driver:      strings.ToLower(cfg.Database.Driver),
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
		ForeignKeys: cfg.Database.ForeignKeys,
	},
		sqlfacade.WithLogger(log),
		sqlfacade.WithObserver(obs),
	)

	if err := facade.Connect(ctx, cfg.Database.Path); err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := facade.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	if cfg.Migrations.Dir != "" {
		if err := facade.Migrate(ctx, os.DirFS(cfg.Migrations.Dir), "."); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		log.Info("database migrations complete", "dir", cfg.Migrations.Dir)
	}

	if err := facade.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if opts.execFile == "" && opts.query == "" {
		log.Info("initialisation complete, waiting for shutdown signal")
		<-ctx.Done()
		log.Info("shutdown signal received, cleaning up")
		return nil
	}

	if opts.execFile != "" {
		if err := execFile(ctx, facade, opts.execFile, opts.paramsFile); err != nil {
			return err
		}
		log.Info("statement file applied", "path", opts.execFile)
	}

	if opts.query != "" {
		if err := printQuery(ctx, facade, opts.query, opts.queryArgs, stdout); err != nil {
			return err
		}
	}

	return nil
}

// getConfigPath returns the configuration file path.
// Uses SQLFACADE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("SQLFACADE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// buildObservers connects the enabled event and metric sinks. On success the
// returned cleanup closes them in reverse order; on failure nothing is left open.
func buildObservers(ctx context.Context, cfg *config.Config, log *logging.Logger) (sqlfacade.Observer, func(), error) {
	obs := observer.Multi{observer.NewLogging(log)}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Metrics.Enabled {
		influxClient, err := influxdb.Connect(ctx, cfg.Metrics)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		closers = append(closers, func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		})
		obs = append(obs, observer.NewMetrics(influxClient))
		log.Info("InfluxDB connected",
			"url", cfg.Metrics.URL,
			"org", cfg.Metrics.Org,
			"bucket", cfg.Metrics.Bucket,
		)
	} else {
		log.Info("metrics disabled")
	}

	if cfg.Events.Enabled {
		mqttClient, err := mqtt.Connect(cfg.Events)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connecting to MQTT: %w", err)
		}
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		events := observer.NewEvents(mqttClient, mqttClient.Topics(), log)
		closers = append(closers, func() {
			log.Info("disconnecting from MQTT")
			events.Close()
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		})
		obs = append(obs, events)
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.Events.Broker.Host, cfg.Events.Broker.Port),
			"client_id", cfg.Events.Broker.ClientID,
		)
	} else {
		log.Info("events disabled")
	}

	return obs, cleanup, nil
}

// execFile runs the statement in path inside one transaction, once per
// parameter set in paramsPath, or once without parameters.
func execFile(ctx context.Context, facade *sqlfacade.Facade, path, paramsPath string) error {
	stmt, err := os.ReadFile(path) // #nosec G304 -- path is an operator-supplied flag
	if err != nil {
		return fmt.Errorf("reading statement file: %w", err)
	}

	var sets [][]sqlfacade.Value
	if paramsPath != "" {
		sets, err = loadParamSets(paramsPath)
		if err != nil {
			return err
		}
	}

	if err := facade.ExecuteWithTransaction(ctx, strings.TrimSpace(string(stmt)), sets); err != nil {
		return fmt.Errorf("executing %s: %w", path, err)
	}
	return nil
}

// loadParamSets reads a JSON array of string arrays, e.g. [["1","John"]].
// An empty array or null is rejected rather than run as an empty batch.
func loadParamSets(path string) ([][]sqlfacade.Value, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is an operator-supplied flag
	if err != nil {
		return nil, fmt.Errorf("reading parameter file: %w", err)
	}

	var raw [][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing parameter file: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("parameter file %s holds no parameter sets", path)
	}

	sets := make([][]sqlfacade.Value, len(raw))
	for i, set := range raw {
		sets[i] = sqlfacade.Texts(set...)
	}
	return sets, nil
}

// printQuery runs query with text args and writes one JSON object per row.
func printQuery(ctx context.Context, facade *sqlfacade.Facade, query string, args []string, w io.Writer) error {
	var params []sqlfacade.Value
	if len(args) > 0 {
		params = sqlfacade.Texts(args...)
	}

	rows, err := facade.Query(ctx, query, params)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	enc := json.NewEncoder(w)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	return nil
}
