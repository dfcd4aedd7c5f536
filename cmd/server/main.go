/*
main.go - Application entry point

PURPOSE:
  Runs the certificate dashboard API and inspects its persisted snapshots.

COMMANDS:
  serve              Build every store, hydrate snapshots, serve the API
  snapshot [key]     List stored snapshot keys, or print one snapshot
                     (--clear deletes them all)
  config init [path] Write the default configuration as YAML

STARTUP SEQUENCE (serve):
  1. Load config (file, then env, then flags)
  2. Build the App: persister, data sources, stores
  3. Hydrate snapshots and confirm the stored session
  4. Start the refresh scheduler (first run fetches every collection)
  5. Start the HTTP server

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler and UI timers, close the database
  4. Exit

EXAMPLES:
  # Run with file database
  ./server serve --db ./data/certdash.db

  # Run without persistence on a different port
  ./server serve --db "" --port 3000

  # Show what the dashboard would restore
  ./server snapshot ui-storage --db ./data/certdash.db

ENVIRONMENT:
  CERTDASH_PORT, CERTDASH_DB, CERTDASH_REMOTE_URL (see config/config.go)

SEE ALSO:
  - api/server.go: Router configuration
  - factory/app.go: Store wiring
  - store/sqlite/sqlite.go: Snapshot database
*/
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/warp/certdash/api"
	"github.com/warp/certdash/config"
	"github.com/warp/certdash/factory"
	"github.com/warp/certdash/generic"
	"github.com/warp/certdash/store/sqlite"
)

var (
	configPath string
	dbPath     string
	port       int
	verbose    bool
	clearAll   bool

	logger *zap.Logger
)

// level is shared by the logger so the config file can adjust it after startup.
var level = zap.NewAtomicLevel()

var rootCmd = &cobra.Command{
	Use:   "certdash",
	Short: "Certificate management dashboard API",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			level.SetLevel(zapcore.DebugLevel)
		}
		cfg.Level = level
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API",
	RunE:  serve,
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [key]",
	Short: "List stored snapshots, or print the one stored under key",
	Args:  cobra.MaximumNArgs(1),
	RunE:  showSnapshot,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "certdash.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "certdash.yaml", "YAML config file (missing file means defaults)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite snapshot database (empty keeps snapshots in memory only)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	serveCmd.Flags().IntVar(&port, "port", 0, "HTTP server port (overrides config)")
	snapshotCmd.Flags().BoolVar(&clearAll, "clear", false, "delete every stored snapshot and the session")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(serveCmd, snapshotCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig applies flags over the config file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("db") {
		if dbPath == "" {
			cfg.Persistence.Driver = "memory"
		} else {
			cfg.Persistence.Driver = "sqlite"
			cfg.Persistence.Path = dbPath
		}
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !verbose {
		_ = level.UnmarshalText([]byte(cfg.Logging.Level))
	}
	return cfg, nil
}

// =============================================================================
// SERVE
// =============================================================================

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app, err := factory.Build(cfg, logger, reg)
	if err != nil {
		return fmt.Errorf("failed to build app: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("close failed", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Hydrate(ctx); err != nil {
		logger.Warn("some snapshots could not be restored", zap.Error(err))
	}

	scheduler := api.NewRefreshScheduler(app, cfg.Stores.RefreshInterval, logger)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(app)
	router := api.NewRouter(handler, api.RouterOptions{
		CORSOrigins: cfg.Server.CORSOrigins,
		Gatherer:    reg,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// =============================================================================
// SNAPSHOT
// =============================================================================

func showSnapshot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Persistence.Driver != "sqlite" {
		return errors.New("snapshots are only kept with the sqlite driver")
	}
	db, err := sqlite.New(cfg.Persistence.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	if clearAll {
		if err := db.Reset(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "cleared")
		return nil
	}
	if len(args) == 0 {
		entries, err := db.Entries(ctx)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Fprintf(out, "%-24s %6d bytes  %s\n", e.Key, len(e.Value), e.UpdatedAt.Format(time.RFC3339))
		}
		return nil
	}

	data, err := db.Load(ctx, args[0])
	if errors.Is(err, generic.ErrSnapshotNotFound) {
		return fmt.Errorf("no snapshot stored under %q", args[0])
	}
	if err != nil {
		return err
	}
	var pretty any
	if json.Unmarshal(data, &pretty) != nil {
		_, err = out.Write(append(data, '\n'))
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(pretty)
}
