/*
main.go - Application entry point

PURPOSE:
  Command line for the payroll engine: serves the HTTP API, applies
  migrations, ingests a local timefile and prints the payroll report.
  Handles configuration, dependency injection, and graceful shutdown.

COMMANDS:
  serve    Start the HTTP server (default)
  migrate  Apply database migrations and exit
  ingest   Run the pipeline on a local timefile
  report   Print the payroll report as JSON or CSV

FLAGS:
  --config  Path to a YAML or TOML config file (env: PAYROLL_CONFIG)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (server.shutdown_timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with the default sqlite file
  ./server serve

  # Ingest a file against an in-memory database
  PAYROLL_DATABASE_PATH=":memory:" ./server ingest --file time-report-42.csv

  # Export the report
  ./server report --format csv > payroll.csv

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Settings and environment overrides
  - store/sqlite, store/mysql: Database implementations
*/
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/warp/payroll-engine/api"
	"github.com/warp/payroll-engine/config"
	"github.com/warp/payroll-engine/ingest"
	"github.com/warp/payroll-engine/logger"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/mysql"
	"github.com/warp/payroll-engine/store/sqlite"
	"github.com/warp/payroll-engine/store/sqlstore"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "server",
	Short:         "Timefile ingestion and payroll report service",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}

		store, version, err := openStore(cfg.Database)
		if err != nil {
			return err
		}
		defer store.Close()

		log.Info().Str("driver", cfg.Database.Driver).Uint("version", version).Msg("database migrated")
		return nil
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run the ingestion pipeline on a local timefile",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")

		cfg, log, err := setup()
		if err != nil {
			return err
		}

		store, _, err := openStore(cfg.Database)
		if err != nil {
			return err
		}
		defer store.Close()

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open timefile: %w", err)
		}
		defer f.Close()

		src, err := ingest.Open(path, f)
		if err != nil {
			return err
		}

		pipeline := payroll.NewPipeline(store, store, log, cfg.Ingestion.StoreTimeout)
		res, err := pipeline.Run(cmd.Context(), src)
		if err != nil {
			return errors.New(payroll.PublicMessage(err))
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Ingested report %s: %d records, %d payroll rows\n",
			res.ReportID, res.Records, len(res.Report))
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the payroll report",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		cfg, log, err := setup()
		if err != nil {
			return err
		}

		store, _, err := openStore(cfg.Database)
		if err != nil {
			return err
		}
		defer store.Close()

		pipeline := payroll.NewPipeline(store, store, log, cfg.Ingestion.StoreTimeout)
		rows, err := pipeline.Report(cmd.Context())
		if err != nil {
			return errors.New(payroll.PublicMessage(err))
		}
		return printReport(cmd.OutOrStdout(), format, rows)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML or TOML config file")

	ingestCmd.Flags().StringP("file", "f", "", "timefile to ingest (.csv or .xlsx)")
	ingestCmd.MarkFlagRequired("file")

	reportCmd.Flags().String("format", "json", "output format: json or csv")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(reportCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// SERVE
// =============================================================================

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	// Initialize store
	store, version, err := openStore(cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()
	log.Info().Str("driver", cfg.Database.Driver).Uint("schema_version", version).Msg("database ready")

	// Initialize handler
	pipeline := payroll.NewPipeline(store, store, log, cfg.Ingestion.StoreTimeout)
	handler := api.NewHandler(pipeline, log, cfg.Ingestion.MaxUploadBytes)
	handler.Pinger = store

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(handler, cfg.Server.AllowedOrigins),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	// Wait for interrupt signal
	select {
	case err := <-errc:
		return fmt.Errorf("server failed: %w", err)
	case <-cmd.Context().Done():
	}

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func setup() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, logger.New(cfg.Logging, os.Stderr), nil
}

// openStore opens and migrates the configured database.
func openStore(cfg config.DatabaseConfig) (*sqlstore.Store, uint, error) {
	switch cfg.Driver {
	case config.DriverMySQL:
		db, err := mysql.Open(cfg.DSN(), mysql.Pool{
			MaxOpenConns:    cfg.MaxConnections,
			MaxIdleConns:    cfg.MaxIdleConnections,
			ConnMaxLifetime: cfg.ConnectionLifetime,
		})
		if err != nil {
			return nil, 0, err
		}
		version, err := mysql.Migrate(db)
		if err != nil {
			db.Close()
			return nil, 0, fmt.Errorf("failed to migrate database: %w", err)
		}
		return sqlstore.New(db, mysql.Dialect), version, nil

	default:
		db, err := sqlite.Open(cfg.DSN())
		if err != nil {
			return nil, 0, err
		}
		version, err := sqlite.Migrate(db)
		if err != nil {
			db.Close()
			return nil, 0, fmt.Errorf("failed to migrate database: %w", err)
		}
		return sqlstore.New(db, sqlite.Dialect), version, nil
	}
}

func printReport(w io.Writer, format string, rows []payroll.PayrollRow) error {
	lines := api.NewPayrollRowDTOs(rows)

	switch format {
	case "csv":
		return gocsv.Marshal(lines, w)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(lines)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
