package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ben-mizel/commonspace/cliparse"
	"github.com/ben-mizel/commonspace/datastore"
	"github.com/ben-mizel/commonspace/db"
	"github.com/ben-mizel/commonspace/middleware"
	"github.com/ben-mizel/commonspace/router"
)

const version = "commonspace v0.1.0"

const shutdownTimeout = 10 * time.Second

// cfg is resolved from flags and env before any command runs
var cfg cliparse.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "commonspace",
	Short: "Commonspace serves the field survey data collection API",
	Long: `Commonspace stores public life studies, the surveys scheduled within them,
and the observations surveyors record. Each study gets its own data table.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	cliparse.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Create the schema if needed and start the HTTP server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		pool, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		mux := router.NewRouter(datastore.New(pool))

		server := http.Server{
			Handler:           middleware.CORS(mux),
			Addr:              ":" + strconv.Itoa(cfg.Port),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			// Wait for Ctrl-C or SIGTERM
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				slog.Error("graceful shutdown failed", "error", err)
				server.Close()
			}
		}()

		slog.Info("Listening", "port", cfg.Port)
		err = server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server closed", "error", err)
			return err
		}
		slog.Info("Server closed")
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema and exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, err := openDatabase(cmd.Context())
		if err != nil {
			return err
		}
		return pool.Close()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

// loadConfig resolves the configuration and installs the logger
func loadConfig(cmd *cobra.Command, args []string) error {
	// Skip for version command
	if cmd.Name() == versionCmd.Name() {
		return nil
	}

	var err error
	cfg, err = cliparse.Load(cmd.Flags())
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := parseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// openDatabase connects to PostgreSQL and creates the schema
func openDatabase(ctx context.Context) (*sql.DB, error) {
	pool, err := db.Open(ctx, cfg)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		return nil, err
	}

	if err := db.CreateSchema(ctx, pool); err != nil {
		slog.Error("schema creation failed", "error", err)
		pool.Close()
		return nil, err
	}
	slog.Info("Database schema ready")
	return pool, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}
