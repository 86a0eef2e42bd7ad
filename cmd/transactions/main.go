// Command transactions stages transaction CSV files, normalizes them into
// dimension and fact tables, and reports on the result.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/transactions/internal/commands"
	"github.com/JonMunkholm/transactions/internal/config"
	"github.com/JonMunkholm/transactions/internal/core"
	"github.com/JonMunkholm/transactions/internal/database"
	"github.com/JonMunkholm/transactions/internal/errs"
	"github.com/JonMunkholm/transactions/internal/logging"
	"github.com/JonMunkholm/transactions/internal/metrics"
	"github.com/JonMunkholm/transactions/internal/secrets"
)

// app is what every subcommand needs once configuration is resolved.
type app struct {
	cfg       *config.Config
	metrics   *metrics.Metrics
	service   *core.Service
	connector *database.Connector
}

var (
	cli app

	globalFlags struct {
		driver     string
		user       string
		password   string
		host       string
		port       int
		sqlitePath string
		logLevel   string
	}
)

var rootCmd = &cobra.Command{
	Use:   "transactions",
	Short: "Load transaction CSV files and query customer reports",
	Long: `transactions manages a small retail transactions database:

  setup    create the database and tables
  upload   stage a CSV file, correct it and populate the normalized tables
  query    run a named customer report
  serve    expose the reports over HTTP

Settings come from the environment (and a .env file); flags override them.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: bootstrap,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&globalFlags.driver, "db-driver", "postgres", "database driver: postgres or sqlite (env DB_DRIVER)")
	f.StringVar(&globalFlags.user, "db-user", "postgres", "database user (env DB_USER)")
	f.StringVar(&globalFlags.password, "db-password", "", "database password (env DB_PASSWORD)")
	f.StringVar(&globalFlags.host, "db-host", "127.0.0.1", "database host (env DB_HOST)")
	f.IntVar(&globalFlags.port, "db-port", 5432, "database port (env DB_PORT)")
	f.StringVar(&globalFlags.sqlitePath, "sqlite-path", "transactions.db", "database file for the sqlite driver (env SQLITE_PATH)")
	f.StringVar(&globalFlags.logLevel, "log-level", "info", "debug, info, warn or error (env LOG_LEVEL)")

	rootCmd.AddCommand(setupCmd, uploadCmd, queryCmd, serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if msg := errs.FormatUserError(err); msg != "" && errs.KindOf(err) != errs.KindUnknown {
			fmt.Fprintln(os.Stderr, "Error:", msg)
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// bootstrap loads .env and the environment, applies flag overrides and
// builds the shared service.
func bootstrap(cmd *cobra.Command, _ []string) error {
	// Overload lets .env win over variables already set in the shell.
	envErr := godotenv.Overload()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if envErr != nil {
		slog.Debug("no .env file found, using environment variables")
	}
	slog.Debug("configuration loaded", "config", cfg.String())

	if cfg.Database.PasswordSecret != "" {
		ctx := cmd.Context()
		mgr, err := secrets.New(ctx, cfg.Database.SecretRegion)
		if err != nil {
			return errs.Connectivity("resolve_password", err)
		}
		if err := secrets.ResolveDatabasePassword(ctx, mgr, &cfg.Database); err != nil {
			return errs.Connectivity("resolve_password", err)
		}
	}

	dialect, err := commands.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return err
	}
	reg, err := commands.New(dialect)
	if err != nil {
		return err
	}

	m := metrics.New()
	cli = app{
		cfg:       cfg,
		metrics:   m,
		service:   core.NewService(reg, m, cfg.Source.MaxBytes),
		connector: database.NewConnector(cfg.Connect, m),
	}
	return nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("db-driver") {
		cfg.Database.Driver = globalFlags.driver
	}
	if f.Changed("db-user") {
		cfg.Database.User = globalFlags.user
	}
	if f.Changed("db-password") {
		cfg.Database.Password = globalFlags.password
	}
	if f.Changed("db-host") {
		cfg.Database.Host = globalFlags.host
	}
	if f.Changed("db-port") {
		cfg.Database.Port = globalFlags.port
	}
	if f.Changed("sqlite-path") {
		cfg.Database.SQLitePath = globalFlags.sqlitePath
	}
	if f.Changed("log-level") {
		cfg.Logging.Level = globalFlags.logLevel
	}
}

// withSession opens a session with retries, runs fn and closes it.
func withSession(ctx context.Context, fn func(database.Session) error) error {
	logger := logging.WithFields(ctx, "user", cli.cfg.Database.User, "endpoint", cli.cfg.Database.Endpoint())

	sess, err := cli.connector.Connect(ctx, cli.cfg.Database)
	if err != nil {
		logger.Error("main: could not connect to database, exiting")
		return err
	}
	defer func() {
		if err := sess.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("main: close session", "error", err)
		}
	}()

	if err := fn(sess); err != nil {
		return err
	}
	logger.Info("main: completed")
	return nil
}
