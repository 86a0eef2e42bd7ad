package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/transactions/internal/core"
	"github.com/JonMunkholm/transactions/internal/database"
	"github.com/JonMunkholm/transactions/internal/errs"
	"github.com/JonMunkholm/transactions/internal/logging"
	"github.com/JonMunkholm/transactions/internal/report"
	"github.com/JonMunkholm/transactions/internal/source"
	"github.com/JonMunkholm/transactions/internal/web"
)

var setupFlags struct {
	dbName string
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the database (if needed) and create tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		dbName := flagOr(cmd, "db-name", setupFlags.dbName, cli.cfg.Database.Name)

		return withSession(ctx, func(sess database.Session) error {
			results, err := cli.service.Setup(ctx, sess, dbName)
			if results == nil && err != nil {
				return err
			}
			for _, r := range core.Failed(results) {
				fmt.Fprintf(os.Stderr, "table %s: %s\n", r.Key, errs.FormatUserError(r.Err))
			}
			fmt.Printf("Database %q ready (%d tables checked)\n", dbName, len(results))
			return nil
		})
	},
}

var uploadFlags struct {
	dbName  string
	csvFile string
}

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload CSV data into the database",
	Long: `Upload stages every record of the CSV file, applies the price
corrections and fills the stores, sales_representatives, clients,
products and transactions tables. --csv-file accepts a local path,
s3://bucket/key or gs://bucket/object.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		dbName := flagOr(cmd, "db-name", uploadFlags.dbName, cli.cfg.Database.Name)
		uri := flagOr(cmd, "csv-file", uploadFlags.csvFile, cli.cfg.Load.CSVFile)

		src, err := source.Parse(uri, cli.cfg.Source)
		if err != nil {
			return errs.SourceUnavailable("upload", uri, err)
		}

		return withSession(ctx, func(sess database.Session) error {
			res, err := cli.service.Upload(ctx, sess, dbName, src)
			if err != nil {
				return err
			}
			printUpload(res)
			return nil
		})
	},
}

func printUpload(res core.UploadResult) {
	s := res.Staging
	fmt.Printf("Read %d rows from %s: %d staged, %d skipped, %d failed\n",
		s.Read, s.Source, s.Staged, s.Skipped, s.Failed)
	for _, fr := range s.FailedRows {
		fmt.Fprintf(os.Stderr, "  line %d: %s\n", fr.LineNumber, fr.Reason)
	}
	if res.CorrectErr != nil {
		fmt.Fprintf(os.Stderr, "corrections: %s\n", errs.FormatUserError(res.CorrectErr))
	}
	for _, step := range res.Steps {
		status := fmt.Sprintf("%d rows", step.RowsAffected)
		if step.Err != nil {
			status = errs.FormatUserError(step.Err)
		}
		fmt.Printf("  %-30s %s\n", step.Key, status)
	}
	fmt.Printf("Run %s finished in %s\n", res.RunID, res.Duration.Round(time.Millisecond))
}

var queryFlags struct {
	dbName      string
	queryName   string
	storeName   string
	productName string
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		dbName := flagOr(cmd, "db-name", queryFlags.dbName, cli.cfg.Database.Name)
		name := flagOr(cmd, "query-name", queryFlags.queryName, cli.cfg.Query.Name)
		params := map[string]string{
			core.ParamStoreName:   flagOr(cmd, "store-name", queryFlags.storeName, cli.cfg.Query.StoreName),
			core.ParamProductName: flagOr(cmd, "product-name", queryFlags.productName, cli.cfg.Query.ProductName),
		}

		return withSession(ctx, func(sess database.Session) error {
			rows, err := cli.service.Query(ctx, sess, dbName, name, params)
			if core.Fatal(err) {
				return err
			}
			// A failed report prints like an empty one; the cause is logged.
			fmt.Printf("Results from %s:\n", name)
			return report.Write(os.Stdout, rows)
		})
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the reports over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		cfg := cli.cfg

		server := web.NewServer(cfg.Server, web.Options{
			Service:  cli.service,
			Opener:   cli.connector,
			Database: cfg.Database,
			Query:    cfg.Query,
			Metrics:  cli.metrics,
		})

		go func() {
			<-ctx.Done()
			slog.Info("shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				slog.Error("shutdown error", "error", err)
			}
		}()

		logging.FromContext(ctx).Info("serve: reports available", "addr", cfg.Server.Addr(), "reports", cli.service.Queries.Reports())
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	setupCmd.Flags().StringVar(&setupFlags.dbName, "db-name", "transactions", "database to create or verify (env DB_NAME)")

	uploadCmd.Flags().StringVar(&uploadFlags.dbName, "db-name", "transactions", "database to upload into (env DB_NAME)")
	uploadCmd.Flags().StringVar(&uploadFlags.csvFile, "csv-file", "./transactions.csv", "CSV path or s3:// / gs:// URI (env LOAD_CSV_FILE)")

	queryCmd.Flags().StringVar(&queryFlags.dbName, "db-name", "transactions", "database to query (env DB_NAME)")
	queryCmd.Flags().StringVar(&queryFlags.queryName, "query-name", "get_customers", "report to run (env QUERY_NAME)")
	queryCmd.Flags().StringVar(&queryFlags.storeName, "store-name", "King St", "store filter (env QUERY_STORE_NAME)")
	queryCmd.Flags().StringVar(&queryFlags.productName, "product-name", "cappuccino", "product filter (env QUERY_PRODUCT_NAME)")
}

// flagOr returns the flag value when it was set explicitly, def otherwise.
func flagOr(cmd *cobra.Command, name, val, def string) string {
	if cmd.Flags().Changed(name) {
		return val
	}
	return def
}
