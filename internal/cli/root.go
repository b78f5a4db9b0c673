// Package cli implements the ksqlplan command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/matthewbaird/ksqlplan/internal/config"
	"github.com/matthewbaird/ksqlplan/internal/metastore"
	"github.com/matthewbaird/ksqlplan/internal/plan"
	"github.com/matthewbaird/ksqlplan/internal/planner"
	"github.com/matthewbaird/ksqlplan/internal/server"
)

// NewRootCommand builds the ksqlplan command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "ksqlplan",
		Short:         "Logical planner for streaming SQL statements",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(newExplainCommand(), newServeCommand(), newCatalogCommand())
	return root
}

func newExplainCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "explain [statement]",
		Short: "Plan a SELECT statement and print its logical plan",
		Long:  "Plan a SELECT statement and print its logical plan. With no argument the statement is read from standard input.",
		Example: `ksqlplan explain "SELECT col0, col2 INTO out FROM s1 WHERE col0 > 100"
echo "SELECT * INTO copy FROM s2" | ksqlplan explain --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("unknown format %q: want text or json", format)
			}
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			sql, err := statement(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			cat, err := config.LoadCatalog(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cat.Close()

			root, err := planner.PlanStatement(cat.Streams, sql)
			if err != nil {
				return err
			}
			return printPlan(cmd.OutOrStdout(), root, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text or json")
	return cmd
}

func statement(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading statement: %w", err)
	}
	sql := strings.TrimSpace(string(b))
	if sql == "" {
		return "", fmt.Errorf("no statement given")
	}
	return sql, nil
}

func printPlan(w io.Writer, root plan.Node, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(plan.ToView(root))
	}
	_, err := io.WriteString(w, plan.Explain(root))
	return err
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the planner API, REPL and metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			return Serve(cmd.Context(), cfg, cmd.ErrOrStderr())
		},
	}
}

// Serve loads the catalog and runs the HTTP server until ctx is cancelled.
func Serve(ctx context.Context, cfg config.Config, logOut io.Writer) error {
	logger := config.NewLogger(cfg, logOut)
	cat, err := config.LoadCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	defer cat.Close()

	reg := prometheus.NewRegistry()
	server.RegisterRuntimeMetrics(reg)

	return server.New(server.Config{
		Port:          cfg.Port,
		Catalog:       cat.Streams,
		Store:         cat.Store,
		SessionIdle:   cfg.SessionIdle,
		SessionMaxAge: cfg.SessionMaxAge,
		Logger:        logger,
		Registry:      reg,
	}).Run(ctx)
}

func newCatalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and import stream catalogs",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the streams of the configured catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			cat, err := config.LoadCatalog(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cat.Close()

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "# source: %s\n", cat.Source)
			for _, s := range cat.Streams.AllStreams() {
				cols := make([]string, len(s.Columns))
				for i, c := range s.Columns {
					cols[i] = c.Name + " " + c.Type.String()
				}
				fmt.Fprintf(w, "%s\ttopic=%s\tformat=%s\tkey=%s\t(%s)\n", s.Name, s.Topic, s.Format, s.Key, strings.Join(cols, ", "))
			}
			return nil
		},
	}

	importCmd := &cobra.Command{
		Use:   "import <catalog.cue>",
		Short: "Validate a CUE catalog and store its streams in the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("--database-url is required")
			}
			n, err := importCatalog(cmd.Context(), args[0], cfg.DatabaseURL)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d streams from %s\n", n, args[0])
			return nil
		},
	}

	cmd.AddCommand(list, importCmd)
	return cmd
}

func importCatalog(ctx context.Context, path, dsn string) (int, error) {
	ms, err := metastore.LoadCUE(path)
	if err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	store, err := metastore.OpenSQLite(ctx, dsn)
	if err != nil {
		return 0, err
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		return 0, err
	}
	if err := store.SaveAll(ctx, ms); err != nil {
		return 0, err
	}
	return ms.Len(), nil
}

// Execute runs the root command and exits non-zero on failure.
func Execute(ctx context.Context) {
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
