package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/tenderscan/internal/aggregate"
	"github.com/nao1215/tenderscan/internal/config"
	"github.com/nao1215/tenderscan/internal/database"
	"github.com/nao1215/tenderscan/internal/model"
	"github.com/nao1215/tenderscan/internal/report"
)

// aggregateOptions holds the aggregate command flags.
type aggregateOptions struct {
	dir          string
	output       string
	markdownPath string
	fromDB       string
	dbDir        string
	top          int
}

// NewAggregateCmd creates the aggregate command.
func NewAggregateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Group fetched tenders by title and authority",
		Long: `Aggregate reads every CSV file under a directory (recursively), groups the
records by (title, authority), and writes the groups as JSON. Each group
lists its occurrences sorted by date.

With --from-db the records come from the history database instead of CSV
files.

Examples:
  # Aggregate ./data into ./data/agg.json
  tenderscan aggregate

  # Also write a Markdown summary
  tenderscan aggregate -d data --markdown summary.md

  # Aggregate everything ever fetched for a query
  tenderscan aggregate --from-db 台灣電力 -o taipower.json`,
		Args: cobra.NoArgs,
		RunE: runAggregateCmd,
	}

	cmd.Flags().StringP("dir", "d", config.DefaultOutputDir,
		"Directory to search for CSV files")
	cmd.Flags().StringP("output", "o", "",
		"Output JSON file (default: <dir>/agg.json)")
	cmd.Flags().String("markdown", "",
		"Also write a Markdown summary to this file")
	cmd.Flags().String("from-db", "",
		"Aggregate the stored tenders of this query instead of CSV files")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory holding the history database")
	cmd.Flags().Int("top", 5,
		"Number of repeated tenders listed in the terminal summary")

	return cmd
}

func runAggregateCmd(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	var opts aggregateOptions
	var err error

	if opts.dir, err = flags.GetString("dir"); err != nil {
		return err
	}
	if opts.output, err = flags.GetString("output"); err != nil {
		return err
	}
	if opts.markdownPath, err = flags.GetString("markdown"); err != nil {
		return err
	}
	if opts.fromDB, err = flags.GetString("from-db"); err != nil {
		return err
	}
	if opts.dbDir, err = flags.GetString("db-dir"); err != nil {
		return err
	}
	if opts.top, err = flags.GetInt("top"); err != nil {
		return err
	}
	if opts.output == "" {
		opts.output = filepath.Join(opts.dir, config.DefaultAggregateFile)
	}

	return runAggregate(cmd.Context(), opts, setupLogger(cmd), cmd.OutOrStdout())
}

func runAggregate(ctx context.Context, opts aggregateOptions, logger *slog.Logger, out io.Writer) error {
	records, err := loadRecords(ctx, opts, logger, out)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Start aggregating data...")
	groups := aggregate.Aggregate(records)
	fmt.Fprintln(out, "Finished aggregating data.")

	newJSON := func(w io.Writer) report.Writer { return report.NewJSONWriter(w, report.WithPrettyPrint()) }
	if err := writeReportFile(opts.output, newJSON, groups); err != nil {
		return err
	}
	fmt.Fprintf(out, "Aggregated data was saved to %s.\n", opts.output)

	if opts.markdownPath != "" {
		newMarkdown := func(w io.Writer) report.Writer { return report.NewMarkdownWriter(w) }
		if err := writeReportFile(opts.markdownPath, newMarkdown, groups); err != nil {
			return err
		}
		fmt.Fprintf(out, "Markdown summary was saved to %s.\n", opts.markdownPath)
	}

	_, err = report.NewTextWriter(out, report.WithTextTopN(opts.top)).Write(groups)
	return err
}

// loadRecords reads records from CSV files or, with --from-db, the database.
func loadRecords(ctx context.Context, opts aggregateOptions, logger *slog.Logger, out io.Writer) ([]model.TenderRecord, error) {
	if opts.fromDB != "" {
		db, err := database.Open(opts.dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		records, err := aggregate.FromStore(ctx, db, opts.fromDB)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(out, "Loaded %d record(s) for %q from the database.\n", len(records), opts.fromDB)
		return records, nil
	}

	records, stats, err := aggregate.LoadDir(ctx, opts.dir, aggregate.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "Loaded %d CSV file(s).\n", stats.Files)
	if stats.SkippedRows > 0 {
		fmt.Fprintf(out, "Skipped %d row(s) with a malformed date.\n", stats.SkippedRows)
	}
	return records, nil
}

// writeReportFile writes groups to path, creating parent directories.
func writeReportFile(path string, newWriter func(io.Writer) report.Writer, groups []model.AggregatedGroup) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if _, err := newWriter(f).Write(groups); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
