package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nao1215/tenderscan/internal/config"
	"github.com/nao1215/tenderscan/internal/database"
	"github.com/nao1215/tenderscan/internal/model"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [query]",
		Short: "Show past fetch runs from the history database",
		Long: `History lists what earlier fetch runs recorded.

Without a query it lists every query in the database. With a query it
lists the runs for that query, newest first. --run shows the per-year
results of one run, and --new lists the tenders that run saw for the
first time.

Examples:
  # List all queries
  tenderscan history

  # List runs for a query
  tenderscan history 台灣電力

  # Per-year results and new tenders of the latest run
  tenderscan history 台灣電力 --new

  # Per-year results of a specific run
  tenderscan history 台灣電力 --run 1b4e28ba-2fa1-11d2-883f-0016d3cca427`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("run", "",
		"Show per-year results for this run ID")
	cmd.Flags().Bool("new", false,
		"List tenders first seen by the run (default: the latest run)")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory holding the history database")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	runFlag, err := flags.GetString("run")
	if err != nil {
		return err
	}
	showNew, err := flags.GetBool("new")
	if err != nil {
		return err
	}
	jsonOutput, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	if len(args) == 0 && (runFlag != "" || showNew) {
		return errors.New("a query is required with --run or --new")
	}
	var runID uuid.UUID
	if runFlag != "" {
		if runID, err = uuid.Parse(runFlag); err != nil {
			return fmt.Errorf("invalid run ID %q: %w", runFlag, err)
		}
	}

	out := cmd.OutOrStdout()

	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if errors.Is(err, database.ErrDatabaseNotFound) {
		fmt.Fprintln(out, "No history database found.")
		fmt.Fprintln(out, "\nUse 'tenderscan fetch <query>' to fetch tenders.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()

	if len(args) == 0 {
		return listQueries(ctx, db, out)
	}
	query := args[0]

	if runFlag == "" && !showNew {
		return listRuns(ctx, db, query, out, jsonOutput)
	}

	if runFlag == "" {
		latest, err := db.LatestRun(ctx, query)
		if err != nil {
			return err
		}
		if latest == nil {
			fmt.Fprintf(out, "No fetch history found for %s\n", query)
			return nil
		}
		runID = latest.ID
	} else if err := checkRunQuery(ctx, db, query, runID); err != nil {
		return err
	}

	return showRun(ctx, db, runID, showNew, out, jsonOutput)
}

// checkRunQuery reports an error unless runID is one of query's runs.
func checkRunQuery(ctx context.Context, db *database.TenderDB, query string, runID uuid.UUID) error {
	runs, err := db.ListRuns(ctx, query)
	if err != nil {
		return err
	}
	for _, r := range runs {
		if r.ID == runID {
			return nil
		}
	}
	return fmt.Errorf("run %s not found for %s", runID, query)
}

func listQueries(ctx context.Context, db *database.TenderDB, out io.Writer) error {
	queries, err := db.ListQueries(ctx)
	if err != nil {
		return err
	}

	if len(queries) == 0 {
		fmt.Fprintln(out, "No fetch runs found in the database.")
		fmt.Fprintln(out, "\nUse 'tenderscan fetch <query>' to fetch tenders.")
		return nil
	}

	fmt.Fprintf(out, "Fetched queries (%d):\n\n", len(queries))
	for _, q := range queries {
		fmt.Fprintf(out, "  • %s\n", q)
	}
	fmt.Fprintln(out, "\nUse 'tenderscan history <query>' to see the runs for a query.")

	return nil
}

func listRuns(ctx context.Context, db *database.TenderDB, query string, out io.Writer, jsonOutput bool) error {
	runs, err := db.ListRuns(ctx, query)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(out, runs)
	}

	if len(runs) == 0 {
		fmt.Fprintf(out, "No fetch history found for %s\n", query)
		fmt.Fprintln(out, "\nUse 'tenderscan fetch' to fetch this query.")
		return nil
	}

	fmt.Fprintf(out, "Fetch history for %s (%d runs):\n\n", query, len(runs))
	fmt.Fprintf(out, "  %-36s  %-19s  %5s  %7s  %6s  %5s\n", "Run ID", "Started", "Years", "Records", "Failed", "New")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 90))
	for _, r := range runs {
		fmt.Fprintf(out, "  %-36s  %-19s  %5d  %7d  %6d  %5d\n",
			r.ID.String(),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Years,
			r.Records,
			r.FailedYears,
			r.NewTenders,
		)
	}
	fmt.Fprintln(out, "\nUse 'tenderscan history <query> --run <id>' to see the years of a run.")

	return nil
}

// runDetail is the JSON form of --run and --new output.
type runDetail struct {
	RunID      uuid.UUID             `json:"run_id"`
	Years      []database.YearResult `json:"years"`
	NewTenders []model.TenderRecord  `json:"new_tenders,omitempty"`
}

func showRun(ctx context.Context, db *database.TenderDB, runID uuid.UUID, showNew bool, out io.Writer, jsonOutput bool) error {
	years, err := db.YearResults(ctx, runID)
	if err != nil {
		return err
	}
	if len(years) == 0 {
		return fmt.Errorf("run %s not found", runID)
	}

	var added []model.TenderRecord
	if showNew {
		if added, err = db.NewTenders(ctx, runID); err != nil {
			return err
		}
	}

	if jsonOutput {
		return writeJSON(out, runDetail{RunID: runID, Years: years, NewTenders: added})
	}

	fmt.Fprintf(out, "Run %s:\n\n", runID)
	fmt.Fprintf(out, "  %-6s  %-8s  %5s  %6s  %7s  %s\n", "Year", "Status", "Pages", "Failed", "Records", "Output")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 70))
	for _, y := range years {
		fmt.Fprintf(out, "  %-6d  %-8s  %5d  %6d  %7d  %s\n",
			y.Year+model.EraOffset,
			y.Status,
			y.PageParam.Count,
			y.PagesFailed,
			y.Records,
			orNone(y.OutputPath),
		)
		if y.Error != "" {
			fmt.Fprintf(out, "          error: %s\n", y.Error)
		}
	}

	if showNew {
		fmt.Fprintf(out, "\nNew tenders (%d):\n\n", len(added))
		for _, r := range added {
			fmt.Fprintf(out, "  %-10s  %s / %s\n", orNone(r.DateString()), r.Title, r.Authority)
		}
	}

	return nil
}

func orNone(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func writeJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(v)
}
