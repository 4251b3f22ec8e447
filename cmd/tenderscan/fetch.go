package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nao1215/tenderscan/internal/config"
	"github.com/nao1215/tenderscan/internal/crawler"
	"github.com/nao1215/tenderscan/internal/database"
	"github.com/nao1215/tenderscan/internal/metrics"
	"github.com/nao1215/tenderscan/internal/model"
	"github.com/nao1215/tenderscan/internal/pipeline"
	"github.com/nao1215/tenderscan/internal/session"
)

// errYearsFailed is returned when at least one year could not be crawled.
var errYearsFailed = errors.New("some years failed")

// NewFetchCmd creates the fetch command.
func NewFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <query>",
		Short: "Crawl the tender bulletin and save one CSV file per year",
		Long: `Fetch searches the tender bulletin for query, one fiscal year at a time,
and writes {outdir}/{query}_{year}.csv for every year.

The site is validated with a handshake request first. All years share one
HTTP session so that cookies issued by the site are reused. Requests are
spaced by --spacing to stay under the site's rate limit.

Examples:
  # Every year from 88 (1999) to the current year
  tenderscan fetch 台灣電力

  # Only 2020 to 2024
  tenderscan fetch 台灣電力 -t 109,113

  # Keep going when a page cannot be parsed, and write metrics
  tenderscan fetch 台灣電力 --continue-on-failure --metrics-file tenderscan.prom`,
		Args: cobra.ExactArgs(1),
		RunE: runFetchCmd,
	}

	cmd.Flags().IntSliceP("time-range", "t", nil,
		"Fiscal year range in Minguo years as START,END (default: 88 to the current year)")
	cmd.Flags().StringP("outdir", "o", config.DefaultOutputDir,
		"Output directory for CSV files")
	cmd.Flags().Duration("spacing", config.DefaultRequestSpacing,
		"Minimum delay between requests")
	cmd.Flags().Duration("timeout", config.DefaultTimeout,
		"Timeout for each request attempt")
	cmd.Flags().Int("retries", config.DefaultMaxRetries,
		"Retries after a failed request")
	cmd.Flags().Bool("continue-on-failure", false,
		"Keep paging after a page fails to parse")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (host:port)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .tenderscan.yaml in current or home directory)")
	cmd.Flags().Bool("no-db", false,
		"Do not record the run in the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory holding the history database")
	cmd.Flags().String("metrics-file", "",
		"Write Prometheus metrics to this file when the run ends")

	return cmd
}

func runFetchCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildFetchConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runFetch(ctx, cfg, logger, cmd.OutOrStdout())
}

// buildFetchConfig merges defaults, the config file and flags, in that
// order of increasing precedence. Only flags set on the command line
// override the file.
func buildFetchConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		file.Apply(cfg)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	if len(args) > 0 {
		cfg.Query = args[0]
	}

	if flags.Changed("time-range") {
		years, err := flags.GetIntSlice("time-range")
		if err != nil {
			return nil, err
		}
		if len(years) != 2 {
			return nil, fmt.Errorf("--time-range needs exactly two years (START,END), got %d", len(years))
		}
		cfg.StartYear, cfg.EndYear = years[0], years[1]
	}

	if flags.Changed("outdir") {
		if cfg.OutputDir, err = flags.GetString("outdir"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("spacing") {
		if cfg.RequestSpacing, err = flags.GetDuration("spacing"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("retries") {
		if cfg.MaxRetries, err = flags.GetInt("retries"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("continue-on-failure") {
		if cfg.ContinueOnPageFailure, err = flags.GetBool("continue-on-failure"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("proxy") {
		if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
			return nil, err
		}
	}

	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB

	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	if cfg.MetricsFile, err = flags.GetString("metrics-file"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// runFetch performs the handshake and crawls every configured year.
func runFetch(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	startTime := time.Now()

	var recorder *metrics.Recorder
	sessionOpts := []session.Option{session.WithLogger(logger)}
	crawlerOpts := []crawler.Option{
		crawler.WithLogger(logger),
		crawler.WithContinueOnPageFailure(cfg.ContinueOnPageFailure),
	}
	if cfg.MetricsFile != "" {
		recorder = metrics.NewRecorder()
		sessionOpts = append(sessionOpts, session.WithObserver(recorder))
		crawlerOpts = append(crawlerOpts, crawler.WithObserver(recorder))
	}

	sess, err := session.New(cfg, sessionOpts...)
	if err != nil {
		return err
	}
	if err := sess.Handshake(ctx); err != nil {
		return err
	}
	crawlerOpts = append(crawlerOpts, crawler.WithSite(sess.Site()))

	var db *database.TenderDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
	}

	c := crawler.New(sess, crawlerOpts...)
	factory := func() *pipeline.Pipeline {
		p := pipeline.New(
			pipeline.WithLogger(logger),
			pipeline.WithContinueOnError(true),
		)
		p.AddSteps(
			pipeline.NewCrawlStep(c, pipeline.WithCrawlLogger(logger)),
			pipeline.NewCSVStep(cfg.OutputDir, logger),
		)
		if db != nil {
			p.AddStep(pipeline.NewStoreStep(db))
		}
		return p
	}

	failed := 0
	runner := pipeline.NewYearRunner(factory,
		pipeline.WithRunnerLogger(logger),
		pipeline.WithYearCallback(func(run *model.YearRun) {
			if recorder != nil {
				recorder.ObserveYear(run)
			}
			if run.Error != nil {
				failed++
				fmt.Fprintf(out, "Failed to fetch %d: %v\n", run.GregorianYear(), run.Error)
				return
			}
			fmt.Fprintf(out, "%d record(s) found in %d.\n", run.RecordCount(), run.GregorianYear())
		}),
	)

	runs, runErr := runner.Run(ctx, uuid.New(), cfg.Query, cfg.Years())

	if recorder != nil {
		recorder.ObserveRun(time.Since(startTime), time.Now())
		if err := recorder.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Error("failed to write metrics", "path", cfg.MetricsFile, "error", err)
		}
	}

	if runErr != nil {
		return runErr
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", errYearsFailed, failed, len(runs))
	}
	return nil
}
