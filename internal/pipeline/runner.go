package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/tenderscan/internal/model"
)

// YearRunner runs a pipeline for each fiscal year of a query, in order.
// Years share one session, so they are never processed concurrently.
type YearRunner struct {
	// pipelineFactory creates a fresh pipeline for each year.
	pipelineFactory func() *Pipeline

	logger *slog.Logger

	// onYear is called after each year's pipeline finishes.
	onYear func(run *model.YearRun)
}

// RunnerOption configures a YearRunner.
type RunnerOption func(*YearRunner)

// WithRunnerLogger sets a custom logger for the runner.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *YearRunner) {
		r.logger = logger
	}
}

// WithYearCallback registers fn to be called with every finished year,
// including failed ones.
func WithYearCallback(fn func(run *model.YearRun)) RunnerOption {
	return func(r *YearRunner) {
		r.onYear = fn
	}
}

// NewYearRunner creates a YearRunner.
func NewYearRunner(pipelineFactory func() *Pipeline, opts ...RunnerOption) *YearRunner {
	r := &YearRunner{
		pipelineFactory: pipelineFactory,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}

	return r
}

// Run processes years in the given order under runID.
//
// A failed year does not stop the run; its error is kept on the returned
// YearRun. Only cancellation ends the run early, in which case the years
// finished so far are returned together with ctx.Err().
func (r *YearRunner) Run(ctx context.Context, runID uuid.UUID, query string, years []int) ([]*model.YearRun, error) {
	r.logger.Info("starting fetch",
		"run_id", runID.String(),
		"query", query,
		"years", len(years),
	)

	startTime := time.Now()
	results := make([]*model.YearRun, 0, len(years))

	for i, year := range years {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		r.logger.Debug("processing year",
			"year", year,
			"index", i+1,
			"total", len(years),
		)

		run := model.NewYearRun(runID, query, year)
		_ = r.pipelineFactory().Execute(ctx, run) //nolint:errcheck // Error is stored in run
		results = append(results, run)

		if r.onYear != nil {
			r.onYear(run)
		}

		if run.Error != nil {
			r.logger.Warn("year failed",
				"query", query,
				"year", year,
				"error", run.Error,
			)
		}

		if ctx.Err() != nil {
			return results, ctx.Err()
		}
	}

	r.logger.Info("fetch complete",
		"query", query,
		"years", len(years),
		"elapsed", time.Since(startTime),
	)

	return results, nil
}
