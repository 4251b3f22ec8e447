package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/tenderscan/internal/model"
)

// Step is one stage of a year's processing.
type Step interface {
	// Do executes the step. Errors that should not abort the year are
	// recorded on run and nil is returned.
	Do(ctx context.Context, run *model.YearRun) error

	// Name returns the step's name for logging.
	Name() string
}

// Pipeline executes steps in order against a YearRun.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger

	// continueOnError keeps running later steps after one fails.
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError runs the remaining steps after a failure.
// The fetch command uses this so that a failed crawl is still recorded
// by the store step.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in sequence.
//
// The first step error is kept in run.Error. Without continueOnError that
// error is also returned and later steps are skipped. Cancellation is
// checked between steps and always stops the pipeline.
func (p *Pipeline) Execute(ctx context.Context, run *model.YearRun) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"year", run.Year,
				"reason", err,
			)
			if run.Error == nil {
				run.Error = err
			}
			return err
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"query", run.Query,
			"year", run.Year,
		)

		if err := step.Do(ctx, run); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"query", run.Query,
				"year", run.Year,
				"error", err,
			)

			if run.Error == nil {
				run.Error = err
			}

			if !p.continueOnError {
				run.Steps = append(run.Steps, step.Name())
				p.finish(run)
				return err
			}
		}

		run.Steps = append(run.Steps, step.Name())
	}

	p.finish(run)
	return nil
}

func (p *Pipeline) finish(run *model.YearRun) {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
