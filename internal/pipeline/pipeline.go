package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/acprobe/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
type Step interface {
	// Do executes the step against the session. Non-critical problems
	// should be logged and swallowed; a returned error marks the session
	// as failed.
	Do(ctx context.Context, session *model.Session) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Finalizer is implemented by steps that must run even after the
// pipeline was cancelled, such as writing out partial results.
type Finalizer interface {
	Step
	Final() bool
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	steps []Step

	logger *slog.Logger

	// continueOnError keeps executing steps after one fails.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails. The first error is still recorded in the session.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{steps: make([]Step, 0)}
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

// Execute runs all steps in order.
//
// Once ctx is done the session is marked interrupted and only Finalizer
// steps run, with a context that is no longer cancelled. Execute then
// returns ctx.Err(). Otherwise it returns the first step error (or nil
// when continueOnError is set and errors were only recorded).
func (p *Pipeline) Execute(ctx context.Context, session *model.Session) error {
	var cancelled error

	for _, step := range p.steps {
		stepCtx := ctx
		if cancelled == nil && ctx.Err() != nil {
			cancelled = ctx.Err()
			session.Interrupted = true
			p.logger.Warn("Pipeline cancelled, running final steps only",
				"step", step.Name(),
				"reason", cancelled)
		}
		if cancelled != nil {
			if !isFinal(step) {
				continue
			}
			stepCtx = context.WithoutCancel(ctx)
		}

		p.logger.Debug("Executing step", "step", step.Name(), "target", session.BaseURL)

		if err := step.Do(stepCtx, session); err != nil {
			p.logger.Error("Step failed",
				"step", step.Name(),
				"target", session.BaseURL,
				"error", err)

			if session.Error == nil {
				session.Error = err
				session.ErrorMessage = err.Error()
			}
			if !p.continueOnError {
				return err
			}
		} else {
			p.logger.Debug("Step completed", "step", step.Name(), "target", session.BaseURL)
		}

		session.PerformedSteps = append(session.PerformedSteps, step.Name())
	}

	return cancelled
}

func isFinal(step Step) bool {
	f, ok := step.(Finalizer)
	return ok && f.Final()
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
