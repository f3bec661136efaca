package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/tendant/genome-pipeline/internal/config"
	"github.com/tendant/genome-pipeline/internal/executors"
	"github.com/tendant/genome-pipeline/internal/ledger"
	"github.com/tendant/genome-pipeline/internal/metrics"
	"github.com/tendant/genome-pipeline/internal/storage"
	"github.com/tendant/genome-pipeline/internal/workflows"
	"github.com/tendant/genome-pipeline/pkg/pipeline"
)

// ErrLedgerDisabled is returned by ledger queries when no DATABASE_URL is configured
var ErrLedgerDisabled = errors.New("result ledger is not configured (set DATABASE_URL)")

// Config holds the configuration for initializing the pipeline runner
type Config = config.Config

// DefaultConfig returns the default configuration rooted at root
func DefaultConfig(root string) Config {
	cfg := config.Default()
	if root != "" {
		cfg.Root = root
	}
	return cfg
}

// LoadConfig reads pipeline.yaml, .env and the environment. See config.Load.
func LoadConfig(root string) (Config, error) {
	return config.Load(root)
}

// Option customizes a Runner
type Option func(*Runner)

// WithCommandRunner replaces the os/exec backed command runner
func WithCommandRunner(cr executors.CommandRunner) Option {
	return func(r *Runner) {
		r.commands = cr
	}
}

// WithLedger uses an already opened ledger instead of connecting to DatabaseURL
func WithLedger(l *ledger.Ledger) Option {
	return func(r *Runner) {
		r.ledger = l
	}
}

// Runner provides a high-level API for running the pipeline stages
type Runner struct {
	cfg      Config
	layout   *storage.Layout
	commands executors.CommandRunner
	metrics  *metrics.Metrics
	ledger   *ledger.Ledger
	runner   *workflows.WorkflowRunner
}

// New creates and initializes a new pipeline runner
func New(ctx context.Context, cfg Config, opts ...Option) (*Runner, error) {
	cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Tools run with Root as working directory, so every path handed to them must be absolute
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", cfg.Root, err)
	}
	cfg.Root = root

	r := &Runner{
		cfg:      cfg,
		layout:   storage.NewLayout(cfg.Path(cfg.GenomesDir), cfg.Path(cfg.AnnotationsDir)),
		commands: executors.NewExecRunner(),
		metrics:  metrics.New(),
	}
	for _, opt := range opts {
		opt(r)
	}

	// Setup the optional result ledger
	if r.ledger == nil && cfg.DatabaseURL != "" {
		l, err := ledger.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ledger: %w", err)
		}
		r.ledger = l
	}
	var recorder workflows.ResultRecorder
	if r.ledger != nil {
		recorder = r.ledger
		log.Printf("✓ Result ledger enabled")
	}

	// Create workflow runner and register both stages
	r.runner = workflows.NewWorkflowRunner(recorder, r.metrics)
	r.runner.Register(pipeline.StageCollect, workflows.NewCollectWorkflow(cfg, r.layout, r.commands))
	r.runner.Register(pipeline.StageAnnotate, workflows.NewAnnotateWorkflow(cfg, r.layout, r.commands))

	return r, nil
}

// Config returns the resolved configuration
func (r *Runner) Config() Config {
	return r.cfg
}

// Metrics returns the run metrics
func (r *Runner) Metrics() *metrics.Metrics {
	return r.metrics
}

// RunCollect downloads every accession listed in the strain table
func (r *Runner) RunCollect(ctx context.Context) (*pipeline.RunSummary, error) {
	return r.run(ctx, pipeline.StageCollect)
}

// RunAnnotate annotates every downloaded genome
func (r *Runner) RunAnnotate(ctx context.Context) (*pipeline.RunSummary, error) {
	return r.run(ctx, pipeline.StageAnnotate)
}

// RunAll runs collect then annotate. Annotate is skipped when collect could not run.
func (r *Runner) RunAll(ctx context.Context) ([]*pipeline.RunSummary, error) {
	var summaries []*pipeline.RunSummary

	collected, err := r.RunCollect(ctx)
	if collected != nil {
		summaries = append(summaries, collected)
	}
	if err != nil {
		return summaries, err
	}

	annotated, err := r.RunAnnotate(ctx)
	if annotated != nil {
		summaries = append(summaries, annotated)
	}
	return summaries, err
}

func (r *Runner) run(ctx context.Context, stage pipeline.Stage) (*pipeline.RunSummary, error) {
	runID := uuid.New().String()
	log.Printf("[%s] Running %s stage (root=%s)", runID, stage, r.cfg.Root)

	summary, err := r.runner.Run(ctx, stage, runID)

	if r.cfg.MetricsFile != "" {
		if werr := r.metrics.WriteTextfile(r.cfg.Path(r.cfg.MetricsFile)); werr != nil {
			log.Printf("[%s] %v", runID, werr)
		}
	}
	return summary, err
}

// FailedItems lists the identifiers the ledger recorded as failed for a past run
func (r *Runner) FailedItems(ctx context.Context, stage pipeline.Stage, runID string) ([]string, error) {
	if r.ledger == nil {
		return nil, ErrLedgerDisabled
	}
	return r.ledger.FailedItems(ctx, stage, runID)
}

// Close releases the ledger connection
func (r *Runner) Close() error {
	return r.ledger.Close()
}
