package workflows

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tendant/genome-pipeline/internal/executors"
	"github.com/tendant/genome-pipeline/pkg/pipeline"
)

// ResultRecorder persists item results outside the process
type ResultRecorder interface {
	Record(ctx context.Context, runID string, stage pipeline.Stage, result pipeline.ItemResult) error
}

// ResultObserver is notified of every item result and of run completion
type ResultObserver interface {
	ObserveItem(stage pipeline.Stage, result pipeline.ItemResult)
	ObserveRun(summary *pipeline.RunSummary)
}

// WorkflowContext contains context for workflow execution
type WorkflowContext struct {
	Ctx      context.Context
	RunID    string
	Stage    pipeline.Stage
	Recorder ResultRecorder
	Observer ResultObserver
}

// Workflow defines the interface for batch stages
type Workflow interface {
	// Execute processes every work item of the stage. A non-nil error means
	// the stage could not run (or was cancelled); per-item failures are in
	// the summary.
	Execute(wctx *WorkflowContext) (*pipeline.RunSummary, error)

	// Name returns the workflow name
	Name() string
}

// WorkflowRunner executes workflows
type WorkflowRunner struct {
	workflows map[pipeline.Stage]Workflow
	recorder  ResultRecorder
	observer  ResultObserver
}

// NewWorkflowRunner creates a new workflow runner. recorder and observer may be nil.
func NewWorkflowRunner(recorder ResultRecorder, observer ResultObserver) *WorkflowRunner {
	return &WorkflowRunner{
		workflows: make(map[pipeline.Stage]Workflow),
		recorder:  recorder,
		observer:  observer,
	}
}

// Register registers a workflow
func (r *WorkflowRunner) Register(stage pipeline.Stage, workflow Workflow) {
	r.workflows[stage] = workflow
}

// Run executes the workflow registered for stage
func (r *WorkflowRunner) Run(ctx context.Context, stage pipeline.Stage, runID string) (*pipeline.RunSummary, error) {
	workflow, ok := r.workflows[stage]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, stage)
	}
	if runID == "" {
		return nil, fmt.Errorf("%w: run id is empty", ErrInvalidRequest)
	}

	wctx := &WorkflowContext{
		Ctx:      ctx,
		RunID:    runID,
		Stage:    stage,
		Recorder: r.recorder,
		Observer: r.observer,
	}

	summary, err := workflow.Execute(wctx)
	if summary != nil && r.observer != nil {
		r.observer.ObserveRun(summary)
	}
	return summary, err
}

func (wctx *WorkflowContext) newSummary() *pipeline.RunSummary {
	return &pipeline.RunSummary{
		RunID:     wctx.RunID,
		Stage:     wctx.Stage,
		StartedAt: time.Now().UTC(),
	}
}

// runItem invokes cmd for item and records the outcome. The returned error
// is non-nil only when the context was cancelled.
func (wctx *WorkflowContext) runItem(runner executors.CommandRunner, item pipeline.WorkItem, cmd executors.Command, summary *pipeline.RunSummary) error {
	log.Printf("[%s] %s: running %s", wctx.RunID, item.ID, cmd)

	start := time.Now()
	outcome, err := runner.Run(wctx.Ctx, cmd)
	result := pipeline.ItemResult{
		Item:     item,
		Command:  cmd.String(),
		Duration: time.Since(start),
		ExitCode: -1,
	}
	if outcome != nil {
		result.ExitCode = outcome.ExitCode
		result.Output = string(outcome.Output)
	}

	switch {
	case err != nil:
		result.Status = pipeline.StatusFailed
		result.Error = err.Error()
		log.Printf("[%s] %s: failed: %v", wctx.RunID, item.ID, err)
	case result.ExitCode != 0:
		result.Status = pipeline.StatusFailed
		result.Error = fmt.Sprintf("exit status %d", result.ExitCode)
		log.Printf("[%s] %s: exited with status %d", wctx.RunID, item.ID, result.ExitCode)
	default:
		result.Status = pipeline.StatusSucceeded
		log.Printf("[%s] ✓ %s (%s)", wctx.RunID, item.ID, result.Duration.Round(time.Millisecond))
	}

	wctx.record(summary, result)

	if ctxErr := wctx.Ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return nil
}

func (wctx *WorkflowContext) record(summary *pipeline.RunSummary, result pipeline.ItemResult) {
	summary.Add(result)
	if wctx.Observer != nil {
		wctx.Observer.ObserveItem(wctx.Stage, result)
	}
	if wctx.Recorder != nil {
		// Ledger failures never abort the batch
		if err := wctx.Recorder.Record(wctx.Ctx, wctx.RunID, wctx.Stage, result); err != nil {
			log.Printf("[%s] %s: failed to record result: %v", wctx.RunID, result.Item.ID, err)
		}
	}
}

func (wctx *WorkflowContext) finish(summary *pipeline.RunSummary) {
	summary.FinishedAt = time.Now().UTC()
	log.Printf("[%s] %s finished: %d succeeded, %d failed", wctx.RunID, wctx.Stage, summary.Succeeded(), summary.Failed())
}
