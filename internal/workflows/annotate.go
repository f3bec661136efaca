package workflows

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/tendant/genome-pipeline/internal/config"
	"github.com/tendant/genome-pipeline/internal/executors"
	"github.com/tendant/genome-pipeline/internal/naming"
	"github.com/tendant/genome-pipeline/internal/storage"
	"github.com/tendant/genome-pipeline/pkg/pipeline"
)

// AnnotateWorkflow annotates every downloaded genome
type AnnotateWorkflow struct {
	cfg    config.Config
	layout *storage.Layout
	runner executors.CommandRunner
}

// NewAnnotateWorkflow creates a new genome annotation workflow
func NewAnnotateWorkflow(cfg config.Config, layout *storage.Layout, runner executors.CommandRunner) *AnnotateWorkflow {
	return &AnnotateWorkflow{
		cfg:    cfg,
		layout: layout,
		runner: runner,
	}
}

// Name returns the workflow name
func (w *AnnotateWorkflow) Name() string {
	return "AnnotateWorkflow"
}

// Execute runs the annotation command for every sequence file in the genomes directory
func (w *AnnotateWorkflow) Execute(wctx *WorkflowContext) (*pipeline.RunSummary, error) {
	summary := wctx.newSummary()
	log.Printf("[%s] Starting annotate workflow, genomes=%s", wctx.RunID, w.layout.GenomesDir())

	// Step 1: The collect stage must have produced inputs
	files, err := storage.ListSequenceFiles(w.layout.GenomesDir())
	if err != nil {
		log.Printf("[%s] Nothing to annotate: %v (run the collect stage first)", wctx.RunID, err)
		return summary, err
	}
	log.Printf("[%s] Found %d sequence files", wctx.RunID, len(files))

	// Step 2: Ensure the output directory exists
	if err := storage.EnsureDir(w.layout.AnnotationsDir()); err != nil {
		log.Printf("[%s] %v", wctx.RunID, err)
		return summary, err
	}

	// Step 3: One annotation per file, in listing order.
	// Two files deriving the same identifier would share an output directory,
	// so only the first is annotated.
	seen := make(map[string]string, len(files))
	for _, file := range files {
		item := pipeline.WorkItem{InputPath: file}

		id, err := naming.DeriveIdentifier(file, w.cfg.IdentifierMode)
		if err == nil {
			item.ID = id
			item.OutputPath, err = w.layout.AnnotationDir(id)
		}
		if err == nil {
			if prev, dup := seen[id]; dup {
				wctx.record(summary, pipeline.ItemResult{
					Item:     item,
					Status:   pipeline.StatusFailed,
					ExitCode: -1,
					Error:    fmt.Sprintf("duplicate identifier %q (already used by %s)", id, filepath.Base(prev)),
				})
				log.Printf("[%s] %s: skipped: identifier %s already used by %s", wctx.RunID, file, id, prev)
				continue
			}
			seen[id] = file
		}
		if err != nil {
			if item.ID == "" {
				item.ID = file
			}
			wctx.record(summary, pipeline.ItemResult{
				Item:     item,
				Status:   pipeline.StatusFailed,
				ExitCode: -1,
				Error:    fmt.Sprintf("invalid identifier: %v", err),
			})
			log.Printf("[%s] %s: skipped: %v", wctx.RunID, file, err)
			continue
		}

		cmd := executors.AnnotateCommand(w.cfg, file, item.OutputPath)
		if err := wctx.runItem(w.runner, item, cmd, summary); err != nil {
			wctx.finish(summary)
			return summary, err
		}
	}

	wctx.finish(summary)
	return summary, nil
}
