package workflows

import (
	"fmt"
	"log"

	"github.com/tendant/genome-pipeline/internal/accessions"
	"github.com/tendant/genome-pipeline/internal/config"
	"github.com/tendant/genome-pipeline/internal/executors"
	"github.com/tendant/genome-pipeline/internal/storage"
	"github.com/tendant/genome-pipeline/pkg/pipeline"
)

// CollectWorkflow downloads one genome per accession listed in the strain table
type CollectWorkflow struct {
	cfg    config.Config
	layout *storage.Layout
	runner executors.CommandRunner
}

// NewCollectWorkflow creates a new genome collection workflow
func NewCollectWorkflow(cfg config.Config, layout *storage.Layout, runner executors.CommandRunner) *CollectWorkflow {
	return &CollectWorkflow{
		cfg:    cfg,
		layout: layout,
		runner: runner,
	}
}

// Name returns the workflow name
func (w *CollectWorkflow) Name() string {
	return "CollectWorkflow"
}

// Execute runs the download command for every accession in table order
func (w *CollectWorkflow) Execute(wctx *WorkflowContext) (*pipeline.RunSummary, error) {
	summary := wctx.newSummary()
	table := w.cfg.Path(w.cfg.AccessionTable)
	log.Printf("[%s] Starting collect workflow, table=%s", wctx.RunID, table)

	// Step 1: Read the accession table (fatal on error)
	accs, err := accessions.Load(table, accessions.Options{
		Column:  w.cfg.AccessionColumn,
		Comment: commentRune(w.cfg.CommentMarker),
	})
	if err != nil {
		log.Printf("[%s] Failed to read accession table: %v", wctx.RunID, err)
		return summary, err
	}
	log.Printf("[%s] Loaded %d accessions", wctx.RunID, len(accs))

	// Step 2: Ensure the output directory exists
	if err := storage.EnsureDir(w.layout.GenomesDir()); err != nil {
		log.Printf("[%s] %v", wctx.RunID, err)
		return summary, err
	}

	// Step 3: One download per accession, never short-circuiting
	for _, acc := range accs {
		item := pipeline.WorkItem{ID: acc}
		out, err := w.layout.GenomePath(acc)
		if err != nil {
			wctx.record(summary, pipeline.ItemResult{
				Item:     item,
				Status:   pipeline.StatusFailed,
				ExitCode: -1,
				Error:    fmt.Sprintf("invalid accession: %v", err),
			})
			log.Printf("[%s] %s: skipped: %v", wctx.RunID, acc, err)
			continue
		}
		item.OutputPath = out

		cmd := executors.DownloadCommand(w.cfg, acc, out)
		if err := wctx.runItem(w.runner, item, cmd, summary); err != nil {
			wctx.finish(summary)
			return summary, err
		}
	}

	wctx.finish(summary)
	return summary, nil
}

func commentRune(marker string) rune {
	for _, r := range marker {
		return r
	}
	return 0
}
