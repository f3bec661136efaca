package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tendant/genome-pipeline/pkg/pipeline"
	"github.com/tendant/genome-pipeline/pkg/runner"
)

// errItemsFailed is returned in strict mode when the batch had failed items
var errItemsFailed = errors.New("one or more items failed")

var (
	rootDir     string
	strict      bool
	metricsFile string

	failedStage string
	failedRun   string
)

var rootCmd = &cobra.Command{
	Use:   "genome-pipeline",
	Short: "Download genome assemblies by accession and annotate them",
	Long: `genome-pipeline drives two external tools over a list of genomes.

  collect   reads the strain table and downloads <accession>.fasta per row
  annotate  runs the annotation tool over every downloaded .fasta file
  all       runs collect, then annotate

Failed items never stop the batch; they are listed in the summary.`,
	SilenceUsage: true,
}

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Download one genome per accession in the strain table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages(cmd.Context(), func(ctx context.Context, r *runner.Runner) ([]*pipeline.RunSummary, error) {
			s, err := r.RunCollect(ctx)
			return []*pipeline.RunSummary{s}, err
		})
	},
}

var annotateCmd = &cobra.Command{
	Use:   "annotate",
	Short: "Annotate every downloaded genome",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages(cmd.Context(), func(ctx context.Context, r *runner.Runner) ([]*pipeline.RunSummary, error) {
			s, err := r.RunAnnotate(ctx)
			return []*pipeline.RunSummary{s}, err
		})
	},
}

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Run collect, then annotate",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages(cmd.Context(), func(ctx context.Context, r *runner.Runner) ([]*pipeline.RunSummary, error) {
			return r.RunAll(ctx)
		})
	},
}

var failedCmd = &cobra.Command{
	Use:   "failed",
	Short: "List the items a past run recorded as failed (requires DATABASE_URL)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stage, err := pipeline.ParseStage(failedStage)
		if err != nil {
			return err
		}

		cfg, err := runner.LoadConfig(rootDir)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		r, err := runner.New(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize pipeline: %w", err)
		}
		defer r.Close()

		ids, err := r.FailedItems(cmd.Context(), stage, failedRun)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootDir, "root", "r", "", "project root all paths are resolved against (default $PIPELINE_ROOT or .)")
	rootCmd.PersistentFlags().BoolVar(&strict, "strict", false, "exit non-zero when any item failed")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus textfile metrics to this path")

	failedCmd.Flags().StringVar(&failedStage, "stage", string(pipeline.StageAnnotate), "stage of the run (collect or annotate)")
	failedCmd.Flags().StringVar(&failedRun, "run", "", "run id printed in the run summary")
	failedCmd.MarkFlagRequired("run")

	rootCmd.AddCommand(collectCmd, annotateCmd, allCmd, failedCmd)
}

func runStages(ctx context.Context, run func(context.Context, *runner.Runner) ([]*pipeline.RunSummary, error)) error {
	cfg, err := runner.LoadConfig(rootDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if strict {
		cfg.FailOnItemError = true
	}
	if metricsFile != "" {
		cfg.MetricsFile = metricsFile
	}

	r, err := runner.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}
	defer r.Close()

	summaries, runErr := run(ctx, r)
	failed := 0
	for _, s := range summaries {
		if s == nil {
			continue
		}
		runner.WriteSummary(os.Stdout, s)
		failed += s.Failed()
	}
	if runErr != nil {
		return runErr
	}
	if failed > 0 && r.Config().FailOnItemError {
		return fmt.Errorf("%w: %d", errItemsFailed, failed)
	}
	return nil
}

func main() {
	// Cancel the running item on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Printf("Error: %v", err)
		stop()
		os.Exit(1)
	}
}
