package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tendant/genome-pipeline/pkg/runner"
)

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"collect": false, "annotate": false, "all": false, "failed": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("subcommand %q not registered", name)
		}
	}
}

func TestAnnotateFailsFastWithoutGenomes(t *testing.T) {
	root := t.TempDir()
	t.Setenv("PIPELINE_CONFIG", "")
	rootCmd.SetArgs([]string{"annotate", "--root", root})
	err := rootCmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "no input sequence files") {
		t.Fatalf("expected missing-inputs error, got %v", err)
	}
}

func TestStrictModeReportsFailedItems(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "strains.csv"), []byte("NCBI Refseq ID\nacc1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PIPELINE_CONFIG", "")
	t.Setenv("PIPELINE_ACCESSION_TABLE", "strains.csv")
	// "false" exits 1 for every invocation
	t.Setenv("PIPELINE_DOWNLOAD_TOOL", "false")

	rootCmd.SetArgs([]string{"collect", "--root", root, "--strict"})
	err := rootCmd.Execute()
	if err == nil || !strings.Contains(err.Error(), errItemsFailed.Error()) {
		t.Fatalf("expected strict mode failure, got %v", err)
	}
	strict = false

	rootCmd.SetArgs([]string{"collect", "--root", root})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("best-effort mode should succeed despite failed items, got %v", err)
	}
}

func TestFailedRequiresLedger(t *testing.T) {
	root := t.TempDir()
	t.Setenv("PIPELINE_CONFIG", "")
	t.Setenv("DATABASE_URL", "")

	rootCmd.SetArgs([]string{"failed", "--root", root, "--stage", "collect", "--run", "run-1"})
	if err := rootCmd.Execute(); !errors.Is(err, runner.ErrLedgerDisabled) {
		t.Fatalf("expected ErrLedgerDisabled, got %v", err)
	}

	rootCmd.SetArgs([]string{"failed", "--root", root, "--stage", "download", "--run", "run-1"})
	if err := rootCmd.Execute(); err == nil || !strings.Contains(err.Error(), "unknown stage") {
		t.Fatalf("expected unknown stage error, got %v", err)
	}
}
