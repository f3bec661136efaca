package runner

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tendant/genome-pipeline/pkg/pipeline"
)

// WriteSummary prints the counts of a run followed by every failed item
func WriteSummary(w io.Writer, s *pipeline.RunSummary) {
	if s == nil {
		return
	}
	elapsed := s.FinishedAt.Sub(s.StartedAt)
	if s.FinishedAt.IsZero() {
		elapsed = 0
	}
	fmt.Fprintf(w, "%s run %s: %d items, %d succeeded, %d failed (%s)\n",
		s.Stage, s.RunID, len(s.Items), s.Succeeded(), s.Failed(), elapsed.Round(time.Millisecond))

	for _, r := range s.FailedItems() {
		fmt.Fprintf(w, "  ✗ %s: %s\n", r.Item.ID, r.Error)
		if out := lastLine(r.Output); out != "" {
			fmt.Fprintf(w, "      %s\n", out)
		}
	}
}

func lastLine(s string) string {
	s = strings.TrimRight(s, "\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
