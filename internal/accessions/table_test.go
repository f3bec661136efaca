package accessions

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var defaultOpts = Options{Column: "NCBI Refseq ID", Comment: '#'}

func TestReadTableSkipsComments(t *testing.T) {
	table := strings.Join([]string{
		"# ignore",
		"Strain,NCBI Refseq ID,Phylogroup",
		"K-12,acc1,A",
		"",
		"O157,acc2,E",
	}, "\n")

	accs, err := ReadTable(strings.NewReader(table), defaultOpts)
	if err != nil {
		t.Fatalf("ReadTable returned error: %v", err)
	}
	if len(accs) != 2 || accs[0] != "acc1" || accs[1] != "acc2" {
		t.Fatalf("expected [acc1 acc2], got %v", accs)
	}
}

func TestReadTableTrailingComments(t *testing.T) {
	table := strings.Join([]string{
		"NCBI Refseq ID,Strain # header note",
		"acc1,K-12 # lab strain",
		"  # indented comment",
		"acc2 # no strain recorded",
	}, "\n")

	accs, err := ReadTable(strings.NewReader(table), defaultOpts)
	if err != nil {
		t.Fatalf("ReadTable returned error: %v", err)
	}
	if strings.Join(accs, ",") != "acc1,acc2" {
		t.Fatalf("expected [acc1 acc2], got %v", accs)
	}
}

func TestReadTableKeepsQuotedMarker(t *testing.T) {
	table := strings.Join([]string{
		"Strain,NCBI Refseq ID",
		`"K-12 #1",acc1`,
		`"O157:H7, isolate #2 # not a comment",acc2 # trailing note`,
		`"multi`,
		`line # strain",acc3`,
	}, "\n")

	accs, err := ReadTable(strings.NewReader(table), defaultOpts)
	if err != nil {
		t.Fatalf("ReadTable returned error: %v", err)
	}
	if strings.Join(accs, ",") != "acc1,acc2,acc3" {
		t.Fatalf("expected [acc1 acc2 acc3], got %v", accs)
	}
}

func TestStripComments(t *testing.T) {
	in := "# whole line\na,b # tail\n\"x # y\",z\n   \n  # indented\nc\n"
	want := "a,b \n\"x # y\",z\nc\n"
	if got := stripComments(in, '#'); got != want {
		t.Fatalf("stripComments = %q, want %q", got, want)
	}
}

func TestReadTableSkipsEmptyAccessions(t *testing.T) {
	table := "Strain,NCBI Refseq ID\nA,acc1\nB,\nC, \nD\nE,acc1\n"
	accs, err := ReadTable(strings.NewReader(table), defaultOpts)
	if err != nil {
		t.Fatalf("ReadTable returned error: %v", err)
	}
	// duplicates are kept: one invocation per row
	if strings.Join(accs, ",") != "acc1,acc1" {
		t.Fatalf("unexpected accessions %v", accs)
	}
}

func TestReadTableErrors(t *testing.T) {
	tests := []struct {
		name  string
		table string
		want  error
	}{
		{"empty", "", ErrEmptyTable},
		{"only comments", "# a\n# b\n", ErrEmptyTable},
		{"missing column", "Strain,Accession\nA,acc1\n", ErrColumnNotFound},
		{"too many fields", "Strain,NCBI Refseq ID\nA,acc1,extra\n", ErrMalformedRow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTable(strings.NewReader(tt.table), defaultOpts)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strains.txt")
	if err := os.WriteFile(path, []byte("NCBI Refseq ID\nNC_000913.3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	accs, err := Load(path, defaultOpts)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(accs) != 1 || accs[0] != "NC_000913.3" {
		t.Fatalf("unexpected accessions %v", accs)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.txt"), defaultOpts); err == nil {
		t.Fatal("expected error for missing table")
	}
}
