// Package accessions reads the strain table that drives genome collection.
package accessions

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	// ErrEmptyTable is returned when the table has no header row
	ErrEmptyTable = errors.New("accession table has no header row")

	// ErrColumnNotFound is returned when the header lacks the accession column
	ErrColumnNotFound = errors.New("accession column not found")

	// ErrMalformedRow is returned for rows with more fields than the header
	ErrMalformedRow = errors.New("malformed accession table row")
)

// Options controls how the table is parsed
type Options struct {
	// Column is the header name holding accession identifiers
	Column string

	// Comment marks comment text; whole-line and trailing comments are dropped
	Comment rune
}

// Load reads accessions from the table at path
func Load(path string, opts Options) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open accession table: %w", err)
	}
	defer f.Close()

	accs, err := ReadTable(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return accs, nil
}

// ReadTable returns the non-empty accessions of r in row order.
// The first non-comment row is the header.
func ReadTable(r io.Reader, opts Options) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read accession table: %w", err)
	}

	cr := csv.NewReader(strings.NewReader(stripComments(string(data), opts.Comment)))
	cr.Comma = ','
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyTable
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	col := -1
	for i, name := range header {
		if strings.TrimSpace(name) == opts.Column {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, opts.Column)
	}

	var accs []string
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		if len(rec) > len(header) {
			return nil, fmt.Errorf("%w: data row %d has %d fields, header has %d", ErrMalformedRow, row, len(rec), len(header))
		}
		if col >= len(rec) {
			continue
		}
		if acc := strings.TrimSpace(rec[col]); acc != "" {
			accs = append(accs, acc)
		}
	}
	return accs, nil
}

// stripComments removes unquoted comment text up to the end of each line
// and drops lines left blank. A marker inside a quoted field is kept.
func stripComments(text string, marker rune) string {
	var out, line strings.Builder
	flush := func() {
		if strings.TrimSpace(line.String()) != "" {
			out.WriteString(line.String())
			out.WriteByte('\n')
		}
		line.Reset()
	}

	inQuote, skipping := false, false
	for _, c := range text {
		switch {
		case skipping:
			if c == '\n' {
				skipping = false
				flush()
			}
		case c == '"':
			inQuote = !inQuote
			line.WriteRune(c)
		case !inQuote && marker != 0 && c == marker:
			skipping = true
		case !inQuote && c == '\n':
			flush()
		default:
			line.WriteRune(c)
		}
	}
	flush()
	return out.String()
}
