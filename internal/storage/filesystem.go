package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Layout maps work item identifiers to their locations on disk
type Layout struct {
	genomesDir     string
	annotationsDir string
}

// NewLayout creates a layout over already-resolved genome and annotation directories
func NewLayout(genomesDir, annotationsDir string) *Layout {
	return &Layout{
		genomesDir:     filepath.Clean(genomesDir),
		annotationsDir: filepath.Clean(annotationsDir),
	}
}

// GenomesDir returns the directory downloads are written to
func (l *Layout) GenomesDir() string {
	return l.genomesDir
}

// AnnotationsDir returns the directory annotation bundles are written to
func (l *Layout) AnnotationsDir() string {
	return l.annotationsDir
}

// GenomePath returns <genomes>/<accession>.fasta
func (l *Layout) GenomePath(accession string) (string, error) {
	return within(l.genomesDir, accession+SequenceExt)
}

// AnnotationDir returns <annotations>/<id>
func (l *Layout) AnnotationDir(id string) (string, error) {
	return within(l.annotationsDir, id)
}

func within(base, name string) (string, error) {
	if name == "" || strings.ContainsRune(name, os.PathSeparator) || strings.Contains(name, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, name)
	}
	path := filepath.Join(base, name)

	// Security: prevent directory traversal
	if filepath.Dir(path) != base {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, name)
	}
	return path, nil
}

// EnsureDir creates dir and its parents. An existing directory is not an error.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// Exists checks if a file or directory exists at path
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return true, nil
}

// ListSequenceFiles returns the sequence files in dir in the order the
// filesystem yields them. A missing directory or one without sequence
// files returns ErrNoInputs.
func ListSequenceFiles(dir string) ([]string, error) {
	d, err := os.Open(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: directory %s does not exist", ErrNoInputs, dir)
		}
		return nil, fmt.Errorf("failed to open directory: %w", err)
	}
	defer d.Close()

	names, err := d.Readdirnames(-1)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var files []string
	for _, name := range names {
		// hidden files (editor swap files, ._ resource forks) are never inputs
		if strings.HasPrefix(name, ".") {
			continue
		}
		if ok, _ := filepath.Match(SequencePattern, name); !ok {
			continue
		}
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, path)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no %s files in %s", ErrNoInputs, SequencePattern, dir)
	}
	return files, nil
}
