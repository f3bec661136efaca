package storage

import "errors"

// SequenceExt is the extension of downloaded sequence files
const SequenceExt = ".fasta"

// SequencePattern matches sequence files inside the genomes directory
const SequencePattern = "*" + SequenceExt

var (
	// ErrNoInputs is returned when a stage finds nothing to process
	ErrNoInputs = errors.New("no input sequence files")

	// ErrInvalidKey is returned for identifiers that would escape their directory
	ErrInvalidKey = errors.New("invalid key: path traversal detected")
)
