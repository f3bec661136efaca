package naming

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tendant/genome-pipeline/internal/config"
	"github.com/tendant/genome-pipeline/internal/storage"
)

// DeriveIdentifier returns the annotation identifier for a sequence file.
//
// In first-dot mode the identifier is the base name up to its first '.',
// so a versioned accession such as NC_000913.3.fasta yields "NC_000913".
// strip-extension mode removes only the trailing sequence extension and
// keeps the full accession.
func DeriveIdentifier(path, mode string) (string, error) {
	base := filepath.Base(path)
	var id string
	switch mode {
	case config.IdentifierFirstDot, "":
		id, _, _ = strings.Cut(base, ".")
	case config.IdentifierStripExtension:
		id = strings.TrimSuffix(base, storage.SequenceExt)
	default:
		return "", fmt.Errorf("unknown identifier mode %q", mode)
	}
	if id == "" || id == "." || id == string(filepath.Separator) {
		return "", fmt.Errorf("cannot derive identifier from %q", path)
	}
	return id, nil
}
