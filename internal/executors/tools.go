package executors

import "github.com/tendant/genome-pipeline/internal/config"

// DownloadCommand builds the genome download invocation:
//
//	ncbi-acc-download <acc> --format fasta --verbose --out <out>
func DownloadCommand(cfg config.Config, accession, out string) Command {
	return Command{
		Name: cfg.DownloadTool,
		Args: []string{accession, "--format", cfg.DownloadFormat, "--verbose", "--out", out},
		Dir:  cfg.Root,
	}
}

// AnnotateCommand builds the genome annotation invocation:
//
//	prokka <in> --usegenus <genus> --outdir <outdir> [--force]
func AnnotateCommand(cfg config.Config, in, outdir string) Command {
	args := []string{in, "--usegenus", cfg.GenusHint, "--outdir", outdir}
	if cfg.AnnotationForce {
		args = append(args, "--force")
	}
	return Command{
		Name: cfg.AnnotationTool,
		Args: args,
		Dir:  cfg.Root,
	}
}
