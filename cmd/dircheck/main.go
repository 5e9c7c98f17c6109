// Command dircheck lists files under the dataset's data directory that no
// metadata row references, and metadata paths missing on disk.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/banshee-data/subsea.dataset/internal/config"
	"github.com/banshee-data/subsea.dataset/internal/dataset"
	"github.com/banshee-data/subsea.dataset/internal/fsutil"
	"github.com/banshee-data/subsea.dataset/internal/monitoring"
	"github.com/banshee-data/subsea.dataset/internal/version"
)

var (
	datasetRoot  = flag.String("root", "", "Dataset root directory (required)")
	metadataPath = flag.String("metadata", config.DefaultMetadataPath, "Metadata table, relative to the root unless absolute")
	strict       = flag.Bool("strict", false, "Exit with status 1 when any file is unreferenced or missing")
)

// printReport writes one line per finding and returns the finding count.
func printReport(w io.Writer, r *dataset.DirReport) int {
	for _, p := range r.Unreferenced {
		fmt.Fprintf(w, "unreferenced %s\n", p)
	}
	for _, p := range r.Missing {
		fmt.Fprintf(w, "missing %s\n", p)
	}
	return len(r.Unreferenced) + len(r.Missing)
}

// printRowErrors writes one line per skipped metadata row and returns the
// count.
func printRowErrors(w io.Writer, errs []*dataset.FormatError) int {
	for _, fe := range errs {
		fmt.Fprintf(w, "malformed %v\n", fe)
	}
	return len(errs)
}

func main() {
	flag.Parse()
	monitoring.Logf("dircheck %s", version.String())

	cfg := config.Default()
	cfg.DatasetRoot = *datasetRoot
	cfg.MetadataPath = *metadataPath

	fsys := fsutil.OSFileSystem{}
	if err := cfg.Validate(fsys); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	meta, err := dataset.ReadMetadata(fsys, cfg.MetadataFile())
	if err != nil {
		log.Fatalf("read metadata: %v", err)
	}
	report, err := dataset.CheckDirectory(fsys, cfg.DatasetRoot, meta)
	if err != nil {
		log.Fatalf("check directory: %v", err)
	}

	n := printRowErrors(os.Stdout, meta.RowErrors)
	n += printReport(os.Stdout, report)
	monitoring.Logf("checked %d files against %d sequences: %d unreferenced, %d missing, %d malformed rows",
		report.Checked, len(meta.Records), len(report.Unreferenced), len(report.Missing), len(meta.RowErrors))
	if *strict && n > 0 {
		os.Exit(1)
	}
}
