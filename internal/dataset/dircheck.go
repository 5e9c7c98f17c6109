package dataset

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/banshee-data/subsea.dataset/internal/fsutil"
)

// DataDir is the subtree of the dataset root that holds sensor files.
const DataDir = "data"

// DirReport is the outcome of a directory consistency check. Paths are
// root-relative with forward slashes, sorted and free of duplicates.
type DirReport struct {
	// Unreferenced lists files under DataDir that no metadata row names.
	Unreferenced []string
	// Missing lists metadata paths with no file on disk.
	Missing []string
	// Checked is the number of files found under DataDir.
	Checked int
}

// CheckDirectory cross-references every file under root/data against every
// path listed in meta.
func CheckDirectory(fsys fsutil.FileSystem, root string, meta *Metadata) (*DirReport, error) {
	referenced := make(map[string]bool)
	for _, rec := range meta.Records {
		for _, p := range rec.Paths() {
			referenced[p] = true
		}
	}

	report := &DirReport{}
	seen := make(map[string]bool)
	dataRoot := filepath.Join(root, DataDir)
	err := fsys.WalkFiles(dataRoot, func(path string, _ fs.FileInfo) error {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("failed to relativise %s: %w", path, err)
		}
		rel = filepath.ToSlash(rel)
		report.Checked++
		seen[rel] = true
		if !referenced[rel] {
			report.Unreferenced = append(report.Unreferenced, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dataRoot, err)
	}

	for p := range referenced {
		if seen[p] {
			continue
		}
		if !fsys.Exists(filepath.Join(root, filepath.FromSlash(p))) {
			report.Missing = append(report.Missing, p)
		}
	}
	sort.Strings(report.Unreferenced)
	sort.Strings(report.Missing)
	return report, nil
}
