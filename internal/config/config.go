// Package config holds the run configuration shared by the dataset tools and
// the JSON analysis parameters (alignment step, composite geometry and
// per-stream anomaly thresholds).
package config

import (
	"fmt"
	"path/filepath"

	"github.com/banshee-data/subsea.dataset/internal/fsutil"
)

// DefaultSequenceID is the sequence visualised when none is given.
const DefaultSequenceID = 1

// DefaultMetadataPath is the metadata table location relative to the dataset root.
const DefaultMetadataPath = "metadata/metadata.csv"

// Config enumerates the inputs every tool accepts.
type Config struct {
	SequenceID   int
	DatasetRoot  string
	ShowPreview  bool
	MetadataPath string

	FFmpegPath  string
	FFprobePath string
}

// Default returns a Config with the documented defaults and no dataset root.
func Default() Config {
	return Config{
		SequenceID:   DefaultSequenceID,
		MetadataPath: DefaultMetadataPath,
		FFmpegPath:   "ffmpeg",
		FFprobePath:  "ffprobe",
	}
}

// Validate checks that the dataset root is set and is an existing directory.
func (c Config) Validate(fsys fsutil.FileSystem) error {
	if c.DatasetRoot == "" {
		return fmt.Errorf("dataset root is required")
	}
	info, err := fsys.Stat(c.DatasetRoot)
	if err != nil {
		return fmt.Errorf("dataset root %s: %w", c.DatasetRoot, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("dataset root %s is not a directory", c.DatasetRoot)
	}
	if c.SequenceID < 1 {
		return fmt.Errorf("sequence id must be >= 1, got %d", c.SequenceID)
	}
	return nil
}

// MetadataFile returns the absolute-or-root-joined metadata table path.
func (c Config) MetadataFile() string {
	p := c.MetadataPath
	if p == "" {
		p = DefaultMetadataPath
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DatasetRoot, filepath.FromSlash(p))
}
