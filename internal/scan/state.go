// Package scan runs the resumable frame-level integrity scan over every
// sequence of the dataset and checkpoints its progress after each one.
package scan

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/subsea.dataset/internal/fsutil"
	"github.com/banshee-data/subsea.dataset/internal/quality"
	"github.com/banshee-data/subsea.dataset/internal/version"
)

// StreamPoint is one stream of one completed sequence.
type StreamPoint struct {
	SequenceNo int     `json:"sequence_no"`
	FileSize   int64   `json:"file_size"`
	Duration   float64 `json:"duration_seconds"`
	Frames     int     `json:"frames"`
	quality.Metrics
}

// State is the scan checkpoint. LastSequence is the last fully completed
// sequence; zero means none.
type State struct {
	RunID          string                   `json:"run_id"`
	Version        string                   `json:"version,omitempty"`
	LastSequence   int                      `json:"last_sequence"`
	ElapsedSeconds float64                  `json:"elapsed_seconds"`
	ProcessedBytes int64                    `json:"processed_bytes"`
	Series         map[string][]StreamPoint `json:"series"`
	UpdatedAt      time.Time                `json:"updated_at,omitempty"`

	// MetadataChecked is set once the skipped metadata rows have been
	// written to the warning log, so a resumed scan does not repeat them.
	MetadataChecked bool `json:"metadata_checked"`
}

// NewState returns the state of a scan that has not started.
func NewState() *State {
	return &State{
		RunID:   uuid.NewString(),
		Version: version.Version,
		Series:  make(map[string][]StreamPoint),
	}
}

// NextSequence is the first sequence number still to be scanned.
func (s *State) NextSequence() int {
	return s.LastSequence + 1
}

// Elapsed returns the accumulated scan time.
func (s *State) Elapsed() time.Duration {
	return time.Duration(s.ElapsedSeconds * float64(time.Second))
}

// Complete records a finished sequence: its stream points, the bytes it
// processed and the new total elapsed time.
func (s *State) Complete(sequenceNo int, points map[string]StreamPoint, bytes int64, elapsed time.Duration) {
	if s.Series == nil {
		s.Series = make(map[string][]StreamPoint)
	}
	names := make([]string, 0, len(points))
	for name := range points {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s.Series[name] = append(s.Series[name], points[name])
	}
	s.LastSequence = sequenceNo
	s.ProcessedBytes += bytes
	s.ElapsedSeconds = elapsed.Seconds()
}

// LoadState reads the checkpoint at path. A missing file yields a fresh
// state; an unreadable or corrupt one is an error so a scan never silently
// restarts from the beginning.
func LoadState(fsys fsutil.FileSystem, path string) (*State, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewState(), nil
		}
		return nil, fmt.Errorf("failed to read scan state: %w", err)
	}
	st := &State{}
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("failed to parse scan state %s: %w", path, err)
	}
	if st.LastSequence < 0 || st.ElapsedSeconds < 0 || st.ProcessedBytes < 0 {
		return nil, fmt.Errorf("scan state %s has negative counters", path)
	}
	if st.Series == nil {
		st.Series = make(map[string][]StreamPoint)
	}
	if st.RunID == "" {
		st.RunID = uuid.NewString()
	}
	return st, nil
}

// SaveState writes st to path through a temporary file and a rename, so an
// interrupted write leaves the previous checkpoint intact.
func SaveState(fsys fsutil.FileSystem, path string, st *State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode scan state: %w", err)
	}
	tmp := path + ".tmp"
	if err := fsys.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write scan state: %w", err)
	}
	if err := fsys.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace scan state: %w", err)
	}
	return nil
}
