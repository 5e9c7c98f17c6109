package dataset

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/banshee-data/subsea.dataset/internal/fsutil"
	"github.com/banshee-data/subsea.dataset/internal/security"
)

// Stream is one resolved stream of a sequence.
type Stream struct {
	Name           string
	VideoPath      string
	TimestampsPath string
	Timestamps     TimestampSeries
}

// Sequence is a metadata record with its streams resolved and loaded.
type Sequence struct {
	Record  SequenceRecord
	Streams []Stream
}

// Stream returns the named stream, or nil.
func (s *Sequence) Stream(name string) *Stream {
	for i := range s.Streams {
		if s.Streams[i].Name == name {
			return &s.Streams[i]
		}
	}
	return nil
}

// Loader resolves metadata records against a dataset root.
type Loader struct {
	fs   fsutil.FileSystem
	root string
	meta *Metadata
}

// NewLoader returns a Loader over meta rooted at root.
func NewLoader(fsys fsutil.FileSystem, root string, meta *Metadata) *Loader {
	return &Loader{fs: fsys, root: root, meta: meta}
}

// Metadata returns the table the loader resolves against.
func (l *Loader) Metadata() *Metadata {
	return l.meta
}

// Load resolves the six paths of sequenceNo and reads its three timestamp
// series. It fails with *NotFoundError for an unknown sequence and
// *MissingFileError for the first path absent on disk.
func (l *Loader) Load(sequenceNo int) (*Sequence, error) {
	rec, err := l.meta.Lookup(sequenceNo)
	if err != nil {
		return nil, err
	}

	seq := &Sequence{Record: rec}
	for _, sp := range rec.Streams() {
		video, err := l.Resolve(sp.Video)
		if err != nil {
			return nil, err
		}
		if _, err := l.Stat(video); err != nil {
			return nil, err
		}
		tsPath, err := l.Resolve(sp.Timestamps)
		if err != nil {
			return nil, err
		}
		ts, err := l.ReadTimestamps(tsPath)
		if err != nil {
			return nil, err
		}
		seq.Streams = append(seq.Streams, Stream{
			Name:           sp.Name,
			VideoPath:      video,
			TimestampsPath: tsPath,
			Timestamps:     ts,
		})
	}
	return seq, nil
}

// Resolve maps a metadata-relative path to a path under the dataset root.
func (l *Loader) Resolve(rel string) (string, error) {
	p, err := security.ResolveWithinRoot(l.root, rel)
	if err != nil {
		return "", fmt.Errorf("invalid metadata path: %w", err)
	}
	return p, nil
}

// Stat returns the file's size, or *MissingFileError if it does not exist.
// Zero-byte files are returned with size 0 and no error; see CheckFile.
func (l *Loader) Stat(path string) (int64, error) {
	info, err := l.fs.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, &MissingFileError{Path: path}
		}
		return 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return info.Size(), nil
}

// CheckFile is Stat that also rejects zero-byte files with *EmptyFileError.
func (l *Loader) CheckFile(path string) (int64, error) {
	size, err := l.Stat(path)
	if err != nil {
		return 0, err
	}
	if size == 0 {
		return 0, &EmptyFileError{Path: path}
	}
	return size, nil
}

// ReadTimestamps reads and parses a timestamp file.
func (l *Loader) ReadTimestamps(path string) (TimestampSeries, error) {
	if _, err := l.Stat(path); err != nil {
		return nil, err
	}
	f, err := l.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	ts, err := ParseTimestamps(f, path)
	if err != nil {
		return nil, err
	}
	if err := ts.Validate(); err != nil {
		return nil, &FormatError{Source: path, Err: err}
	}
	return ts, nil
}
