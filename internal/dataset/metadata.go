package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/subsea.dataset/internal/config"
	"github.com/banshee-data/subsea.dataset/internal/fsutil"
)

// Metadata table column names.
const (
	colSequenceNo      = "sequenceNo"
	colStartDate       = "sequenceStartDate"
	colEndDate         = "sequenceEndDate"
	colStartUnix       = "sequenceStartUnix"
	colSonarFile       = "sonarFilePath"
	colSonarTimestamps = "sonarFileTimestampsPath"
	colCam1File        = "cam1FilePath"
	colCam1Timestamps  = "cam1FileTimestampsPath"
	colCam2File        = "cam2FilePath"
	colCam2Timestamps  = "cam2FileTimestampsPath"
)

var requiredColumns = []string{
	colSequenceNo, colStartDate, colEndDate, colStartUnix,
	colSonarFile, colSonarTimestamps,
	colCam1File, colCam1Timestamps,
	colCam2File, colCam2Timestamps,
}

// dateLayouts are tried in order for the start/end date columns. Dates
// without a zone are taken as UTC.
var dateLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
}

// SequenceRecord is one metadata row. Paths are relative to the dataset root
// and use forward slashes.
type SequenceRecord struct {
	SequenceNo      int
	StartDate       time.Time
	EndDate         time.Time
	StartUnix       float64
	SonarFile       string
	SonarTimestamps string
	Cam1File        string
	Cam1Timestamps  string
	Cam2File        string
	Cam2Timestamps  string
}

// StreamPaths pairs a stream's video with its timestamp file.
type StreamPaths struct {
	Name       string
	Video      string
	Timestamps string
}

// Streams returns the record's three streams in a fixed order: sonar,
// camera1, camera2.
func (r SequenceRecord) Streams() []StreamPaths {
	return []StreamPaths{
		{Name: config.StreamSonar, Video: r.SonarFile, Timestamps: r.SonarTimestamps},
		{Name: config.StreamCamera1, Video: r.Cam1File, Timestamps: r.Cam1Timestamps},
		{Name: config.StreamCamera2, Video: r.Cam2File, Timestamps: r.Cam2Timestamps},
	}
}

// Paths returns all six relative paths the record references.
func (r SequenceRecord) Paths() []string {
	var out []string
	for _, s := range r.Streams() {
		out = append(out, s.Video, s.Timestamps)
	}
	return out
}

// Metadata is the parsed metadata table, ordered by sequence number.
// RowErrors holds the malformed rows that were skipped, in file order.
type Metadata struct {
	Records   []SequenceRecord
	RowErrors []*FormatError
	byNo      map[int]int
}

// Lookup returns the record for sequenceNo or a *NotFoundError.
func (m *Metadata) Lookup(sequenceNo int) (SequenceRecord, error) {
	i, ok := m.byNo[sequenceNo]
	if !ok {
		return SequenceRecord{}, &NotFoundError{SequenceNo: sequenceNo}
	}
	return m.Records[i], nil
}

// After returns the records with a sequence number greater than last, in
// ascending order.
func (m *Metadata) After(last int) []SequenceRecord {
	i := sort.Search(len(m.Records), func(i int) bool { return m.Records[i].SequenceNo > last })
	return m.Records[i:]
}

// ReadMetadata reads and parses the metadata table at name. Failing to read
// the table is fatal for every tool; callers should abort on error.
func ReadMetadata(fsys fsutil.FileSystem, name string) (*Metadata, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata table: %w", err)
	}
	defer f.Close()
	return ParseMetadata(f, name)
}

// ParseMetadata parses a metadata table with a header row. Extra columns are
// ignored. A missing header or required column yields a *FormatError; a
// malformed value or duplicate sequence number only skips its row, recorded
// in RowErrors.
func ParseMetadata(r io.Reader, source string) (*Metadata, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &FormatError{Source: source, Line: 1, Err: fmt.Errorf("missing header row")}
		}
		return nil, &FormatError{Source: source, Line: 1, Err: err}
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, &FormatError{Source: source, Line: 1, Field: col, Err: fmt.Errorf("missing column")}
		}
	}

	m := &Metadata{byNo: make(map[int]int)}
	line := 1
	for {
		row, err := cr.Read()
		line++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return nil, &FormatError{Source: source, Line: line, Err: err}
			}
			m.RowErrors = append(m.RowErrors, &FormatError{Source: source, Line: line, Err: err})
			continue
		}
		if isBlankRow(row) {
			continue
		}
		rec, err := parseRow(row, index, source, line)
		if err != nil {
			var fe *FormatError
			if !errors.As(err, &fe) {
				return nil, err
			}
			m.RowErrors = append(m.RowErrors, fe)
			continue
		}
		if _, dup := m.byNo[rec.SequenceNo]; dup {
			m.RowErrors = append(m.RowErrors, &FormatError{Source: source, Line: line, Field: colSequenceNo, Err: fmt.Errorf("duplicate sequence %d", rec.SequenceNo)})
			continue
		}
		m.byNo[rec.SequenceNo] = len(m.Records)
		m.Records = append(m.Records, rec)
	}

	sort.Slice(m.Records, func(i, j int) bool { return m.Records[i].SequenceNo < m.Records[j].SequenceNo })
	for i, rec := range m.Records {
		m.byNo[rec.SequenceNo] = i
	}
	return m, nil
}

func parseRow(row []string, index map[string]int, source string, line int) (SequenceRecord, error) {
	field := func(col string) (string, error) {
		i := index[col]
		if i >= len(row) {
			return "", &FormatError{Source: source, Line: line, Field: col, Err: fmt.Errorf("row has %d fields", len(row))}
		}
		return strings.TrimSpace(row[i]), nil
	}
	fail := func(col string, err error) error {
		return &FormatError{Source: source, Line: line, Field: col, Err: err}
	}

	var rec SequenceRecord
	raw, err := field(colSequenceNo)
	if err != nil {
		return rec, err
	}
	if rec.SequenceNo, err = strconv.Atoi(raw); err != nil {
		return rec, fail(colSequenceNo, err)
	}

	if raw, err = field(colStartDate); err != nil {
		return rec, err
	}
	if rec.StartDate, err = parseDate(raw); err != nil {
		return rec, fail(colStartDate, err)
	}
	if raw, err = field(colEndDate); err != nil {
		return rec, err
	}
	if rec.EndDate, err = parseDate(raw); err != nil {
		return rec, fail(colEndDate, err)
	}
	if raw, err = field(colStartUnix); err != nil {
		return rec, err
	}
	if rec.StartUnix, err = strconv.ParseFloat(raw, 64); err != nil {
		return rec, fail(colStartUnix, err)
	}

	paths := []struct {
		col string
		dst *string
	}{
		{colSonarFile, &rec.SonarFile},
		{colSonarTimestamps, &rec.SonarTimestamps},
		{colCam1File, &rec.Cam1File},
		{colCam1Timestamps, &rec.Cam1Timestamps},
		{colCam2File, &rec.Cam2File},
		{colCam2Timestamps, &rec.Cam2Timestamps},
	}
	for _, p := range paths {
		if raw, err = field(p.col); err != nil {
			return rec, err
		}
		if raw == "" {
			return rec, fail(p.col, fmt.Errorf("empty path"))
		}
		*p.dst = normalisePath(raw)
	}
	return rec, nil
}

// normalisePath cleans a metadata path into slash-separated, root-relative
// form so the same file always compares equal.
func normalisePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return strings.TrimPrefix(path.Clean(p), "./")
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

func isBlankRow(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
