// Package testutil provides shared dataset fixtures and fakes for tests.
package testutil

import (
	"context"
	"fmt"
	"image"
	"path"
	"strconv"
	"strings"
	"testing"

	"github.com/banshee-data/subsea.dataset/internal/fsutil"
	"github.com/banshee-data/subsea.dataset/internal/video"
)

// MetadataHeader is the metadata table header row.
const MetadataHeader = "sequenceNo,sequenceStartDate,sequenceEndDate,sequenceStartUnix," +
	"sonarFilePath,sonarFileTimestampsPath,cam1FilePath,cam1FileTimestampsPath,cam2FilePath,cam2FileTimestampsPath"

// StartUnix is the recording start of every fixture sequence,
// 2021-06-08T10:00:00Z.
const StartUnix = 1623146400

// StreamFiles are one fixture stream's relative paths.
type StreamFiles struct {
	Name       string
	Video      string
	Timestamps string
}

// SequenceFiles returns the relative paths of seq following the dataset's
// folder conventions, in the order sonar, camera1, camera2.
func SequenceFiles(seq int) []StreamFiles {
	return []StreamFiles{
		{"sonar", fmt.Sprintf("data/sonar/sequences/sonar_%d.mp4", seq), fmt.Sprintf("data/sonar/sequences/sonar_%d_timestamps.txt", seq)},
		{"camera1", fmt.Sprintf("data/camera1/sequences/cam1_%d.mp4", seq), fmt.Sprintf("data/camera1/sequences/cam1_%d_timestamps.txt", seq)},
		{"camera2", fmt.Sprintf("data/camera2/sequences/cam2_%d.mp4", seq), fmt.Sprintf("data/camera2/sequences/cam2_%d_timestamps.txt", seq)},
	}
}

// MetadataRow returns the metadata row for seq.
func MetadataRow(seq int) string {
	fields := []string{
		strconv.Itoa(seq),
		"2021-06-08 10:00:00",
		"2021-06-08 10:05:00",
		strconv.Itoa(StartUnix),
	}
	for _, s := range SequenceFiles(seq) {
		fields = append(fields, s.Video, s.Timestamps)
	}
	return strings.Join(fields, ",")
}

// MetadataCSV returns a metadata table with one row per sequence.
func MetadataCSV(seqs ...int) string {
	rows := []string{MetadataHeader}
	for _, s := range seqs {
		rows = append(rows, MetadataRow(s))
	}
	return strings.Join(rows, "\n") + "\n"
}

// Timestamps renders n timestamps from start spaced by step, one per line.
func Timestamps(start, step float64, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%.3f\n", start+float64(i)*step)
	}
	return b.String()
}

// WriteDataset writes the metadata table and, for every sequence, a
// placeholder video and n timestamps per stream under root.
func WriteDataset(t testing.TB, mfs *fsutil.MemoryFileSystem, root string, n int, seqs ...int) {
	t.Helper()
	write := func(name string, data []byte) {
		t.Helper()
		if err := mfs.WriteFile(path.Join(root, name), data, 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("metadata/metadata.csv", []byte(MetadataCSV(seqs...)))
	ts := []byte(Timestamps(StartUnix, 0.05, n))
	for _, seq := range seqs {
		for _, s := range SequenceFiles(seq) {
			write(s.Video, []byte("video:"+s.Video))
			write(s.Timestamps, ts)
		}
	}
}

// SolidFrame returns a w x h frame filled with v.
func SolidFrame(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

// SolidFrames returns n identical frames.
func SolidFrames(n, w, h int, v uint8) []*image.Gray {
	out := make([]*image.Gray, n)
	for i := range out {
		out[i] = SolidFrame(w, h, v)
	}
	return out
}

// FakeOpener serves in-memory frames keyed by path. Paths without frames
// open as empty streams.
type FakeOpener struct {
	Frames   map[string][]*image.Gray
	OpenErrs map[string]error
	ReadErrs map[string]error
	Opened   []string
}

// Open implements video.Opener.
func (o *FakeOpener) Open(_ context.Context, p string) (video.FrameSource, error) {
	o.Opened = append(o.Opened, p)
	if err := o.OpenErrs[p]; err != nil {
		return nil, err
	}
	return &video.SliceSource{Frames: o.Frames[p], Err: o.ReadErrs[p]}, nil
}

// FakeEncoder records created sinks, their frame rate and the context they
// were created with, by path.
type FakeEncoder struct {
	Sinks    map[string]*video.MemorySink
	FPS      map[string]float64
	Contexts map[string]context.Context
	Err      error
}

// Create implements video.Encoder.
func (e *FakeEncoder) Create(ctx context.Context, p string, width, height int, fps float64) (video.FrameSink, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	if e.Sinks == nil {
		e.Sinks = make(map[string]*video.MemorySink)
		e.FPS = make(map[string]float64)
		e.Contexts = make(map[string]context.Context)
	}
	s := &video.MemorySink{Width: width, Height: height}
	e.Sinks[p] = s
	e.FPS[p] = fps
	e.Contexts[p] = ctx
	return s, nil
}
