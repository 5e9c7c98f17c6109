package dataset

import (
	"testing"

	"github.com/banshee-data/subsea.dataset/internal/fsutil"
	"github.com/banshee-data/subsea.dataset/internal/testutil"
)

const metadataHeader = testutil.MetadataHeader

func metadataRow(seq int) string { return testutil.MetadataRow(seq) }

func metadataCSV(seqs ...int) string { return testutil.MetadataCSV(seqs...) }

// writeSequenceFiles populates every file the metadata row for seq names,
// with two timestamps per stream.
func writeSequenceFiles(t *testing.T, mfs *fsutil.MemoryFileSystem, root string, seq int) {
	t.Helper()
	ts := []byte(testutil.Timestamps(testutil.StartUnix, 0.05, 2))
	for _, s := range testutil.SequenceFiles(seq) {
		if err := mfs.WriteFile(root+"/"+s.Video, []byte("video"), 0644); err != nil {
			t.Fatalf("write video: %v", err)
		}
		if err := mfs.WriteFile(root+"/"+s.Timestamps, ts, 0644); err != nil {
			t.Fatalf("write timestamps: %v", err)
		}
	}
}
