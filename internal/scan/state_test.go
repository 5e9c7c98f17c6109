package scan

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/subsea.dataset/internal/fsutil"
	"github.com/banshee-data/subsea.dataset/internal/quality"
)

func TestLoadState_MissingFileGivesFreshState(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	st, err := LoadState(mfs, "/out/state.json")
	require.NoError(t, err)
	assert.Equal(t, 0, st.LastSequence)
	assert.Equal(t, 1, st.NextSequence())
	assert.Zero(t, st.ElapsedSeconds)
	assert.NotEmpty(t, st.RunID)
	assert.NotNil(t, st.Series)
}

func TestSaveLoadState_RoundTrip(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	st := NewState()
	st.Complete(4, map[string]StreamPoint{
		"sonar":   {SequenceNo: 4, FileSize: 100, Duration: 60, Frames: 1200, Metrics: quality.Metrics{Mean: 20, Variance: 5, Entropy: 4}},
		"camera1": {SequenceNo: 4, FileSize: 300, Duration: 60, Frames: 1200},
	}, 400, 90*time.Second)

	require.NoError(t, SaveState(mfs, "/out/state.json", st))
	assert.False(t, mfs.Exists("/out/state.json.tmp"))

	got, err := LoadState(mfs, "/out/state.json")
	require.NoError(t, err)
	if diff := cmp.Diff(st, got); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 5, got.NextSequence())
	assert.Equal(t, 90*time.Second, got.Elapsed())
}

func TestSaveState_JSONFieldNames(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	st := NewState()
	st.Complete(1, map[string]StreamPoint{"sonar": {SequenceNo: 1, Metrics: quality.Metrics{Mean: 1}}}, 10, time.Second)
	require.NoError(t, SaveState(mfs, "/state.json", st))

	data, err := mfs.ReadFile("/state.json")
	require.NoError(t, err)
	for _, key := range []string{`"run_id"`, `"last_sequence": 1`, `"elapsed_seconds": 1`, `"processed_bytes": 10`, `"mean": 1`, `"sequence_no": 1`} {
		assert.Contains(t, string(data), key)
	}
}

func TestLoadState_Corrupt(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("/state.json", []byte("{not json"), 0644))
	_, err := LoadState(mfs, "/state.json")
	assert.Error(t, err)

	require.NoError(t, mfs.WriteFile("/state.json", []byte(`{"last_sequence":-2}`), 0644))
	_, err = LoadState(mfs, "/state.json")
	assert.Error(t, err)
}

func TestLoadState_FillsMissingFields(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("/state.json", []byte(`{"last_sequence":7}`), 0644))
	st, err := LoadState(mfs, "/state.json")
	require.NoError(t, err)
	assert.Equal(t, 8, st.NextSequence())
	assert.NotEmpty(t, st.RunID)
	assert.NotNil(t, st.Series)
}

func TestState_CompleteAppendsInOrder(t *testing.T) {
	st := &State{}
	st.Complete(1, map[string]StreamPoint{"sonar": {SequenceNo: 1}}, 5, time.Second)
	st.Complete(2, map[string]StreamPoint{"sonar": {SequenceNo: 2}}, 7, 3*time.Second)

	require.Len(t, st.Series["sonar"], 2)
	assert.Equal(t, 2, st.Series["sonar"][1].SequenceNo)
	assert.Equal(t, int64(12), st.ProcessedBytes)
	assert.Equal(t, 3.0, st.ElapsedSeconds)
	assert.Equal(t, 2, st.LastSequence)
}
