package dataset

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetadata(t *testing.T) {
	meta, err := ParseMetadata(strings.NewReader(metadataCSV(3, 1, 2)), "metadata.csv")
	require.NoError(t, err)
	require.Len(t, meta.Records, 3)

	var order []int
	for _, r := range meta.Records {
		order = append(order, r.SequenceNo)
	}
	assert.Equal(t, []int{1, 2, 3}, order, "records are sorted by sequence number")

	rec, err := meta.Lookup(2)
	require.NoError(t, err)
	want := SequenceRecord{
		SequenceNo:      2,
		StartDate:       time.Date(2021, 6, 8, 10, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2021, 6, 8, 10, 5, 0, 0, time.UTC),
		StartUnix:       1623146400,
		SonarFile:       "data/sonar/sequences/sonar_2.mp4",
		SonarTimestamps: "data/sonar/sequences/sonar_2_timestamps.txt",
		Cam1File:        "data/camera1/sequences/cam1_2.mp4",
		Cam1Timestamps:  "data/camera1/sequences/cam1_2_timestamps.txt",
		Cam2File:        "data/camera2/sequences/cam2_2.mp4",
		Cam2Timestamps:  "data/camera2/sequences/cam2_2_timestamps.txt",
	}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMetadata_ExtraColumnsAndNormalisation(t *testing.T) {
	body := "notes," + metadataHeader + "\n" +
		`"temp 12C",1,2021-06-08T10:00:00.250,2021-06-08T10:05:00,1623146400.25,` +
		`./data/sonar/a.mp4,data\sonar\a.txt,data/camera1/b.mp4,data/camera1/b.txt,data/camera2/c.mp4,data/camera2/c.txt` + "\n\n"

	meta, err := ParseMetadata(strings.NewReader(body), "metadata.csv")
	require.NoError(t, err)
	require.Len(t, meta.Records, 1)
	rec := meta.Records[0]
	assert.Equal(t, "data/sonar/a.mp4", rec.SonarFile)
	assert.Equal(t, "data/sonar/a.txt", rec.SonarTimestamps)
	assert.Equal(t, 250*time.Millisecond, time.Duration(rec.StartDate.Nanosecond()))
}

func TestParseMetadata_HeaderErrorsAreFatal(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{name: "empty", body: ""},
		{name: "missing column", body: "sequenceNo,sonarFilePath\n1,a\n", wantField: colStartDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, err := ParseMetadata(strings.NewReader(tt.body), "metadata.csv")
			assert.Nil(t, meta)
			var fe *FormatError
			require.True(t, errors.As(err, &fe), "expected *FormatError, got %v", err)
			assert.Equal(t, 1, fe.Line)
			assert.Equal(t, tt.wantField, fe.Field)
			assert.Equal(t, "metadata.csv", fe.Source)
		})
	}
}

func TestParseMetadata_MalformedRowsSkipped(t *testing.T) {
	tests := []struct {
		name      string
		bad       string
		wantField string
	}{
		{name: "bad sequence", bad: strings.Replace(metadataRow(2), "2,", "two,", 1), wantField: colSequenceNo},
		{name: "bad date", bad: strings.Replace(metadataRow(2), "2021-06-08 10:00:00", "yesterday", 1), wantField: colStartDate},
		{name: "bad unix", bad: strings.Replace(metadataRow(2), "1623146400", "soon", 1), wantField: colStartUnix},
		{name: "short row", bad: "2,2021-06-08 10:00:00", wantField: colEndDate},
		{name: "duplicate", bad: metadataRow(1), wantField: colSequenceNo},
		{name: "empty path", bad: strings.Replace(metadataRow(2), "data/sonar/sequences/sonar_2.mp4", "", 1), wantField: colSonarFile},
		{name: "bare quote", bad: `2,"2021-06-08 "10:00:00",x`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := strings.Join([]string{metadataHeader, metadataRow(1), tt.bad, metadataRow(3)}, "\n") + "\n"
			meta, err := ParseMetadata(strings.NewReader(body), "metadata.csv")
			require.NoError(t, err)

			var got []int
			for _, r := range meta.Records {
				got = append(got, r.SequenceNo)
			}
			assert.Equal(t, []int{1, 3}, got)
			require.Len(t, meta.RowErrors, 1)
			fe := meta.RowErrors[0]
			assert.Equal(t, 3, fe.Line)
			assert.Equal(t, tt.wantField, fe.Field)
			_, err = meta.Lookup(3)
			assert.NoError(t, err)
		})
	}
}

func TestMetadataLookupAndAfter(t *testing.T) {
	meta, err := ParseMetadata(strings.NewReader(metadataCSV(1, 2, 5, 9)), "m")
	require.NoError(t, err)

	_, err = meta.Lookup(4)
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, 4, nf.SequenceNo)

	var got []int
	for _, r := range meta.After(2) {
		got = append(got, r.SequenceNo)
	}
	assert.Equal(t, []int{5, 9}, got)
	assert.Len(t, meta.After(0), 4)
	assert.Empty(t, meta.After(9))
}

func TestSequenceRecordPaths(t *testing.T) {
	meta, err := ParseMetadata(strings.NewReader(metadataCSV(7)), "m")
	require.NoError(t, err)
	rec := meta.Records[0]

	streams := rec.Streams()
	require.Len(t, streams, 3)
	assert.Equal(t, []string{"sonar", "camera1", "camera2"}, []string{streams[0].Name, streams[1].Name, streams[2].Name})
	assert.Len(t, rec.Paths(), 6)
}
