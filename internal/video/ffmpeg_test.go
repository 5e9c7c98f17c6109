package video

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProbe(t *testing.T) {
	raw := []byte(`{"streams":[
		{"index":0,"codec_type":"data","codec_name":"bin_data"},
		{"index":1,"codec_type":"video","codec_name":"h264","width":1280,"height":1024,
		 "avg_frame_rate":"20/1","nb_frames":"412"}
	]}`)
	info, err := parseProbe(raw)
	require.NoError(t, err)
	want := Info{Width: 1280, Height: 1024, Codec: "h264", FrameRate: 20, Frames: 412}
	if diff := cmp.Diff(want, info); diff != "" {
		t.Errorf("parseProbe mismatch (-want +got):\n%s", diff)
	}
}

func TestParseProbe_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `ffprobe: no such file`},
		{"no streams", `{"streams":[]}`},
		{"zero size", `{"streams":[{"index":0,"codec_type":"video","width":0,"height":0}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseProbe([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestParseRate(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"20/1", 20},
		{"30000/1001", 30000.0 / 1001.0},
		{"25", 25},
		{"0/0", 0},
		{"", 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, parseRate(tt.in), 1e-9, tt.in)
	}
}

func TestDecodeArgs(t *testing.T) {
	args := decodeArgs("/data/sonar/sequences/sonar_1.mp4")
	assert.Contains(t, args, "/data/sonar/sequences/sonar_1.mp4")
	assert.Equal(t, "pipe:1", args[len(args)-1])
	assertFlag(t, args, "-pix_fmt", "gray")
	assertFlag(t, args, "-f", "rawvideo")
}

func TestEncodeArgs(t *testing.T) {
	args := encodeArgs("out.mp4", 1280, 960, 20)
	assert.Equal(t, "out.mp4", args[len(args)-1])
	assertFlag(t, args, "-s", "1280x960")
	assertFlag(t, args, "-framerate", "20")
	assertFlag(t, args, "-i", "pipe:0")
	assert.Contains(t, args, "-y")
}

func TestCreate_RejectsBadGeometry(t *testing.T) {
	tool := &Tool{FFmpegPath: "/nonexistent/ffmpeg"}
	_, err := tool.Create(context.Background(), "out.mp4", 0, 10, 20)
	assert.Error(t, err)
	_, err = tool.Create(context.Background(), "out.mp4", 10, 10, 0)
	assert.Error(t, err)
}

func TestOpen_MissingBinary(t *testing.T) {
	tool := &Tool{FFprobePath: "/nonexistent/ffprobe"}
	_, err := tool.Open(context.Background(), "whatever.mp4")
	assert.Error(t, err)
}

// fakeEncoderScript stands in for ffmpeg: it copies stdin to the last
// argument, the output path.
const fakeEncoderScript = "#!/bin/sh\nfor last; do :; done\ncat > \"$last\"\n"

func TestCreateWriter_OutlivesCancelledContext(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "ffmpeg")
	require.NoError(t, os.WriteFile(script, []byte(fakeEncoderScript), 0755))
	out := filepath.Join(dir, "out.raw")

	ctx, cancel := context.WithCancel(context.Background())
	w, err := (&Tool{FFmpegPath: script}).CreateWriter(ctx, out, 4, 2, 20)
	require.NoError(t, err)
	cancel()

	require.NoError(t, w.WriteFrame(solidGray(4, 2, 9)))
	require.NoError(t, w.WriteFrame(solidGray(4, 2, 7)))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Len(t, data, 16)
	assert.Equal(t, byte(7), data[15])
}

func TestToolDefaults(t *testing.T) {
	tool := &Tool{}
	assert.Equal(t, "ffmpeg", tool.ffmpeg())
	assert.Equal(t, "ffprobe", tool.ffprobe())
}

// TestEncodeDecodeRoundTrip exercises the real executables when installed.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not installed")
	}
	ctx := context.Background()
	path := t.TempDir() + "/roundtrip.mp4"
	tool := &Tool{}

	w, err := tool.CreateWriter(ctx, path, 64, 48, 10)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, w.WriteFrame(solidGray(64, 48, uint8(40*i))))
	}
	assert.Equal(t, 5, w.Frames())
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	dec, err := tool.OpenDecoder(ctx, path)
	require.NoError(t, err)
	defer dec.Close()
	assert.Equal(t, 64, dec.Info().Width)
	assert.Equal(t, 48, dec.Info().Height)

	n := 0
	for {
		img, err := dec.Next()
		if err != nil {
			break
		}
		assert.Equal(t, 64, img.Bounds().Dx())
		n++
	}
	assert.Equal(t, 5, n)
}

func assertFlag(t *testing.T, args []string, flag, value string) {
	t.Helper()
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag && args[i+1] == value {
			return
		}
	}
	t.Errorf("expected %s %s in %v", flag, value, args)
}
