package video

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/banshee-data/subsea.dataset/internal/monitoring"
)

const stderrTail = 4096

// Opener opens a video file as a frame source.
type Opener interface {
	Open(ctx context.Context, path string) (FrameSource, error)
}

// Encoder creates a video file that accepts frames of a fixed size.
type Encoder interface {
	Create(ctx context.Context, path string, width, height int, fps float64) (FrameSink, error)
}

// Sized is implemented by sources that know their frame geometry up front.
type Sized interface {
	Info() Info
}

// Tool runs the ffmpeg and ffprobe executables. Empty paths fall back to the
// names on $PATH.
type Tool struct {
	FFmpegPath  string
	FFprobePath string
}

func (t *Tool) ffmpeg() string {
	if t.FFmpegPath == "" {
		return "ffmpeg"
	}
	return t.FFmpegPath
}

func (t *Tool) ffprobe() string {
	if t.FFprobePath == "" {
		return "ffprobe"
	}
	return t.FFprobePath
}

func (t *Tool) output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	stderr := newTailBuffer(stderrTail)
	cmd.Stderr = stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

func decodeArgs(path string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", path,
		"-map", "0:v:0",
		"-vsync", "passthrough",
		"-f", "rawvideo",
		"-pix_fmt", "gray",
		"pipe:1",
	}
}

// Decoder is a FrameSource backed by an ffmpeg child process writing gray8
// rawvideo to its stdout.
type Decoder struct {
	path   string
	info   Info
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *tailBuffer
	raw    *RawSource
	done   bool
}

// Open probes path for its geometry and starts decoding it.
func (t *Tool) Open(ctx context.Context, path string) (FrameSource, error) {
	d, err := t.OpenDecoder(ctx, path)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// OpenDecoder is Open returning the concrete type.
func (t *Tool) OpenDecoder(ctx context.Context, path string) (*Decoder, error) {
	info, err := t.Probe(ctx, path)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, t.ffmpeg(), decodeArgs(path)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	stderr := newTailBuffer(stderrTail)
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	frameSize := info.Width * info.Height
	return &Decoder{
		path:   path,
		info:   info,
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
		raw:    NewRawSource(bufio.NewReaderSize(stdout, frameSize*2), info.Width, info.Height),
	}, nil
}

// Info returns the probed stream geometry.
func (d *Decoder) Info() Info {
	return d.info
}

// Next returns the next decoded frame, or io.EOF once ffmpeg has exited
// cleanly. A non-zero ffmpeg exit is reported as an error in place of io.EOF.
func (d *Decoder) Next() (*image.Gray, error) {
	if d.done {
		return nil, io.EOF
	}
	img, err := d.raw.Next()
	if err == nil {
		return img, nil
	}
	d.done = true
	if !errors.Is(err, io.EOF) {
		_ = d.Close()
		return nil, fmt.Errorf("read frame %d of %s: %w", d.raw.Frames(), d.path, err)
	}
	if werr := d.wait(); werr != nil {
		return nil, werr
	}
	return nil, io.EOF
}

func (d *Decoder) wait() error {
	if d.cmd == nil {
		return nil
	}
	cmd := d.cmd
	d.cmd = nil
	if err := cmd.Wait(); err != nil {
		if msg := strings.TrimSpace(d.stderr.String()); msg != "" {
			return fmt.Errorf("ffmpeg decode %s: %w: %s", d.path, err, msg)
		}
		return fmt.Errorf("ffmpeg decode %s: %w", d.path, err)
	}
	return nil
}

// Close stops the decoder. It is safe to call more than once.
func (d *Decoder) Close() error {
	if d.cmd == nil {
		return nil
	}
	d.done = true
	_ = d.stdout.Close()
	if d.cmd.Process != nil {
		_ = d.cmd.Process.Kill()
	}
	_ = d.cmd.Wait()
	d.cmd = nil
	return nil
}

func encodeArgs(path string, width, height int, fps float64) []string {
	rate := strconv.FormatFloat(fps, 'f', -1, 64)
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "gray",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-framerate", rate,
		"-i", "pipe:0",
		"-an",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		path,
	}
}

// Writer encodes gray frames to a video file through ffmpeg's stdin.
type Writer struct {
	path   string
	width  int
	height int
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	buf    *bufio.Writer
	stderr *tailBuffer
	frames int
	closed bool
}

// Create implements Encoder.
func (t *Tool) Create(ctx context.Context, path string, width, height int, fps float64) (FrameSink, error) {
	w, err := t.CreateWriter(ctx, path, width, height, fps)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// CreateWriter starts an encoder writing width x height frames at fps to
// path, replacing any existing file. Cancelling ctx does not stop the
// encoder: it runs until Close ends its input, so the container is always
// finalized.
func (t *Tool) CreateWriter(ctx context.Context, path string, width, height int, fps float64) (*Writer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	if fps <= 0 {
		return nil, fmt.Errorf("invalid fps: %v", fps)
	}
	args := encodeArgs(path, width, height, fps)
	cmd := exec.CommandContext(context.WithoutCancel(ctx), t.ffmpeg(), args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdin pipe: %w", err)
	}
	stderr := newTailBuffer(stderrTail)
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	monitoring.Logf("encoding %dx%d @ %.2f fps to %s", width, height, fps, path)
	return &Writer{
		path:   path,
		width:  width,
		height: height,
		cmd:    cmd,
		stdin:  stdin,
		buf:    bufio.NewWriterSize(stdin, width*height*2),
		stderr: stderr,
	}, nil
}

// WriteFrame appends one frame. The frame must match the writer's size.
func (w *Writer) WriteFrame(img *image.Gray) error {
	if w.closed {
		return fmt.Errorf("write to closed encoder for %s", w.path)
	}
	if err := writeRaw(w.buf, img, w.width, w.height); err != nil {
		return fmt.Errorf("encode frame %d: %w", w.frames, err)
	}
	w.frames++
	return nil
}

// Frames returns the number of frames written.
func (w *Writer) Frames() int {
	return w.frames
}

// Close flushes pending frames, closes ffmpeg's stdin and waits for it to
// finalize the container. Later calls return nil.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	flushErr := w.buf.Flush()
	closeErr := w.stdin.Close()
	if err := w.cmd.Wait(); err != nil {
		if msg := strings.TrimSpace(w.stderr.String()); msg != "" {
			return fmt.Errorf("ffmpeg encode %s: %w: %s", w.path, err, msg)
		}
		return fmt.Errorf("ffmpeg encode %s: %w", w.path, err)
	}
	if flushErr != nil {
		return fmt.Errorf("flush frames to %s: %w", w.path, flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close encoder input for %s: %w", w.path, closeErr)
	}
	return nil
}
