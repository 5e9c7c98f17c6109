package video

import (
	"errors"
	"fmt"
	"image"
	"io"
)

// FrameSource yields decoded frames in presentation order. Next returns
// io.EOF once the stream is exhausted.
type FrameSource interface {
	Next() (*image.Gray, error)
	Close() error
}

// FrameSink accepts frames for encoding.
type FrameSink interface {
	WriteFrame(img *image.Gray) error
	Close() error
}

// RawSource reads fixed-size gray8 frames from r.
type RawSource struct {
	r      io.Reader
	width  int
	height int
	frames int
}

// NewRawSource returns a source reading width*height byte frames from r.
func NewRawSource(r io.Reader, width, height int) *RawSource {
	return &RawSource{r: r, width: width, height: height}
}

// Next reads the next frame. A trailing partial frame is treated as the end
// of the stream.
func (s *RawSource) Next() (*image.Gray, error) {
	img := image.NewGray(image.Rect(0, 0, s.width, s.height))
	if _, err := io.ReadFull(s.r, img.Pix); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	s.frames++
	return img, nil
}

// Frames returns the number of frames read so far.
func (s *RawSource) Frames() int {
	return s.frames
}

// Close is a no-op; the owner of r closes it.
func (s *RawSource) Close() error { return nil }

// writeRaw writes img as width*height gray8 bytes, converting the bounds and
// stride if needed.
func writeRaw(w io.Writer, img *image.Gray, width, height int) error {
	b := img.Bounds()
	if b.Dx() != width || b.Dy() != height {
		return fmt.Errorf("frame is %dx%d, writer expects %dx%d", b.Dx(), b.Dy(), width, height)
	}
	if img.Stride == width && b.Min == (image.Point{}) {
		_, err := w.Write(img.Pix[:width*height])
		return err
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		if _, err := w.Write(img.Pix[off : off+width]); err != nil {
			return err
		}
	}
	return nil
}

// tailBuffer keeps the last max bytes written to it, for ffmpeg's stderr.
type tailBuffer struct {
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return string(t.buf)
}

// SliceSource yields frames held in memory, then io.EOF. Err, when set, is
// returned after the frames instead of io.EOF.
type SliceSource struct {
	Frames []*image.Gray
	Err    error
	next   int
	closed bool
}

func (s *SliceSource) Next() (*image.Gray, error) {
	if s.closed {
		return nil, fmt.Errorf("read from closed source")
	}
	if s.next >= len(s.Frames) {
		if s.Err != nil {
			return nil, s.Err
		}
		return nil, io.EOF
	}
	img := s.Frames[s.next]
	s.next++
	return img, nil
}

// Consumed returns the number of frames handed out.
func (s *SliceSource) Consumed() int {
	return s.next
}

// Closed reports whether Close was called.
func (s *SliceSource) Closed() bool {
	return s.closed
}

func (s *SliceSource) Close() error {
	s.closed = true
	return nil
}

// MemorySink keeps written frames in memory.
type MemorySink struct {
	Width  int
	Height int
	Frames []*image.Gray
	Closed bool
}

func (s *MemorySink) WriteFrame(img *image.Gray) error {
	if s.Closed {
		return fmt.Errorf("write to closed sink")
	}
	b := img.Bounds()
	if b.Dx() != s.Width || b.Dy() != s.Height {
		return fmt.Errorf("frame is %dx%d, sink expects %dx%d", b.Dx(), b.Dy(), s.Width, s.Height)
	}
	s.Frames = append(s.Frames, img)
	return nil
}

func (s *MemorySink) Close() error {
	s.Closed = true
	return nil
}
