package video

import (
	"bytes"
	"image"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawSource_ReadsFramesUntilEOF(t *testing.T) {
	// Two 3x2 frames plus a trailing partial frame.
	data := []byte{
		0, 1, 2, 3, 4, 5,
		10, 11, 12, 13, 14, 15,
		99, 99,
	}
	src := NewRawSource(bytes.NewReader(data), 3, 2)

	f1, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), f1.Bounds())
	assert.Equal(t, uint8(4), f1.GrayAt(1, 1).Y)

	f2, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, uint8(10), f2.GrayAt(0, 0).Y)

	_, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 2, src.Frames())
}

func TestRawSource_Empty(t *testing.T) {
	src := NewRawSource(bytes.NewReader(nil), 4, 4)
	_, err := src.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 0, src.Frames())
}

func TestWriteRaw_SubImageStride(t *testing.T) {
	base := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range base.Pix {
		base.Pix[i] = uint8(i)
	}
	sub := base.SubImage(image.Rect(1, 1, 3, 3)).(*image.Gray)

	var buf bytes.Buffer
	require.NoError(t, writeRaw(&buf, sub, 2, 2))
	assert.Equal(t, []byte{5, 6, 9, 10}, buf.Bytes())

	// Round trip through RawSource.
	got, err := NewRawSource(&buf, 2, 2).Next()
	require.NoError(t, err)
	assert.Equal(t, uint8(10), got.GrayAt(1, 1).Y)
}

func TestWriteRaw_SizeMismatch(t *testing.T) {
	var buf bytes.Buffer
	err := writeRaw(&buf, image.NewGray(image.Rect(0, 0, 2, 2)), 3, 2)
	assert.Error(t, err)
	assert.Zero(t, buf.Len())
}

func TestTailBuffer_KeepsLastBytes(t *testing.T) {
	tb := newTailBuffer(5)
	_, _ = tb.Write([]byte("abc"))
	_, _ = tb.Write([]byte("defgh"))
	assert.Equal(t, "defgh", tb.String())
	_, _ = tb.Write([]byte("ij"))
	assert.Equal(t, "fghij", tb.String())
}

func TestSliceSource(t *testing.T) {
	src := &SliceSource{Frames: []*image.Gray{solidGray(1, 1, 7)}}
	img, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, uint8(7), img.GrayAt(0, 0).Y)
	_, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 1, src.Consumed())

	require.NoError(t, src.Close())
	assert.True(t, src.Closed())
	_, err = src.Next()
	assert.Error(t, err)
}

func TestMemorySink(t *testing.T) {
	s := &MemorySink{Width: 2, Height: 2}
	require.NoError(t, s.WriteFrame(solidGray(2, 2, 1)))
	assert.Error(t, s.WriteFrame(solidGray(3, 2, 1)))
	require.NoError(t, s.Close())
	assert.Error(t, s.WriteFrame(solidGray(2, 2, 1)))
	assert.Len(t, s.Frames, 1)
}
