// Package composite lays out the sonar and camera views of one timeline tick
// as a labeled 2x2 grid.
package composite

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"
	"time"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Grid labels, in layout order.
const (
	LabelCamera2    = "Camera 2"
	LabelCamera1    = "Camera 1"
	LabelSonar      = "Sonar"
	LabelSonarClose = "Sonar close range"
)

// Layout sizes the grid. Every view is resized to SubWidth x SubHeight.
// CloseRangeOffset is the first sonar row kept in the close-range view;
// LabelOffset is the distance from the bottom of a view to its label
// baseline.
type Layout struct {
	SubWidth         int
	SubHeight        int
	CloseRangeOffset int
	LabelOffset      int
}

// Validate checks that the layout can produce a frame.
func (l Layout) Validate() error {
	if l.SubWidth <= 0 || l.SubHeight <= 0 {
		return fmt.Errorf("invalid sub-image size %dx%d", l.SubWidth, l.SubHeight)
	}
	if l.CloseRangeOffset < 0 {
		return fmt.Errorf("close range offset must be non-negative, got %d", l.CloseRangeOffset)
	}
	if l.LabelOffset < 0 || l.LabelOffset > l.SubHeight {
		return fmt.Errorf("label offset %d outside 0..%d", l.LabelOffset, l.SubHeight)
	}
	return nil
}

// Size returns the composite frame size.
func (l Layout) Size() (width, height int) {
	return 2 * l.SubWidth, 2 * l.SubHeight
}

// Views are the raw frames of one tick.
type Views struct {
	Sonar   image.Image
	Camera1 image.Image
	Camera2 image.Image
}

// Compositor renders composite frames. It is not safe for concurrent use.
type Compositor struct {
	layout Layout
	face   font.Face
	scaler draw.Scaler
}

// New returns a compositor for layout.
func New(layout Layout) (*Compositor, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	return &Compositor{
		layout: layout,
		face:   basicfont.Face7x13,
		scaler: draw.BiLinear,
	}, nil
}

// Layout returns the compositor's layout.
func (c *Compositor) Layout() Layout {
	return c.layout
}

// Compose renders the 2x2 grid {camera-2, camera-1; sonar, sonar close range}
// with the sequence number and tick time overlaid at the centre.
func (c *Compositor) Compose(v Views, tick float64, sequenceNo int) *image.Gray {
	w, h := c.layout.SubWidth, c.layout.SubHeight
	out := image.NewGray(image.Rect(0, 0, 2*w, 2*h))

	cells := []struct {
		src   image.Image
		label string
		at    image.Point
	}{
		{v.Camera2, LabelCamera2, image.Pt(0, 0)},
		{v.Camera1, LabelCamera1, image.Pt(w, 0)},
		{v.Sonar, LabelSonar, image.Pt(0, h)},
		{CloseRange(v.Sonar, c.layout.CloseRangeOffset), LabelSonarClose, image.Pt(w, h)},
	}
	for _, cell := range cells {
		rect := image.Rectangle{Min: cell.at, Max: cell.at.Add(image.Pt(w, h))}
		if cell.src != nil && !cell.src.Bounds().Empty() {
			c.scaler.Scale(out, rect, cell.src, cell.src.Bounds(), draw.Src, nil)
		}
		c.drawCentered(out, cell.label, rect.Min.X+w/2, rect.Max.Y-c.layout.LabelOffset)
	}

	c.drawOverlay(out, OverlayLines(tick, sequenceNo))
	return out
}

// CloseRange returns rows [offset, H) of the sonar frame. The offset is
// clamped so at least one row remains.
func CloseRange(sonar image.Image, offset int) image.Image {
	if sonar == nil {
		return nil
	}
	b := sonar.Bounds()
	if b.Empty() {
		return sonar
	}
	if offset > b.Dy()-1 {
		offset = b.Dy() - 1
	}
	if offset < 0 {
		offset = 0
	}
	crop := image.Rect(b.Min.X, b.Min.Y+offset, b.Max.X, b.Max.Y)
	if s, ok := sonar.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		return s.SubImage(crop)
	}
	dst := image.NewGray(image.Rect(0, 0, crop.Dx(), crop.Dy()))
	draw.Draw(dst, dst.Bounds(), sonar, crop.Min, draw.Src)
	return dst
}

// OverlayLines returns the centre overlay text for a tick.
func OverlayLines(tick float64, sequenceNo int) []string {
	return []string{
		fmt.Sprintf("Sequence %d", sequenceNo),
		fmt.Sprintf("Unix %.3f", tick),
		FormatTick(tick),
	}
}

// FormatTick renders a Unix time in UTC with millisecond precision.
func FormatTick(tick float64) string {
	sec, frac := math.Modf(tick)
	ms := math.Round(frac * 1000)
	t := time.Unix(int64(sec), int64(ms)*int64(time.Millisecond)).UTC()
	return t.Format("2006-01-02T15:04:05.000")
}

var (
	textColor = color.Gray{Y: 255}
	boxColor  = color.Gray{Y: 0}
)

// drawCentered draws s horizontally centred on cx with its baseline at y.
func (c *Compositor) drawCentered(dst draw.Image, s string, cx, y int) {
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(textColor), Face: c.face}
	width := d.MeasureString(s).Ceil()
	d.Dot = fixed.P(cx-width/2, y)
	d.DrawString(s)
}

// drawOverlay draws lines centred on the frame over a black box.
func (c *Compositor) drawOverlay(dst *image.Gray, lines []string) {
	m := c.face.Metrics()
	lineHeight := m.Height.Ceil()
	d := &font.Drawer{Face: c.face}
	widest := 0
	for _, l := range lines {
		if w := d.MeasureString(l).Ceil(); w > widest {
			widest = w
		}
	}

	const pad = 4
	b := dst.Bounds()
	cx, cy := b.Min.X+b.Dx()/2, b.Min.Y+b.Dy()/2
	total := lineHeight * len(lines)
	box := image.Rect(cx-widest/2-pad, cy-total/2-pad, cx+widest/2+pad, cy+total/2+pad)
	draw.Draw(dst, box.Intersect(b), image.NewUniform(boxColor), image.Point{}, draw.Src)

	top := cy - total/2
	for i, l := range lines {
		baseline := top + i*lineHeight + m.Ascent.Ceil()
		c.drawCentered(dst, strings.TrimSpace(l), cx, baseline)
	}
}
