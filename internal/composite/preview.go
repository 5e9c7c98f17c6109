package composite

import (
	"image"
	"math"

	"github.com/banshee-data/subsea.dataset/internal/fsutil"
	"github.com/banshee-data/subsea.dataset/internal/video"
)

// PreviewPath returns the preview file written next to a video output.
func PreviewPath(output string) string {
	return output + ".preview.png"
}

// Preview periodically snapshots composites to a PNG so a run can be watched
// without a display.
type Preview struct {
	fsys  fsutil.FileSystem
	path  string
	every int
}

// NewPreview writes one snapshot per second of timeline given the tick step.
func NewPreview(fsys fsutil.FileSystem, path string, step float64) *Preview {
	every := int(math.Round(1 / step))
	if every < 1 {
		every = 1
	}
	return &Preview{fsys: fsys, path: path, every: every}
}

// Observe writes img when tick index k falls on a snapshot boundary.
func (p *Preview) Observe(k int, img image.Image) error {
	if k%p.every != 0 {
		return nil
	}
	return video.WritePNG(p.fsys, p.path, img)
}
