// Package quality measures per-frame image statistics and classifies frames
// as almost black, extremely bright or very noisy.
package quality

import (
	"image"
	"image/draw"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Metrics are the statistics of one grayscale frame. Variance is the
// population variance and Entropy is in bits.
type Metrics struct {
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	Entropy  float64 `json:"entropy"`
}

// levels are the 256 gray intensities, the sample values for the weighted
// histogram statistics.
var levels = func() []float64 {
	out := make([]float64, 256)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}()

// Histogram counts pixel intensities.
func Histogram(img *image.Gray) []float64 {
	hist := make([]float64, 256)
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		for _, v := range img.Pix[off : off+b.Dx()] {
			hist[v]++
		}
	}
	return hist
}

// ToGray returns img as *image.Gray, converting other color models.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	g := image.NewGray(b)
	draw.Draw(g, b, img, b.Min, draw.Src)
	return g
}

// Analyze computes the metrics of img. An empty image has zero metrics.
func Analyze(img image.Image) Metrics {
	hist := Histogram(ToGray(img))
	total := 0.0
	for _, c := range hist {
		total += c
	}
	if total == 0 {
		return Metrics{}
	}

	mean, variance := stat.PopMeanVariance(levels, hist)

	p := make([]float64, len(hist))
	for i, c := range hist {
		p[i] = c / total
	}
	entropy := stat.Entropy(p) / math.Ln2
	// A single-valued histogram yields -0.
	if entropy == 0 {
		entropy = 0
	}
	return Metrics{Mean: mean, Variance: variance, Entropy: entropy}
}
