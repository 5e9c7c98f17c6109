// Package report renders the per-sequence trends recorded in a scan state:
// PNG line plots with gonum/plot and one interactive HTML page with
// go-echarts.
package report

import (
	"fmt"
	"image/color"
	"sort"

	"github.com/banshee-data/subsea.dataset/internal/config"
	"github.com/banshee-data/subsea.dataset/internal/scan"
)

// Metric is one plotted per-sequence quantity.
type Metric struct {
	Name  string
	Label string
	Value func(scan.StreamPoint) float64
}

// Metrics are the quantities every report plots, in order.
var Metrics = []Metric{
	{"mean", "Mean intensity", func(p scan.StreamPoint) float64 { return p.Mean }},
	{"variance", "Intensity variance", func(p scan.StreamPoint) float64 { return p.Variance }},
	{"entropy", "Entropy (bits)", func(p scan.StreamPoint) float64 { return p.Entropy }},
	{"duration", "Duration (s)", func(p scan.StreamPoint) float64 { return p.Duration }},
	{"file_size", "File size (MB)", func(p scan.StreamPoint) float64 { return float64(p.FileSize) / 1e6 }},
}

var streamOrder = []string{config.StreamSonar, config.StreamCamera1, config.StreamCamera2}

var streamColors = map[string]color.RGBA{
	config.StreamSonar:   {R: 217, G: 95, B: 2, A: 255},
	config.StreamCamera1: {R: 27, G: 158, B: 119, A: 255},
	config.StreamCamera2: {R: 117, G: 112, B: 179, A: 255},
}

// streams returns the stream names in st, known streams first.
func streams(st *scan.State) []string {
	var out []string
	seen := make(map[string]bool)
	for _, name := range streamOrder {
		if len(st.Series[name]) > 0 {
			out = append(out, name)
			seen[name] = true
		}
	}
	var extra []string
	for name, pts := range st.Series {
		if !seen[name] && len(pts) > 0 {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

func streamColor(name string) color.RGBA {
	if c, ok := streamColors[name]; ok {
		return c
	}
	return color.RGBA{R: 102, G: 102, B: 102, A: 255}
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// sequenceAxis returns the sorted union of sequence numbers in st.
func sequenceAxis(st *scan.State) []int {
	seen := make(map[int]bool)
	var out []int
	for _, pts := range st.Series {
		for _, p := range pts {
			if !seen[p.SequenceNo] {
				seen[p.SequenceNo] = true
				out = append(out, p.SequenceNo)
			}
		}
	}
	sort.Ints(out)
	return out
}
