package report

import (
	"bytes"
	"fmt"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/subsea.dataset/internal/fsutil"
	"github.com/banshee-data/subsea.dataset/internal/scan"
)

// WritePlots saves one PNG per metric under dir, each with a line per
// stream against sequence number. It returns the written paths.
func WritePlots(fsys fsutil.FileSystem, dir string, st *scan.State) ([]string, error) {
	names := streams(st)
	if len(names) == 0 {
		return nil, nil
	}
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	var written []string
	for _, m := range Metrics {
		p, err := metricPlot(st, names, m)
		if err != nil {
			return written, err
		}
		wt, err := p.WriterTo(14*vg.Inch, 6*vg.Inch, "png")
		if err != nil {
			return written, fmt.Errorf("render %s plot: %w", m.Name, err)
		}
		var buf bytes.Buffer
		if _, err := wt.WriteTo(&buf); err != nil {
			return written, fmt.Errorf("render %s plot: %w", m.Name, err)
		}
		path := filepath.Join(dir, fmt.Sprintf("trend_%s.png", m.Name))
		if err := fsys.WriteFile(path, buf.Bytes(), 0644); err != nil {
			return written, fmt.Errorf("failed to save plot %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func metricPlot(st *scan.State, names []string, m Metric) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s per sequence", m.Label)
	p.X.Label.Text = "Sequence"
	p.Y.Label.Text = m.Label

	for _, name := range names {
		series := st.Series[name]
		pts := make(plotter.XYs, 0, len(series))
		for _, sp := range series {
			pts = append(pts, plotter.XY{X: float64(sp.SequenceNo), Y: m.Value(sp)})
		}
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", name, m.Name, err)
		}
		c := streamColor(name)
		line.Color = c
		line.Width = vg.Points(1)
		points.Color = c
		points.Radius = vg.Points(2)
		p.Add(line, points)
		p.Legend.Add(name, line, points)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	p.Add(plotter.NewGrid())
	return p, nil
}
