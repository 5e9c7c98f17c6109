package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/subsea.dataset/internal/scan"
	"github.com/banshee-data/subsea.dataset/internal/version"
)

// RenderHTML writes one page with a line chart per metric. Sequences missing
// from a stream (skipped after a file problem) leave a gap in its line.
func RenderHTML(w io.Writer, st *scan.State) error {
	names := streams(st)
	axis := sequenceAxis(st)
	xs := make([]string, len(axis))
	index := make(map[int]int, len(axis))
	for i, seq := range axis {
		xs[i] = strconv.Itoa(seq)
		index[seq] = i
	}

	subtitle := fmt.Sprintf("run %s, %d sequences, build %s", st.RunID, len(axis), version.String())
	if !st.UpdatedAt.IsZero() {
		subtitle += ", updated " + st.UpdatedAt.UTC().Format(time.RFC3339)
	}

	page := components.NewPage()
	page.PageTitle = "Dataset integrity trends"
	for _, m := range Metrics {
		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{PageTitle: "Dataset integrity trends", Width: "1200px", Height: "420px"}),
			charts.WithTitleOpts(opts.Title{Title: m.Label, Subtitle: subtitle}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
			charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
			charts.WithXAxisOpts(opts.XAxis{Name: "Sequence", NameLocation: "middle", NameGap: 25}),
			charts.WithYAxisOpts(opts.YAxis{Name: m.Label}),
			charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
		)
		line.SetXAxis(xs)
		for _, name := range names {
			data := make([]opts.LineData, len(axis))
			for i := range data {
				data[i] = opts.LineData{Value: "-"}
			}
			for _, sp := range st.Series[name] {
				data[index[sp.SequenceNo]] = opts.LineData{Value: m.Value(sp)}
			}
			line.AddSeries(name, data,
				charts.WithLineStyleOpts(opts.LineStyle{Color: hexColor(streamColor(name))}),
				charts.WithItemStyleOpts(opts.ItemStyle{Color: hexColor(streamColor(name))}),
			)
		}
		page.AddCharts(line)
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render trend report: %w", err)
	}
	return nil
}
