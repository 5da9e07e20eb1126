package report

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/arcfield-data/galaxy.report/internal/store"
)

// RenderSearchProgress writes an HTML line chart of a run's objective
// history: log-likelihood per evaluation plus the running best. Sample
// steps with penalty likelihoods (out-of-bounds trial points) are
// clipped to the worst in-bounds value so the chart stays readable.
func RenderSearchProgress(w io.Writer, runID string, samples []store.SampleRecord) error {
	if len(samples) == 0 {
		return fmt.Errorf("no samples for run %s", runID)
	}

	worst := math.Inf(1)
	best := math.Inf(-1)
	for _, s := range samples {
		if s.LogLikelihood > -1e11 {
			if s.LogLikelihood < worst {
				worst = s.LogLikelihood
			}
			if s.LogLikelihood > best {
				best = s.LogLikelihood
			}
		}
	}
	if math.IsInf(worst, 1) {
		return fmt.Errorf("run %s has no in-bounds samples", runID)
	}

	steps := make([]int64, 0, len(samples))
	perStep := make([]opts.LineData, 0, len(samples))
	runningBest := make([]opts.LineData, 0, len(samples))
	soFar := math.Inf(-1)
	for _, s := range samples {
		v := s.LogLikelihood
		if v < worst {
			v = worst
		}
		if s.LogLikelihood > soFar {
			soFar = s.LogLikelihood
		}
		steps = append(steps, s.Step)
		perStep = append(perStep, opts.LineData{Value: v})
		runningBest = append(runningBest, opts.LineData{Value: soFar})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Search Progress", Theme: "dark", Width: "1100px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Search Progress",
			Subtitle: fmt.Sprintf("run=%s evaluations=%d best=%.4f", runID, len(samples), best),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "evaluation", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "log likelihood", NameLocation: "middle", NameGap: 45}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(steps).
		AddSeries("log likelihood", perStep).
		AddSeries("running best", runningBest,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
		)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return fmt.Errorf("failed to render progress chart: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
