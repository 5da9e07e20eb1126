// Package report renders fit results for humans: PNG heat maps of the
// fit's data/model/residual maps and an HTML chart of search progress.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/arcfield-data/galaxy.report/internal/fit"
	"github.com/arcfield-data/galaxy.report/internal/grids"
)

// FitPlotter writes heat-map PNGs for the maps of a fit.
type FitPlotter struct {
	outputDir string
}

// NewFitPlotter creates the output directory and a plotter writing into it.
func NewFitPlotter(outputDir string) (*FitPlotter, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	return &FitPlotter{outputDir: outputDir}, nil
}

// OutputDir returns the directory plots are written to.
func (fp *FitPlotter) OutputDir() string { return fp.outputDir }

// GeneratePlots writes one PNG per fit map, named <prefix>_<map>.png.
// Returns the number of plots generated.
func (fp *FitPlotter) GeneratePlots(f *fit.FitImaging, prefix string) (int, error) {
	maps := []struct {
		name   string
		values []float64
	}{
		{"data", f.Data},
		{"model", f.ModelData},
		{"residual", f.ResidualMap},
		{"normalized_residual", f.NormalizedResidualMap},
		{"chi_squared", f.ChiSquaredMap},
	}

	count := 0
	for _, m := range maps {
		file := filepath.Join(fp.outputDir, fmt.Sprintf("%s_%s.png", prefix, m.name))
		if err := fp.heatMap(f.Grid, m.values, m.name, file); err != nil {
			return count, fmt.Errorf("%s map: %w", m.name, err)
		}
		count++
	}
	return count, nil
}

func (fp *FitPlotter) heatMap(grid *grids.Grid2D, slim []float64, title, file string) error {
	native, err := grid.ToNative(slim)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x (arcsec)"
	p.Y.Label.Text = "y (arcsec)"

	hm := plotter.NewHeatMap(&nativeGrid{grid: grid, values: native}, palette.Heat(16, 1))
	p.Add(hm)

	if err := p.Save(6*vg.Inch, 6*vg.Inch, file); err != nil {
		return fmt.Errorf("save heat map: %w", err)
	}
	return nil
}

// nativeGrid adapts a native flat array to plotter.GridXYZ.
type nativeGrid struct {
	grid   *grids.Grid2D
	values []float64
}

func (n *nativeGrid) Dims() (c, r int) { return n.grid.Cols, n.grid.Rows }

func (n *nativeGrid) Z(c, r int) float64 {
	// plotter rows run bottom-up; native arrays top-down.
	row := n.grid.Rows - 1 - r
	return n.values[row*n.grid.Cols+c]
}

func (n *nativeGrid) X(c int) float64 {
	_, x := n.grid.Mask().PixelCentre(0, c)
	return x
}

func (n *nativeGrid) Y(r int) float64 {
	y, _ := n.grid.Mask().PixelCentre(n.grid.Rows-1-r, 0)
	return y
}

// FormatTimestamp generates a timestamp string for directory naming.
func FormatTimestamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// MakePlotOutputDir builds a timestamped output directory for a run's
// plots: <baseDir>/<runID>/<timestamp>.
func MakePlotOutputDir(baseDir, runID string) string {
	return filepath.Join(baseDir, runID, FormatTimestamp(time.Now()))
}
