package fit

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/arcfield-data/galaxy.report/internal/dataset"
	"github.com/arcfield-data/galaxy.report/internal/galaxy"
	"github.com/arcfield-data/galaxy.report/internal/grids"
	"github.com/arcfield-data/galaxy.report/internal/operators"
)

// Evaluator amortizes the per-dataset work of repeated fit evaluations:
// the PSF convolver, slim data and noise vectors and the noise
// normalization are computed once, so a non-linear search pays only for
// rendering and convolving each proposed model.
type Evaluator struct {
	grid      *grids.Grid2D
	convolver *operators.Convolver

	data      []float64
	noise     []float64
	noiseNorm float64
}

// NewEvaluator prepares an evaluator for an imaging dataset and grid.
func NewEvaluator(d *dataset.Imaging, grid *grids.Grid2D) (*Evaluator, error) {
	if d.Image.Rows != grid.Rows || d.Image.Cols != grid.Cols || d.Image.PixelScale != grid.PixelScale {
		return nil, fmt.Errorf("dataset geometry %dx%d@%f does not match grid %dx%d@%f",
			d.Image.Rows, d.Image.Cols, d.Image.PixelScale, grid.Rows, grid.Cols, grid.PixelScale)
	}
	convolver, err := operators.NewConvolver(d.PSF, grid)
	if err != nil {
		return nil, err
	}
	data, err := grid.FromNative(d.Image.Values)
	if err != nil {
		return nil, err
	}
	noise, err := grid.FromNative(d.NoiseMap.Values)
	if err != nil {
		return nil, err
	}
	return &Evaluator{
		grid:      grid,
		convolver: convolver,
		data:      data,
		noise:     noise,
		noiseNorm: noiseNormalization(noise),
	}, nil
}

// Grid returns the evaluator's fit grid.
func (e *Evaluator) Grid() *grids.Grid2D { return e.grid }

// FitPlane renders and fits a plane, returning the full fit object.
func (e *Evaluator) FitPlane(plane *galaxy.Plane) (*FitImaging, error) {
	model := plane.Image(e.grid)
	blurred, err := e.convolver.BlurredImage(model)
	if err != nil {
		return nil, err
	}
	f := &FitImaging{Grid: e.grid, Data: e.data, Noise: e.noise, ModelData: blurred}
	f.ResidualMap, f.NormalizedResidualMap, f.ChiSquaredMap = residualMaps(e.data, blurred, e.noise)
	f.ChiSquared = floats.Sum(f.ChiSquaredMap)
	f.NoiseNormalization = e.noiseNorm
	f.LogLikelihood = -0.5 * (f.ChiSquared + f.NoiseNormalization)
	return f, nil
}

// LogLikelihood fits a plane and returns only the scalar likelihood,
// the hot path of a non-linear search.
func (e *Evaluator) LogLikelihood(plane *galaxy.Plane) (float64, error) {
	f, err := e.FitPlane(plane)
	if err != nil {
		return 0, err
	}
	return f.LogLikelihood, nil
}
