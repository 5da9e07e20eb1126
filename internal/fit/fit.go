// Package fit compares rendered model images against observed data
// under a mask, producing residual, normalized-residual and chi-squared
// maps and a scalar Gaussian log-likelihood.
//
// The likelihood is
//
//	logL = -0.5 * (chi2 + sum(log(2*pi*sigma^2)))
//
// over unmasked pixels; the noise normalization term is independent of
// the model, so smaller residuals always mean a larger log-likelihood.
package fit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/arcfield-data/galaxy.report/internal/dataset"
	"github.com/arcfield-data/galaxy.report/internal/galaxy"
	"github.com/arcfield-data/galaxy.report/internal/grids"
	"github.com/arcfield-data/galaxy.report/internal/operators"
)

// FitImaging is the derived, read-only result of fitting a plane to an
// imaging dataset. All maps are slim-ordered over the fit grid; a fit
// is recomputed fresh per model evaluation, never mutated.
type FitImaging struct {
	Grid *grids.Grid2D

	Data      []float64
	Noise     []float64
	ModelData []float64

	ResidualMap           []float64
	NormalizedResidualMap []float64
	ChiSquaredMap         []float64

	ChiSquared         float64
	NoiseNormalization float64
	LogLikelihood      float64
}

// NewFitImaging renders the plane on the grid, blurs it with the
// dataset's PSF and evaluates the fit over the grid's unmasked pixels.
func NewFitImaging(d *dataset.Imaging, grid *grids.Grid2D, plane *galaxy.Plane) (*FitImaging, error) {
	if d.Image.Rows != grid.Rows || d.Image.Cols != grid.Cols || d.Image.PixelScale != grid.PixelScale {
		return nil, fmt.Errorf("dataset geometry %dx%d@%f does not match grid %dx%d@%f",
			d.Image.Rows, d.Image.Cols, d.Image.PixelScale, grid.Rows, grid.Cols, grid.PixelScale)
	}
	convolver, err := operators.NewConvolver(d.PSF, grid)
	if err != nil {
		return nil, err
	}

	model := plane.Image(grid)
	blurred, err := convolver.BlurredImage(model)
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

	f := &FitImaging{Grid: grid, Data: data, Noise: noise, ModelData: blurred}
	f.ResidualMap, f.NormalizedResidualMap, f.ChiSquaredMap = residualMaps(data, blurred, noise)
	f.ChiSquared = floats.Sum(f.ChiSquaredMap)
	f.NoiseNormalization = noiseNormalization(noise)
	f.LogLikelihood = -0.5 * (f.ChiSquared + f.NoiseNormalization)
	return f, nil
}

// ReducedChiSquared returns chi-squared per unmasked pixel.
func (f *FitImaging) ReducedChiSquared() float64 {
	if len(f.Data) == 0 {
		return 0
	}
	return f.ChiSquared / float64(len(f.Data))
}

// FitInterferometer fits a plane to visibilities. Chi-squared runs over
// the real and imaginary parts separately, each normalized by the
// per-visibility noise.
type FitInterferometer struct {
	ModelVisibilities []complex128

	ResidualMap   []complex128
	ChiSquaredMap []float64

	ChiSquared         float64
	NoiseNormalization float64
	LogLikelihood      float64
}

// NewFitInterferometer renders the plane on the grid and transforms it
// to the dataset's uv points.
func NewFitInterferometer(d *dataset.Interferometer, grid *grids.Grid2D, plane *galaxy.Plane) (*FitInterferometer, error) {
	transformer, err := operators.NewTransformer(d.UVWavelengths, grid)
	if err != nil {
		return nil, err
	}
	model := plane.Image(grid)
	vis, err := transformer.Visibilities(model)
	if err != nil {
		return nil, err
	}

	f := &FitInterferometer{ModelVisibilities: vis}
	f.ResidualMap = make([]complex128, len(vis))
	f.ChiSquaredMap = make([]float64, len(vis))
	for i := range vis {
		res := d.Visibilities[i] - vis[i]
		f.ResidualMap[i] = res
		sigma := d.NoiseMap[i]
		nr := real(res) / sigma
		ni := imag(res) / sigma
		f.ChiSquaredMap[i] = nr*nr + ni*ni
	}
	f.ChiSquared = floats.Sum(f.ChiSquaredMap)
	// Real and imaginary parts each contribute a noise term.
	f.NoiseNormalization = 2 * noiseNormalization(d.NoiseMap)
	f.LogLikelihood = -0.5 * (f.ChiSquared + f.NoiseNormalization)
	return f, nil
}

func residualMaps(data, model, noise []float64) (residual, normalized, chiSquared []float64) {
	residual = make([]float64, len(data))
	normalized = make([]float64, len(data))
	chiSquared = make([]float64, len(data))
	for i := range data {
		residual[i] = data[i] - model[i]
		normalized[i] = residual[i] / noise[i]
		chiSquared[i] = normalized[i] * normalized[i]
	}
	return residual, normalized, chiSquared
}

func noiseNormalization(noise []float64) float64 {
	var sum float64
	for _, sigma := range noise {
		sum += math.Log(2 * math.Pi * sigma * sigma)
	}
	return sum
}
