// Package simulate runs the pipeline in the forward direction: a plane
// rendered on a grid, blurred by the instrument, scaled by exposure
// time and degraded with Poisson and/or Gaussian noise to produce a
// synthetic observation with a matching noise map.
package simulate

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/arcfield-data/galaxy.report/internal/array"
	"github.com/arcfield-data/galaxy.report/internal/dataset"
	"github.com/arcfield-data/galaxy.report/internal/galaxy"
	"github.com/arcfield-data/galaxy.report/internal/grids"
	"github.com/arcfield-data/galaxy.report/internal/operators"
)

// Imaging simulates imaging observations. Intensities are in counts per
// second; Poisson noise is drawn in counts at the configured exposure
// time. A fixed Seed makes the draw reproducible.
type Imaging struct {
	ExposureTime       float64 // seconds
	BackgroundSkyLevel float64 // counts/sec per pixel, added before noise
	PSF                *array.Kernel2D
	AddPoissonNoise    bool
	GaussianNoiseSigma float64 // counts/sec, 0 disables
	Seed               uint64
}

// Observe renders the plane and produces a synthetic Imaging bundle.
// The background sky is added before the noise draw and subtracted
// again afterwards, so the returned image holds galaxy signal only
// while its noise map reflects the full photon count.
func (s *Imaging) Observe(plane *galaxy.Plane, grid *grids.Grid2D) (*dataset.Imaging, error) {
	if s.ExposureTime <= 0 {
		return nil, fmt.Errorf("exposure time must be positive, got %f", s.ExposureTime)
	}
	if s.BackgroundSkyLevel < 0 {
		return nil, fmt.Errorf("background sky level must be non-negative, got %f", s.BackgroundSkyLevel)
	}
	if s.GaussianNoiseSigma == 0 && s.BackgroundSkyLevel == 0 && !s.AddPoissonNoise {
		return nil, fmt.Errorf("simulation needs poisson noise, gaussian noise or background sky to form a positive noise map")
	}

	convolver, err := operators.NewConvolver(s.PSF, grid)
	if err != nil {
		return nil, err
	}
	model := plane.Image(grid)
	blurred, err := convolver.BlurredImage(model)
	if err != nil {
		return nil, err
	}
	native, err := grid.ToNative(blurred)
	if err != nil {
		return nil, err
	}

	src := rand.NewPCG(s.Seed, s.Seed)
	image := array.New(grid.Rows, grid.Cols, grid.PixelScale)
	noise := array.New(grid.Rows, grid.Cols, grid.PixelScale)

	gaussian := distuv.Normal{Mu: 0, Sigma: s.GaussianNoiseSigma, Src: src}
	for i, signal := range native {
		if signal < 0 {
			signal = 0
		}
		withSky := signal + s.BackgroundSkyLevel
		counts := withSky * s.ExposureTime

		observed := withSky
		var poissonVar float64
		if s.AddPoissonNoise && counts > 0 {
			drawn := distuv.Poisson{Lambda: counts, Src: src}.Rand()
			observed = drawn / s.ExposureTime
			poissonVar = withSky / s.ExposureTime
		}
		if s.GaussianNoiseSigma > 0 {
			observed += gaussian.Rand()
		}

		image.Values[i] = observed - s.BackgroundSkyLevel
		sigma := math.Sqrt(poissonVar + s.GaussianNoiseSigma*s.GaussianNoiseSigma)
		if sigma <= 0 {
			sigma = math.Sqrt(s.BackgroundSkyLevel / s.ExposureTime)
		}
		noise.Values[i] = sigma
	}

	return dataset.NewImaging(image, noise, s.PSF)
}

// Interferometer simulates visibility observations: the plane image is
// transformed to the uv samples and Gaussian noise of NoiseSigma is
// added to the real and imaginary part of each visibility.
type Interferometer struct {
	UVWavelengths [][2]float64
	NoiseSigma    float64
	Seed          uint64
}

// Observe renders the plane and produces a synthetic Interferometer dataset.
func (s *Interferometer) Observe(plane *galaxy.Plane, grid *grids.Grid2D) (*dataset.Interferometer, error) {
	if s.NoiseSigma <= 0 {
		return nil, fmt.Errorf("visibility noise sigma must be positive, got %f", s.NoiseSigma)
	}
	transformer, err := operators.NewTransformer(s.UVWavelengths, grid)
	if err != nil {
		return nil, err
	}
	model := plane.Image(grid)
	vis, err := transformer.Visibilities(model)
	if err != nil {
		return nil, err
	}

	src := rand.NewPCG(s.Seed, s.Seed)
	gaussian := distuv.Normal{Mu: 0, Sigma: s.NoiseSigma, Src: src}
	noise := make([]float64, len(vis))
	for i := range vis {
		vis[i] += complex(gaussian.Rand(), gaussian.Rand())
		noise[i] = s.NoiseSigma
	}
	return dataset.NewInterferometer(vis, noise, s.UVWavelengths)
}
