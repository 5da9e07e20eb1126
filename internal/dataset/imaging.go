// Package dataset holds observation bundles: the image / noise-map /
// PSF triple for imaging data and the visibility set for interferometer
// data, plus the file loaders that construct them.
package dataset

import (
	"fmt"

	"github.com/arcfield-data/galaxy.report/internal/array"
	"github.com/arcfield-data/galaxy.report/internal/fsutil"
)

// Imaging is an imaging observation: the observed image, its Gaussian
// noise map and the instrument point spread function, all sharing a
// pixel scale. Bundles are validated at construction and treated as
// read-only afterwards.
type Imaging struct {
	Image    *array.Array2D
	NoiseMap *array.Array2D
	PSF      *array.Kernel2D
}

// NewImaging validates shapes and noise-map positivity.
func NewImaging(image, noiseMap *array.Array2D, psf *array.Kernel2D) (*Imaging, error) {
	if !image.SameShape(noiseMap) {
		return nil, fmt.Errorf("image shape %dx%d does not match noise map %dx%d",
			image.Rows, image.Cols, noiseMap.Rows, noiseMap.Cols)
	}
	if psf.PixelScale != image.PixelScale {
		return nil, fmt.Errorf("psf pixel scale %f does not match image %f", psf.PixelScale, image.PixelScale)
	}
	for i, v := range noiseMap.Values {
		if v <= 0 {
			return nil, fmt.Errorf("noise map value at index %d must be positive, got %f", i, v)
		}
	}
	return &Imaging{Image: image, NoiseMap: noiseMap, PSF: psf}, nil
}

// PixelScale returns the arcseconds-per-pixel scale of the bundle.
func (d *Imaging) PixelScale() float64 { return d.Image.PixelScale }

// SignalToNoise returns the per-pixel signal-to-noise map.
func (d *Imaging) SignalToNoise() *array.Array2D {
	out := array.New(d.Image.Rows, d.Image.Cols, d.Image.PixelScale)
	for i, v := range d.Image.Values {
		out.Values[i] = v / d.NoiseMap.Values[i]
	}
	return out
}

// LoadImaging reads the three arrays by path (headerless CSV) with a
// scalar pixel scale, the boundary behavior of the observation loader.
func LoadImaging(fs fsutil.FileSystem, imagePath, noisePath, psfPath string, pixelScale float64) (*Imaging, error) {
	if pixelScale <= 0 {
		return nil, fmt.Errorf("pixel scale must be positive, got %f", pixelScale)
	}
	image, err := array.ReadCSV(fs, imagePath, pixelScale)
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}
	noise, err := array.ReadCSV(fs, noisePath, pixelScale)
	if err != nil {
		return nil, fmt.Errorf("failed to load noise map: %w", err)
	}
	psfArray, err := array.ReadCSV(fs, psfPath, pixelScale)
	if err != nil {
		return nil, fmt.Errorf("failed to load psf: %w", err)
	}
	psf, err := array.NewKernel(psfArray.Rows, psfArray.Cols, pixelScale, psfArray.Values)
	if err != nil {
		return nil, fmt.Errorf("invalid psf: %w", err)
	}
	return NewImaging(image, noise, psf)
}

// WriteImaging writes the bundle's three arrays as CSV next to each
// other, the inverse of LoadImaging.
func WriteImaging(fs fsutil.FileSystem, d *Imaging, imagePath, noisePath, psfPath string) error {
	if err := array.WriteCSV(fs, imagePath, d.Image); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	if err := array.WriteCSV(fs, noisePath, d.NoiseMap); err != nil {
		return fmt.Errorf("failed to write noise map: %w", err)
	}
	if err := array.WriteCSV(fs, psfPath, &d.PSF.Array2D); err != nil {
		return fmt.Errorf("failed to write psf: %w", err)
	}
	return nil
}
