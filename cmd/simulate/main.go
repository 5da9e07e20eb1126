// Command simulate produces a synthetic observation of a single Sersic
// galaxy and writes the image / noise-map / PSF triple as CSV files.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/arcfield-data/galaxy.report/internal/array"
	"github.com/arcfield-data/galaxy.report/internal/dataset"
	"github.com/arcfield-data/galaxy.report/internal/fsutil"
	"github.com/arcfield-data/galaxy.report/internal/galaxy"
	"github.com/arcfield-data/galaxy.report/internal/grids"
	"github.com/arcfield-data/galaxy.report/internal/profiles"
	"github.com/arcfield-data/galaxy.report/internal/simulate"
)

func main() {
	rows := flag.Int("rows", 100, "Image rows")
	cols := flag.Int("cols", 100, "Image columns")
	pixelScale := flag.Float64("pixel-scale", 0.1, "Arcseconds per pixel")

	centreY := flag.Float64("centre-y", 0, "Profile centre y (arcsec)")
	centreX := flag.Float64("centre-x", 0, "Profile centre x (arcsec)")
	ell1 := flag.Float64("ell-1", 0, "First elliptical component")
	ell2 := flag.Float64("ell-2", 0, "Second elliptical component")
	intensity := flag.Float64("intensity", 1.0, "Intensity at the effective radius (counts/sec)")
	effectiveRadius := flag.Float64("effective-radius", 0.8, "Effective radius (arcsec)")
	sersicIndex := flag.Float64("sersic-index", 2.0, "Sersic index")

	psfSize := flag.Int("psf-size", 11, "PSF kernel size (odd)")
	psfSigma := flag.Float64("psf-sigma", 1.5, "PSF Gaussian sigma in pixels")

	exposure := flag.Float64("exposure", 300, "Exposure time in seconds")
	sky := flag.Float64("sky", 0.1, "Background sky level (counts/sec per pixel)")
	gaussianSigma := flag.Float64("gaussian-sigma", 0, "Extra Gaussian read noise (counts/sec)")
	seed := flag.Uint64("seed", 1, "Noise seed")

	outDir := flag.String("out", "dataset", "Output directory for image.csv, noise.csv and psf.csv")
	flag.Parse()

	profile, err := profiles.NewSersic(profiles.Ellipse{
		Centre: [2]float64{*centreY, *centreX},
		Ell1:   *ell1,
		Ell2:   *ell2,
	}, *intensity, *effectiveRadius, *sersicIndex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid profile: %v\n", err)
		os.Exit(1)
	}
	g, err := galaxy.New(0.5, map[string]profiles.LightProfile{"sersic": profile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid galaxy: %v\n", err)
		os.Exit(1)
	}
	plane, err := galaxy.NewPlane([]*galaxy.Galaxy{g})
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid plane: %v\n", err)
		os.Exit(1)
	}

	grid, err := grids.NewFromShape(*rows, *cols, *pixelScale)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid grid: %v\n", err)
		os.Exit(1)
	}
	psf, err := array.GaussianKernel(*psfSize, *pixelScale, *psfSigma)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid psf: %v\n", err)
		os.Exit(1)
	}

	sim := &simulate.Imaging{
		ExposureTime:       *exposure,
		BackgroundSkyLevel: *sky,
		PSF:                psf,
		AddPoissonNoise:    true,
		GaussianNoiseSigma: *gaussianSigma,
		Seed:               *seed,
	}
	obs, err := sim.Observe(plane, grid)
	if err != nil {
		fmt.Fprintf(os.Stderr, "simulation failed: %v\n", err)
		os.Exit(1)
	}

	fs := fsutil.OSFileSystem{}
	if err := fs.MkdirAll(*outDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create output dir: %v\n", err)
		os.Exit(1)
	}
	imagePath := filepath.Join(*outDir, "image.csv")
	noisePath := filepath.Join(*outDir, "noise.csv")
	psfPath := filepath.Join(*outDir, "psf.csv")
	if err := dataset.WriteImaging(fs, obs, imagePath, noisePath, psfPath); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write dataset: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("wrote %dx%d dataset at %.3f arcsec/pixel to %s\n", *rows, *cols, *pixelScale, *outDir)
}
