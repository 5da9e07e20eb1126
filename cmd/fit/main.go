// Command fit models a galaxy observation from the command line: it
// loads an image / noise-map / PSF triple, runs a non-linear search (or
// a single evaluation when explicit parameters are given) and prints
// the goodness of fit to stdout.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/arcfield-data/galaxy.report/internal/config"
	"github.com/arcfield-data/galaxy.report/internal/dataset"
	"github.com/arcfield-data/galaxy.report/internal/fit"
	"github.com/arcfield-data/galaxy.report/internal/fsutil"
	"github.com/arcfield-data/galaxy.report/internal/grids"
	"github.com/arcfield-data/galaxy.report/internal/report"
	"github.com/arcfield-data/galaxy.report/internal/search"
	"github.com/arcfield-data/galaxy.report/internal/units"
)

func main() {
	imagePath := flag.String("image", "", "Path to image CSV")
	noisePath := flag.String("noise", "", "Path to noise-map CSV")
	psfPath := flag.String("psf", "", "Path to PSF CSV")
	pixelScale := flag.Float64("pixel-scale", 0.1, "Arcseconds per pixel")
	maskRadius := flag.Float64("mask-radius", 3.0, "Circular mask radius in arcseconds")
	modelName := flag.String("model", "sersic", "Model to fit: sersic or gaussian")
	params := flag.String("params", "", "Comma-separated parameter values for a single evaluation instead of a search")
	configPath := flag.String("config", "", "Path to settings JSON (optional)")
	plotDir := flag.String("plots", "", "Write fit plots to this directory (optional)")
	lengthUnit := flag.String("length-unit", units.Arcsec, "Unit for printed angular parameters: arcsec, radian or kpc")
	kpcPerArcsec := flag.Float64("kpc-per-arcsec", 1.0, "Physical scale used for the kpc conversion")
	flag.Parse()

	if !units.IsValidAngularUnit(*lengthUnit) {
		fmt.Fprintf(os.Stderr, "unknown -length-unit %q (want one of %s)\n", *lengthUnit, strings.Join(units.ValidAngularUnits, ", "))
		os.Exit(1)
	}

	if *imagePath == "" || *noisePath == "" || *psfPath == "" {
		fmt.Fprintln(os.Stderr, "-image, -noise and -psf are required")
		os.Exit(1)
	}

	settings := config.EmptySettings()
	if *configPath != "" {
		var err error
		settings, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
	}

	obs, err := dataset.LoadImaging(fsutil.OSFileSystem{}, *imagePath, *noisePath, *psfPath, *pixelScale)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load dataset: %v\n", err)
		os.Exit(1)
	}

	mask, err := grids.NewCircular(obs.Image.Rows, obs.Image.Cols, *pixelScale, *maskRadius, [2]float64{0, 0})
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid mask: %v\n", err)
		os.Exit(1)
	}
	grid, err := grids.NewFromMask(mask)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build grid: %v\n", err)
		os.Exit(1)
	}
	evaluator, err := fit.NewEvaluator(obs, grid)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to prepare evaluator: %v\n", err)
		os.Exit(1)
	}

	var model *search.Model
	switch *modelName {
	case "sersic":
		model = search.SersicModel(0.5, *maskRadius, 10*obs.Image.Max())
	case "gaussian":
		model = search.GaussianModel(0.5, *maskRadius, 10*obs.Image.Max())
	default:
		fmt.Fprintf(os.Stderr, "unknown model %q (want sersic or gaussian)\n", *modelName)
		os.Exit(1)
	}

	var best []float64
	var bestFit *fit.FitImaging

	if *params != "" {
		best, err = parseParams(*params, len(model.Parameters))
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -params: %v\n", err)
			os.Exit(1)
		}
		plane, err := model.Build(best)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to build plane: %v\n", err)
			os.Exit(1)
		}
		bestFit, err = evaluator.FitPlane(plane)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fit failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		searcher := &search.Searcher{
			Starts:        settings.GetSearchStarts(),
			MaxIterations: settings.GetSearchMaxIterations(),
			Workers:       settings.GetSearchWorkers(),
			Seed:          settings.GetSearchSeed(),
		}
		result, err := searcher.Fit(context.Background(), model, evaluator.LogLikelihood)
		if err != nil {
			fmt.Fprintf(os.Stderr, "search failed: %v\n", err)
			os.Exit(1)
		}
		best = result.Best
		plane, err := result.BestPlane(model)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to rebuild best-fit plane: %v\n", err)
			os.Exit(1)
		}
		bestFit, err = evaluator.FitPlane(plane)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fit failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("evaluations: %d\n", result.Evaluations)
	}

	for i, p := range model.Parameters {
		value := best[i]
		if isAngular(p.Name) {
			value = units.ConvertAngle(value, *lengthUnit, *kpcPerArcsec)
		}
		fmt.Printf("%-18s %12.6f\n", p.Name, value)
	}
	fmt.Printf("pixels:              %d\n", grid.Len())
	fmt.Printf("chi_squared:         %.6f\n", bestFit.ChiSquared)
	fmt.Printf("reduced_chi_squared: %.6f\n", bestFit.ReducedChiSquared())
	fmt.Printf("noise_normalization: %.6f\n", bestFit.NoiseNormalization)
	fmt.Printf("log_likelihood:      %.6f\n", bestFit.LogLikelihood)

	if *plotDir != "" {
		plotter, err := report.NewFitPlotter(*plotDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create plot dir: %v\n", err)
			os.Exit(1)
		}
		n, err := plotter.GeneratePlots(bestFit, *modelName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to generate plots: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote %d plots to %s\n", n, *plotDir)
	}
}

// isAngular reports whether a model parameter carries arcsec units.
func isAngular(name string) bool {
	switch name {
	case "centre_y", "centre_x", "effective_radius", "sigma", "break_radius":
		return true
	}
	return false
}

func parseParams(s string, want int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != want {
		return nil, fmt.Errorf("expected %d values, got %d", want, len(parts))
	}
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
