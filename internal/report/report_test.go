package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/arcfield-data/galaxy.report/internal/array"
	"github.com/arcfield-data/galaxy.report/internal/dataset"
	"github.com/arcfield-data/galaxy.report/internal/fit"
	"github.com/arcfield-data/galaxy.report/internal/galaxy"
	"github.com/arcfield-data/galaxy.report/internal/grids"
	"github.com/arcfield-data/galaxy.report/internal/profiles"
	"github.com/arcfield-data/galaxy.report/internal/store"
)

func testFit(t *testing.T) *fit.FitImaging {
	t.Helper()
	grid, err := grids.NewFromShape(7, 7, 0.5)
	if err != nil {
		t.Fatalf("NewFromShape: %v", err)
	}
	p, err := profiles.NewGaussian(profiles.Ellipse{}, 2.0, 0.8)
	if err != nil {
		t.Fatalf("NewGaussian: %v", err)
	}
	g, err := galaxy.New(0.5, map[string]profiles.LightProfile{"gaussian": p})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	plane, err := galaxy.NewPlane([]*galaxy.Galaxy{g})
	if err != nil {
		t.Fatalf("NewPlane: %v", err)
	}

	native, err := grid.ToNative(plane.Image(grid))
	if err != nil {
		t.Fatalf("ToNative: %v", err)
	}
	image, err := array.FromValues(7, 7, 0.5, native)
	if err != nil {
		t.Fatalf("FromValues: %v", err)
	}
	psf, err := array.DeltaKernel(3, 0.5)
	if err != nil {
		t.Fatalf("DeltaKernel: %v", err)
	}
	d, err := dataset.NewImaging(image, array.Full(7, 7, 0.5, 0.5), psf)
	if err != nil {
		t.Fatalf("NewImaging: %v", err)
	}
	f, err := fit.NewFitImaging(d, grid, plane)
	if err != nil {
		t.Fatalf("NewFitImaging: %v", err)
	}
	return f
}

func TestGeneratePlotsWritesAllMaps(t *testing.T) {
	dir := t.TempDir()
	fp, err := NewFitPlotter(dir)
	if err != nil {
		t.Fatalf("NewFitPlotter: %v", err)
	}
	if fp.OutputDir() != dir {
		t.Fatalf("OutputDir = %q, want %q", fp.OutputDir(), dir)
	}

	n, err := fp.GeneratePlots(testFit(t), "fit")
	if err != nil {
		t.Fatalf("GeneratePlots: %v", err)
	}
	if n != 5 {
		t.Fatalf("generated %d plots, want 5", n)
	}

	for _, name := range []string{"data", "model", "residual", "normalized_residual", "chi_squared"} {
		file := filepath.Join(dir, "fit_"+name+".png")
		info, err := os.Stat(file)
		if err != nil {
			t.Errorf("missing plot %s: %v", file, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("plot %s is empty", file)
		}
	}
}

func TestNewFitPlotterCreatesNestedDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if _, err := NewFitPlotter(dir); err != nil {
		t.Fatalf("NewFitPlotter: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("output dir not created: %v", err)
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	if got := FormatTimestamp(ts); got != "20260314_092653" {
		t.Fatalf("FormatTimestamp = %q", got)
	}
}

func TestMakePlotOutputDir(t *testing.T) {
	dir := MakePlotOutputDir("plots", "run-1")
	if !strings.HasPrefix(dir, filepath.Join("plots", "run-1")+string(filepath.Separator)) {
		t.Fatalf("MakePlotOutputDir = %q", dir)
	}
}

func TestRenderSearchProgress(t *testing.T) {
	samples := []store.SampleRecord{
		{Step: 0, LogLikelihood: -50},
		{Step: 1, LogLikelihood: -1.2e12}, // out-of-bounds penalty, clipped
		{Step: 2, LogLikelihood: -20},
		{Step: 3, LogLikelihood: -25},
	}
	var buf bytes.Buffer
	if err := RenderSearchProgress(&buf, "run-1", samples); err != nil {
		t.Fatalf("RenderSearchProgress: %v", err)
	}
	html := buf.String()
	if !strings.Contains(html, "run-1") {
		t.Error("output does not mention the run id")
	}
	if !strings.Contains(html, "running best") {
		t.Error("output does not include the running-best series")
	}
}

func TestRenderSearchProgressErrors(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderSearchProgress(&buf, "run-1", nil); err == nil {
		t.Error("empty samples accepted")
	}
	penaltyOnly := []store.SampleRecord{{Step: 0, LogLikelihood: -1.5e12}}
	if err := RenderSearchProgress(&buf, "run-1", penaltyOnly); err == nil {
		t.Error("penalty-only samples accepted")
	}
}
