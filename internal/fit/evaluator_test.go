package fit

import (
	"testing"

	"github.com/arcfield-data/galaxy.report/internal/grids"
	"github.com/arcfield-data/galaxy.report/internal/testutil"
)

func TestEvaluatorMatchesDirectFit(t *testing.T) {
	grid, err := grids.NewFromShape(9, 9, 0.1)
	testutil.AssertNoError(t, err)
	truth := testPlane(t, 1.0)
	d := perfectDataset(t, truth, grid, 0.5)

	e, err := NewEvaluator(d, grid)
	testutil.AssertNoError(t, err)
	if e.Grid() != grid {
		t.Fatal("evaluator grid mismatch")
	}

	trial := testPlane(t, 1.3)
	direct, err := NewFitImaging(d, grid, trial)
	testutil.AssertNoError(t, err)
	cached, err := e.FitPlane(trial)
	testutil.AssertNoError(t, err)

	testutil.AssertClose(t, cached.ChiSquared, direct.ChiSquared, 1e-10)
	testutil.AssertClose(t, cached.NoiseNormalization, direct.NoiseNormalization, 1e-10)
	testutil.AssertClose(t, cached.LogLikelihood, direct.LogLikelihood, 1e-10)
	testutil.AssertSliceClose(t, cached.ResidualMap, direct.ResidualMap, 1e-10)
}

func TestEvaluatorLogLikelihoodShortcut(t *testing.T) {
	grid, err := grids.NewFromShape(7, 7, 0.1)
	testutil.AssertNoError(t, err)
	truth := testPlane(t, 1.0)
	d := perfectDataset(t, truth, grid, 0.5)

	e, err := NewEvaluator(d, grid)
	testutil.AssertNoError(t, err)

	logL, err := e.LogLikelihood(truth)
	testutil.AssertNoError(t, err)
	f, err := e.FitPlane(truth)
	testutil.AssertNoError(t, err)
	testutil.AssertClose(t, logL, f.LogLikelihood, 1e-12)
}

func TestEvaluatorRejectsGeometryMismatch(t *testing.T) {
	grid, err := grids.NewFromShape(9, 9, 0.1)
	testutil.AssertNoError(t, err)
	otherGrid, err := grids.NewFromShape(9, 9, 0.2)
	testutil.AssertNoError(t, err)
	d := perfectDataset(t, testPlane(t, 1.0), grid, 0.5)

	_, err = NewEvaluator(d, otherGrid)
	testutil.AssertError(t, err)
}
