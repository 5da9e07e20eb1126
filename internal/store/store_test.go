package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndFinishRun(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.RecordRun("run-1", "sersic", "demo"))

	runs, err := s.Runs(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "run-1", runs[0].RunID)
	require.Equal(t, RunStatusRunning, runs[0].Status)
	require.Nil(t, runs[0].LogLikelihood)

	require.NoError(t, s.FinishRun("run-1", RunStatusFinished, -123.5, 900))

	runs, err = s.Runs(10)
	require.NoError(t, err)
	require.Equal(t, RunStatusFinished, runs[0].Status)
	require.NotNil(t, runs[0].LogLikelihood)
	require.InDelta(t, -123.5, *runs[0].LogLikelihood, 1e-9)
	require.EqualValues(t, 900, runs[0].Evaluations)
}

func TestRecordSamplesRoundTrip(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.RecordRun("run-2", "gaussian", "demo"))

	in := []SampleRecord{
		{Step: 0, Params: "[1,2]", LogLikelihood: -10},
		{Step: 1, Params: "[1.5,2]", LogLikelihood: -5},
		{Step: 2, Params: "[1.4,2.1]", LogLikelihood: -2},
	}
	require.NoError(t, s.RecordSamples("run-2", in))

	out, err := s.RunSamples("run-2")
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestRunSamplesEmptyForUnknownRun(t *testing.T) {
	s := testStore(t)
	out, err := s.RunSamples("missing")
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestRecordFit(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.RecordRun("run-3", "sersic", "demo"))
	require.NoError(t, s.RecordFit(FitRecord{
		RunID:              "run-3",
		ChiSquared:         42.5,
		NoiseNormalization: 10.0,
		LogLikelihood:      -26.25,
		Pixels:             81,
	}))

	var chi2 float64
	var pixels int64
	err := s.QueryRow(`SELECT chi_squared, pixels FROM fits WHERE run_id = ?`, "run-3").Scan(&chi2, &pixels)
	require.NoError(t, err)
	require.InDelta(t, 42.5, chi2, 1e-9)
	require.EqualValues(t, 81, pixels)
}

func TestRunsOrderedNewestFirstWithLimit(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.RecordRun("a", "sersic", "demo"))
	require.NoError(t, s.RecordRun("b", "sersic", "demo"))
	require.NoError(t, s.RecordRun("c", "sersic", "demo"))

	runs, err := s.Runs(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
}

func TestDatasetsRequireMigrations(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.MigrateUp(filepath.Join("..", "..", "migrations")))

	d := Dataset{Name: "demo", ImagePath: "i.csv", NoisePath: "n.csv", PSFPath: "p.csv", PixelScale: 0.1}
	require.NoError(t, s.RegisterDataset(d))

	got, err := s.DatasetByName("demo")
	require.NoError(t, err)
	require.Equal(t, d, *got)

	// re-registering replaces
	d.PixelScale = 0.2
	require.NoError(t, s.RegisterDataset(d))
	got, err = s.DatasetByName("demo")
	require.NoError(t, err)
	require.InDelta(t, 0.2, got.PixelScale, 1e-12)

	list, err := s.Datasets()
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = s.DatasetByName("missing")
	require.True(t, errors.Is(err, ErrDatasetNotFound))
}

func TestRegisterDatasetValidation(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.MigrateUp(filepath.Join("..", "..", "migrations")))
	err := s.RegisterDataset(Dataset{Name: "bad", PixelScale: 0})
	require.Error(t, err)
}

func TestMigrateVersion(t *testing.T) {
	s := testStore(t)
	dir := filepath.Join("..", "..", "migrations")

	version, dirty, err := s.MigrateVersion(dir)
	require.NoError(t, err)
	require.False(t, dirty)
	require.Zero(t, version)

	require.NoError(t, s.MigrateUp(dir))
	version, dirty, err = s.MigrateVersion(dir)
	require.NoError(t, err)
	require.False(t, dirty)
	require.EqualValues(t, 1, version)

	require.NoError(t, s.MigrateDown(dir))
	version, _, err = s.MigrateVersion(dir)
	require.NoError(t, err)
	require.Zero(t, version)
}
