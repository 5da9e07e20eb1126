package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arcfield-data/galaxy.report/internal/array"
	"github.com/arcfield-data/galaxy.report/internal/config"
	"github.com/arcfield-data/galaxy.report/internal/dataset"
	"github.com/arcfield-data/galaxy.report/internal/fsutil"
	"github.com/arcfield-data/galaxy.report/internal/galaxy"
	"github.com/arcfield-data/galaxy.report/internal/grids"
	"github.com/arcfield-data/galaxy.report/internal/profiles"
	"github.com/arcfield-data/galaxy.report/internal/store"
)

func testServer(t *testing.T) (*Server, *store.Store, fsutil.FileSystem) {
	t.Helper()
	db, err := store.NewStore(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.MigrateUp(filepath.Join("..", "..", "migrations")))

	fs := fsutil.NewMemoryFileSystem()

	// small search settings keep the fit endpoint fast in tests
	starts, iters, workers := 2, 80, 1
	seed := uint64(3)
	settings := &config.Settings{
		SearchStarts:        &starts,
		SearchMaxIterations: &iters,
		SearchWorkers:       &workers,
		SearchSeed:          &seed,
	}
	return NewServer(db, fs, settings, t.TempDir()), db, fs
}

// writeTestDataset writes a noiseless Gaussian observation into fs.
func writeTestDataset(t *testing.T, fs fsutil.FileSystem) store.Dataset {
	t.Helper()
	grid, err := grids.NewFromShape(11, 11, 0.2)
	require.NoError(t, err)
	p, err := profiles.NewGaussian(profiles.Ellipse{}, 1.0, 0.4)
	require.NoError(t, err)
	g, err := galaxy.New(0.5, map[string]profiles.LightProfile{"gaussian": p})
	require.NoError(t, err)
	plane, err := galaxy.NewPlane([]*galaxy.Galaxy{g})
	require.NoError(t, err)

	model := plane.Image(grid)
	native, err := grid.ToNative(model)
	require.NoError(t, err)
	image, err := array.FromValues(11, 11, 0.2, native)
	require.NoError(t, err)
	noise := array.Full(11, 11, 0.2, 0.1)
	psf, err := array.DeltaKernel(3, 0.2)
	require.NoError(t, err)

	d, err := dataset.NewImaging(image, noise, psf)
	require.NoError(t, err)
	require.NoError(t, dataset.WriteImaging(fs, d, "demo/image.csv", "demo/noise.csv", "demo/psf.csv"))

	return store.Dataset{
		Name:       "demo",
		ImagePath:  "demo/image.csv",
		NoisePath:  "demo/noise.csv",
		PSFPath:    "demo/psf.csv",
		PixelScale: 0.2,
	}
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestVersionEndpoint(t *testing.T) {
	srv, _, _ := testServer(t)
	mux := srv.ServeMux()

	w := doJSON(t, mux, http.MethodGet, "/api/version", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Contains(t, body, "version")

	w = doJSON(t, mux, http.MethodPost, "/api/version", nil)
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestSettingsEndpoint(t *testing.T) {
	srv, _, _ := testServer(t)
	w := doJSON(t, srv.ServeMux(), http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got config.Settings
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	require.NotNil(t, got.SearchStarts)
	require.Equal(t, 2, *got.SearchStarts)
}

func TestDatasetRegistrationAndListing(t *testing.T) {
	srv, _, fs := testServer(t)
	mux := srv.ServeMux()
	d := writeTestDataset(t, fs)

	// missing name
	w := doJSON(t, mux, http.MethodPost, "/api/datasets", store.Dataset{PixelScale: 0.2})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// unreadable files
	bad := d
	bad.ImagePath = "missing.csv"
	w = doJSON(t, mux, http.MethodPost, "/api/datasets", bad)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, mux, http.MethodPost, "/api/datasets", d)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, mux, http.MethodGet, "/api/datasets", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Datasets []store.Dataset `json:"datasets"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Len(t, body.Datasets, 1)
	require.Equal(t, "demo", body.Datasets[0].Name)
}

func TestRunsEmpty(t *testing.T) {
	srv, _, _ := testServer(t)
	w := doJSON(t, srv.ServeMux(), http.MethodGet, "/api/runs", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRunSamplesRequiresRunID(t *testing.T) {
	srv, _, _ := testServer(t)
	mux := srv.ServeMux()
	w := doJSON(t, mux, http.MethodGet, "/api/runs/samples", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(t, mux, http.MethodGet, "/api/runs/samples?run_id=unknown", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(t, mux, http.MethodGet, "/api/runs/progress?run_id=unknown", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestFitUnknownDataset(t *testing.T) {
	srv, _, _ := testServer(t)
	w := doJSON(t, srv.ServeMux(), http.MethodPost, "/api/fit", FitRequest{Dataset: "nope"})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestFitUnknownModel(t *testing.T) {
	srv, db, fs := testServer(t)
	d := writeTestDataset(t, fs)
	require.NoError(t, db.RegisterDataset(d))

	w := doJSON(t, srv.ServeMux(), http.MethodPost, "/api/fit", FitRequest{Dataset: "demo", Model: "voronoi"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFitEndToEnd(t *testing.T) {
	srv, db, fs := testServer(t)
	mux := srv.ServeMux()
	d := writeTestDataset(t, fs)
	require.NoError(t, db.RegisterDataset(d))

	maskRadius := 1.0
	w := doJSON(t, mux, http.MethodPost, "/api/fit", FitRequest{
		Dataset:          "demo",
		Model:            "gaussian",
		MaskRadiusArcsec: &maskRadius,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp FitResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotEmpty(t, resp.RunID)
	require.Equal(t, "gaussian", resp.Model)
	require.Greater(t, resp.Evaluations, 0)
	require.Contains(t, resp.BestParameters, "intensity")

	// the run and its samples were persisted
	runs, err := db.Runs(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, store.RunStatusFinished, runs[0].Status)

	w = doJSON(t, mux, http.MethodGet, "/api/runs/samples?run_id="+resp.RunID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, mux, http.MethodGet, "/api/runs/progress?run_id="+resp.RunID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Type"), "text/html")
}

func TestInvertEndpoint(t *testing.T) {
	srv, db, fs := testServer(t)
	mux := srv.ServeMux()
	d := writeTestDataset(t, fs)
	require.NoError(t, db.RegisterDataset(d))

	maskRadius := 1.0
	w := doJSON(t, mux, http.MethodPost, "/api/invert", InvertRequest{
		Dataset:          "demo",
		MeshRows:         3,
		MeshCols:         3,
		MaskRadiusArcsec: &maskRadius,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp InvertResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Solution, 9)
	require.Greater(t, resp.Pixels, 9)
	require.GreaterOrEqual(t, resp.ChiSquared, 0.0)

	// unknown dataset and bad mesh
	w = doJSON(t, mux, http.MethodPost, "/api/invert", InvertRequest{Dataset: "nope", MeshRows: 3, MeshCols: 3})
	require.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(t, mux, http.MethodPost, "/api/invert", InvertRequest{Dataset: "demo", MeshRows: 1, MeshCols: 3})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSimulateEndpoint(t *testing.T) {
	srv, db, fs := testServer(t)
	mux := srv.ServeMux()

	w := doJSON(t, mux, http.MethodPost, "/api/simulate", SimulateRequest{
		Rows: 11, Cols: 11, PixelScale: 0.2,
		Intensity: 1.0, EffectiveRadius: 0.5, SersicIndex: 1.5,
		ImagePath: "sim/image.csv", NoisePath: "sim/noise.csv", PSFPath: "sim/psf.csv",
		Register: "synthetic",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// files exist and load back as a valid dataset
	obs, err := dataset.LoadImaging(fs, "sim/image.csv", "sim/noise.csv", "sim/psf.csv", 0.2)
	require.NoError(t, err)
	require.Equal(t, 11, obs.Image.Rows)

	got, err := db.DatasetByName("synthetic")
	require.NoError(t, err)
	require.InDelta(t, 0.2, got.PixelScale, 1e-12)
}

func TestSimulateMissingPaths(t *testing.T) {
	srv, _, _ := testServer(t)
	w := doJSON(t, srv.ServeMux(), http.MethodPost, "/api/simulate", SimulateRequest{Rows: 5, Cols: 5, PixelScale: 0.1})
	require.Equal(t, http.StatusBadRequest, w.Code)
}
