package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/arcfield-data/galaxy.report/internal/array"
	"github.com/arcfield-data/galaxy.report/internal/dataset"
	"github.com/arcfield-data/galaxy.report/internal/fit"
	"github.com/arcfield-data/galaxy.report/internal/galaxy"
	"github.com/arcfield-data/galaxy.report/internal/grids"
	"github.com/arcfield-data/galaxy.report/internal/httputil"
	"github.com/arcfield-data/galaxy.report/internal/inversion"
	"github.com/arcfield-data/galaxy.report/internal/monitoring"
	"github.com/arcfield-data/galaxy.report/internal/profiles"
	"github.com/arcfield-data/galaxy.report/internal/report"
	"github.com/arcfield-data/galaxy.report/internal/search"
	"github.com/arcfield-data/galaxy.report/internal/simulate"
	"github.com/arcfield-data/galaxy.report/internal/store"
	"github.com/arcfield-data/galaxy.report/internal/version"
)

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, version.Info())
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.settings)
}

func (s *Server) handleDatasets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		datasets, err := s.db.Datasets()
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to list datasets: %v", err))
			return
		}
		httputil.WriteJSONOK(w, map[string]interface{}{"datasets": datasets})
	case http.MethodPost:
		var d store.Dataset
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			httputil.BadRequest(w, fmt.Sprintf("invalid dataset body: %v", err))
			return
		}
		if d.Name == "" {
			httputil.BadRequest(w, "dataset name is required")
			return
		}
		// Reject registrations pointing at unreadable files up front.
		if _, err := dataset.LoadImaging(s.fs, d.ImagePath, d.NoisePath, d.PSFPath, d.PixelScale); err != nil {
			httputil.BadRequest(w, fmt.Sprintf("dataset does not load: %v", err))
			return
		}
		if err := s.db.RegisterDataset(d); err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to register dataset: %v", err))
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, d)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}
	runs, err := s.db.Runs(limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list runs: %v", err))
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{"runs": runs})
}

func (s *Server) handleRunSamples(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		httputil.BadRequest(w, "run_id query parameter is required")
		return
	}
	samples, err := s.db.RunSamples(runID)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to load samples: %v", err))
		return
	}
	if len(samples) == 0 {
		httputil.NotFound(w, fmt.Sprintf("no samples for run %s", runID))
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{"run_id": runID, "samples": samples})
}

// handleRunProgress renders a run's objective history as an HTML chart.
func (s *Server) handleRunProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		httputil.BadRequest(w, "run_id query parameter is required")
		return
	}
	samples, err := s.db.RunSamples(runID)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to load samples: %v", err))
		return
	}
	if len(samples) == 0 {
		httputil.NotFound(w, fmt.Sprintf("no samples for run %s", runID))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.RenderSearchProgress(w, runID, samples); err != nil {
		monitoring.Logf("failed to render progress for run %s: %v", runID, err)
	}
}

// FitRequest configures a model-fitting run against a registered dataset.
type FitRequest struct {
	Dataset          string   `json:"dataset"`
	Model            string   `json:"model"` // "sersic" or "gaussian"
	MaskRadiusArcsec *float64 `json:"mask_radius_arcsec,omitempty"`
	Plots            bool     `json:"plots,omitempty"`
}

// FitResponse summarises a finished fitting run.
type FitResponse struct {
	RunID              string             `json:"run_id"`
	Model              string             `json:"model"`
	Dataset            string             `json:"dataset"`
	LogLikelihood      float64            `json:"log_likelihood"`
	ChiSquared         float64            `json:"chi_squared"`
	ReducedChiSquared  float64            `json:"reduced_chi_squared"`
	NoiseNormalization float64            `json:"noise_normalization"`
	Pixels             int                `json:"pixels"`
	Evaluations        int                `json:"evaluations"`
	BestParameters     map[string]float64 `json:"best_parameters"`
	PlotDir            string             `json:"plot_dir,omitempty"`
}

func (s *Server) handleFit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req FitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid fit request: %v", err))
		return
	}

	d, err := s.db.DatasetByName(req.Dataset)
	if errors.Is(err, store.ErrDatasetNotFound) {
		httputil.NotFound(w, fmt.Sprintf("dataset %q is not registered", req.Dataset))
		return
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to look up dataset: %v", err))
		return
	}
	obs, err := dataset.LoadImaging(s.fs, d.ImagePath, d.NoisePath, d.PSFPath, d.PixelScale)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to load dataset %s: %v", d.Name, err))
		return
	}

	maskRadius := s.settings.GetMaskRadiusArcsec()
	if req.MaskRadiusArcsec != nil {
		maskRadius = *req.MaskRadiusArcsec
	}
	mask, err := grids.NewCircular(obs.Image.Rows, obs.Image.Cols, obs.PixelScale(), maskRadius, [2]float64{0, 0})
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid mask: %v", err))
		return
	}
	grid, err := grids.NewFromMask(mask)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to build grid: %v", err))
		return
	}
	evaluator, err := fit.NewEvaluator(obs, grid)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to prepare evaluator: %v", err))
		return
	}

	maxIntensity := 10 * obs.Image.Max()
	if maxIntensity <= 0 {
		httputil.BadRequest(w, "dataset image has no positive signal to fit")
		return
	}
	var model *search.Model
	switch req.Model {
	case "sersic", "":
		req.Model = "sersic"
		model = search.SersicModel(0.5, maskRadius, maxIntensity)
	case "gaussian":
		model = search.GaussianModel(0.5, maskRadius, maxIntensity)
	default:
		httputil.BadRequest(w, fmt.Sprintf("unknown model %q (want sersic or gaussian)", req.Model))
		return
	}

	searcher := &search.Searcher{
		Starts:        s.settings.GetSearchStarts(),
		MaxIterations: s.settings.GetSearchMaxIterations(),
		Workers:       s.settings.GetSearchWorkers(),
		Seed:          s.settings.GetSearchSeed(),
	}
	result, err := searcher.Fit(r.Context(), model, evaluator.LogLikelihood)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("search failed: %v", err))
		return
	}

	plane, err := result.BestPlane(model)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to rebuild best-fit plane: %v", err))
		return
	}
	bestFit, err := evaluator.FitPlane(plane)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to fit best-fit plane: %v", err))
		return
	}

	s.recordRun(result, req.Model, d.Name, bestFit)

	resp := FitResponse{
		RunID:              result.RunID,
		Model:              req.Model,
		Dataset:            d.Name,
		LogLikelihood:      bestFit.LogLikelihood,
		ChiSquared:         bestFit.ChiSquared,
		ReducedChiSquared:  bestFit.ReducedChiSquared(),
		NoiseNormalization: bestFit.NoiseNormalization,
		Pixels:             grid.Len(),
		Evaluations:        result.Evaluations,
		BestParameters:     namedParameters(model, result.Best),
	}

	if req.Plots {
		outputDir := report.MakePlotOutputDir(s.plotDir, result.RunID)
		plotter, err := report.NewFitPlotter(outputDir)
		if err != nil {
			monitoring.Logf("failed to create plot dir for run %s: %v", result.RunID, err)
		} else if _, err := plotter.GeneratePlots(bestFit, req.Model); err != nil {
			monitoring.Logf("failed to plot run %s: %v", result.RunID, err)
		} else {
			resp.PlotDir = outputDir
		}
	}

	httputil.WriteJSONOK(w, resp)
}

// recordRun persists a search run, its sample history and the best fit.
// Persistence failures are logged rather than failing the request: the
// fit result is already in hand.
func (s *Server) recordRun(result *search.Result, model, ds string, bestFit *fit.FitImaging) {
	if err := s.db.RecordRun(result.RunID, model, ds); err != nil {
		monitoring.Logf("failed to record run %s: %v", result.RunID, err)
		return
	}
	records := make([]store.SampleRecord, len(result.Samples))
	for i, sample := range result.Samples {
		params, _ := json.Marshal(sample.Parameters)
		records[i] = store.SampleRecord{Step: int64(i), Params: string(params), LogLikelihood: sample.LogLikelihood}
	}
	if err := s.db.RecordSamples(result.RunID, records); err != nil {
		monitoring.Logf("failed to record samples for run %s: %v", result.RunID, err)
	}
	if err := s.db.RecordFit(store.FitRecord{
		RunID:              result.RunID,
		ChiSquared:         bestFit.ChiSquared,
		NoiseNormalization: bestFit.NoiseNormalization,
		LogLikelihood:      bestFit.LogLikelihood,
		Pixels:             int64(len(bestFit.Data)),
	}); err != nil {
		monitoring.Logf("failed to record fit for run %s: %v", result.RunID, err)
	}
	if err := s.db.FinishRun(result.RunID, store.RunStatusFinished, result.LogLikelihood, result.Evaluations); err != nil {
		monitoring.Logf("failed to finish run %s: %v", result.RunID, err)
	}
}

func namedParameters(model *search.Model, values []float64) map[string]float64 {
	out := make(map[string]float64, len(values))
	for i, p := range model.Parameters {
		out[p.Name] = values[i]
	}
	return out
}

// InvertRequest configures a pixelized reconstruction of a registered
// dataset on a rectangular mesh.
type InvertRequest struct {
	Dataset          string   `json:"dataset"`
	MeshRows         int      `json:"mesh_rows"`
	MeshCols         int      `json:"mesh_cols"`
	Regularization   *float64 `json:"regularization,omitempty"`
	MaskRadiusArcsec *float64 `json:"mask_radius_arcsec,omitempty"`
}

// InvertResponse summarises the reconstruction and its fit to the data.
type InvertResponse struct {
	Dataset        string    `json:"dataset"`
	MeshRows       int       `json:"mesh_rows"`
	MeshCols       int       `json:"mesh_cols"`
	Regularization float64   `json:"regularization"`
	Pixels         int       `json:"pixels"`
	ChiSquared     float64   `json:"chi_squared"`
	Solution       []float64 `json:"solution"`
}

func (s *Server) handleInvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req InvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid invert request: %v", err))
		return
	}

	d, err := s.db.DatasetByName(req.Dataset)
	if errors.Is(err, store.ErrDatasetNotFound) {
		httputil.NotFound(w, fmt.Sprintf("dataset %q is not registered", req.Dataset))
		return
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to look up dataset: %v", err))
		return
	}
	obs, err := dataset.LoadImaging(s.fs, d.ImagePath, d.NoisePath, d.PSFPath, d.PixelScale)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to load dataset %s: %v", d.Name, err))
		return
	}

	maskRadius := s.settings.GetMaskRadiusArcsec()
	if req.MaskRadiusArcsec != nil {
		maskRadius = *req.MaskRadiusArcsec
	}
	mask, err := grids.NewCircular(obs.Image.Rows, obs.Image.Cols, obs.PixelScale(), maskRadius, [2]float64{0, 0})
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid mask: %v", err))
		return
	}
	grid, err := grids.NewFromMask(mask)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to build grid: %v", err))
		return
	}

	mesh, err := inversion.NewRectangularMesh(req.MeshRows, req.MeshCols)
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid mesh: %v", err))
		return
	}
	mapper, err := inversion.NewMapper(mesh, grid)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	data, err := grid.FromNative(obs.Image.Values)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to extract data: %v", err))
		return
	}
	noise, err := grid.FromNative(obs.NoiseMap.Values)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to extract noise: %v", err))
		return
	}

	lambda := s.settings.GetRegularizationCoefficient()
	if req.Regularization != nil {
		lambda = *req.Regularization
	}
	inv, err := inversion.Solve(mapper, data, noise, lambda)
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("inversion failed: %v", err))
		return
	}

	chiSquared := 0.0
	for i := range data {
		nr := (data[i] - inv.MappedImage[i]) / noise[i]
		chiSquared += nr * nr
	}

	httputil.WriteJSONOK(w, InvertResponse{
		Dataset:        d.Name,
		MeshRows:       mesh.Rows,
		MeshCols:       mesh.Cols,
		Regularization: inv.Regularization,
		Pixels:         grid.Len(),
		ChiSquared:     chiSquared,
		Solution:       inv.Solution,
	})
}

// SimulateRequest configures a synthetic observation of a single Sersic
// galaxy. The three output paths receive headerless CSV arrays.
type SimulateRequest struct {
	Rows       int     `json:"rows"`
	Cols       int     `json:"cols"`
	PixelScale float64 `json:"pixel_scale"`

	CentreY         float64 `json:"centre_y"`
	CentreX         float64 `json:"centre_x"`
	Ell1            float64 `json:"ell_1"`
	Ell2            float64 `json:"ell_2"`
	Intensity       float64 `json:"intensity"`
	EffectiveRadius float64 `json:"effective_radius"`
	SersicIndex     float64 `json:"sersic_index"`

	PSFSigmaPixels float64 `json:"psf_sigma_pixels"`
	PSFSize        int     `json:"psf_size"`

	ImagePath string `json:"image_path"`
	NoisePath string `json:"noise_path"`
	PSFPath   string `json:"psf_path"`
	Register  string `json:"register,omitempty"` // dataset name, optional
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid simulate request: %v", err))
		return
	}
	if req.ImagePath == "" || req.NoisePath == "" || req.PSFPath == "" {
		httputil.BadRequest(w, "image_path, noise_path and psf_path are required")
		return
	}

	obs, err := s.simulateSersic(&req)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if err := dataset.WriteImaging(s.fs, obs, req.ImagePath, req.NoisePath, req.PSFPath); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to write dataset: %v", err))
		return
	}

	resp := map[string]interface{}{
		"rows":        obs.Image.Rows,
		"cols":        obs.Image.Cols,
		"pixel_scale": obs.PixelScale(),
		"image_path":  req.ImagePath,
		"noise_path":  req.NoisePath,
		"psf_path":    req.PSFPath,
	}
	if req.Register != "" {
		d := store.Dataset{
			Name:       req.Register,
			ImagePath:  req.ImagePath,
			NoisePath:  req.NoisePath,
			PSFPath:    req.PSFPath,
			PixelScale: obs.PixelScale(),
		}
		if err := s.db.RegisterDataset(d); err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to register simulated dataset: %v", err))
			return
		}
		resp["dataset"] = req.Register
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

func galaxyWithProfile(profile profiles.LightProfile) (*galaxy.Plane, error) {
	g, err := galaxy.New(0.5, map[string]profiles.LightProfile{"light": profile})
	if err != nil {
		return nil, err
	}
	return galaxy.NewPlane([]*galaxy.Galaxy{g})
}

func (s *Server) simulateSersic(req *SimulateRequest) (*dataset.Imaging, error) {
	profile, err := profiles.NewSersic(profiles.Ellipse{
		Centre: [2]float64{req.CentreY, req.CentreX},
		Ell1:   req.Ell1,
		Ell2:   req.Ell2,
	}, req.Intensity, req.EffectiveRadius, req.SersicIndex)
	if err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	g, err := galaxyWithProfile(profile)
	if err != nil {
		return nil, err
	}

	grid, err := grids.NewFromShape(req.Rows, req.Cols, req.PixelScale)
	if err != nil {
		return nil, fmt.Errorf("invalid grid: %w", err)
	}

	psfSize := req.PSFSize
	if psfSize == 0 {
		psfSize = 11
	}
	psfSigma := req.PSFSigmaPixels
	if psfSigma == 0 {
		psfSigma = 1.5
	}
	psf, err := array.GaussianKernel(psfSize, req.PixelScale, psfSigma)
	if err != nil {
		return nil, fmt.Errorf("invalid psf: %w", err)
	}

	sim := &simulate.Imaging{
		ExposureTime:       s.settings.GetExposureTimeSeconds(),
		BackgroundSkyLevel: s.settings.GetBackgroundSkyLevel(),
		PSF:                psf,
		AddPoissonNoise:    true,
		GaussianNoiseSigma: s.settings.GetGaussianNoiseSigma(),
		Seed:               s.settings.GetNoiseSeed(),
	}
	return sim.Observe(g, grid)
}
