// Package api exposes the fitting pipeline over HTTP: dataset
// registration, fit and simulation runs, and stored run histories.
package api

import (
	"net/http"

	"github.com/arcfield-data/galaxy.report/internal/config"
	"github.com/arcfield-data/galaxy.report/internal/fsutil"
	"github.com/arcfield-data/galaxy.report/internal/store"
)

type Server struct {
	db       *store.Store
	fs       fsutil.FileSystem
	settings *config.Settings
	plotDir  string
}

// NewServer wires the API against a results store and a filesystem for
// dataset IO. plotDir is where fit plots are written.
func NewServer(db *store.Store, fs fsutil.FileSystem, settings *config.Settings, plotDir string) *Server {
	if settings == nil {
		settings = config.EmptySettings()
	}
	return &Server{db: db, fs: fs, settings: settings, plotDir: plotDir}
}

// ServeMux returns the API routes. Mount under /api/.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/settings", s.handleSettings)
	mux.HandleFunc("/api/datasets", s.handleDatasets)
	mux.HandleFunc("/api/runs", s.handleRuns)
	mux.HandleFunc("/api/runs/samples", s.handleRunSamples)
	mux.HandleFunc("/api/runs/progress", s.handleRunProgress)
	mux.HandleFunc("/api/fit", s.handleFit)
	mux.HandleFunc("/api/invert", s.handleInvert)
	mux.HandleFunc("/api/simulate", s.handleSimulate)
	return mux
}
