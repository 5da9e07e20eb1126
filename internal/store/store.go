// Package store persists search runs, their sample histories and fit
// summaries to sqlite so results survive the process and can be
// queried from the API and report pages.
package store

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"
)

// Store wraps the results database.
type Store struct {
	*sql.DB
	path string
}

// NewStore opens (or creates) the results database at path and ensures
// the base schema exists. Schema evolution beyond the base tables goes
// through the migrations in migrate.go.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id            TEXT PRIMARY KEY,
			model             TEXT,
			dataset           TEXT,
			status            TEXT,
			log_likelihood    DOUBLE,
			evaluations       BIGINT,
			started_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			finished_at       TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS samples (
			run_id            TEXT,
			step              BIGINT,
			params            TEXT,
			log_likelihood    DOUBLE,
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);
		CREATE TABLE IF NOT EXISTS fits (
			fit_id              INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id              TEXT,
			chi_squared         DOUBLE,
			noise_normalization DOUBLE,
			log_likelihood      DOUBLE,
			pixels              BIGINT,
			created_at          TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return nil, err
	}

	return &Store{DB: db, path: path}, nil
}

// Run is one search run's summary row.
type Run struct {
	RunID         string   `json:"run_id"`
	Model         string   `json:"model"`
	Dataset       string   `json:"dataset"`
	Status        string   `json:"status"`
	LogLikelihood *float64 `json:"log_likelihood,omitempty"`
	Evaluations   int64    `json:"evaluations"`
}

// Run statuses
const (
	RunStatusRunning  = "running"
	RunStatusFinished = "finished"
	RunStatusFailed   = "failed"
)

// RecordRun inserts a new run in the running state.
func (s *Store) RecordRun(runID, model, dataset string) error {
	_, err := s.Exec(
		`INSERT INTO runs (run_id, model, dataset, status, evaluations) VALUES (?, ?, ?, ?, 0)`,
		runID, model, dataset, RunStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", runID, err)
	}
	return nil
}

// FinishRun marks a run finished (or failed) with its final likelihood
// and evaluation count.
func (s *Store) FinishRun(runID, status string, logLikelihood float64, evaluations int) error {
	_, err := s.Exec(
		`UPDATE runs SET status = ?, log_likelihood = ?, evaluations = ?, finished_at = ? WHERE run_id = ?`,
		status, logLikelihood, evaluations, time.Now().UTC(), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", runID, err)
	}
	return nil
}

// SampleRecord is one stored objective evaluation.
type SampleRecord struct {
	Step          int64   `json:"step"`
	Params        string  `json:"params"`
	LogLikelihood float64 `json:"log_likelihood"`
}

// RecordSamples stores a run's sample history in one transaction.
func (s *Store) RecordSamples(runID string, samples []SampleRecord) error {
	tx, err := s.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin samples transaction: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO samples (run_id, step, params, log_likelihood) VALUES (?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare samples insert: %w", err)
	}
	defer stmt.Close()
	for _, sample := range samples {
		if _, err := stmt.Exec(runID, sample.Step, sample.Params, sample.LogLikelihood); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert sample %d: %w", sample.Step, err)
		}
	}
	return tx.Commit()
}

// FitRecord is a stored fit summary.
type FitRecord struct {
	RunID              string  `json:"run_id"`
	ChiSquared         float64 `json:"chi_squared"`
	NoiseNormalization float64 `json:"noise_normalization"`
	LogLikelihood      float64 `json:"log_likelihood"`
	Pixels             int64   `json:"pixels"`
}

// RecordFit stores a fit summary.
func (s *Store) RecordFit(f FitRecord) error {
	_, err := s.Exec(
		`INSERT INTO fits (run_id, chi_squared, noise_normalization, log_likelihood, pixels)
		 VALUES (?, ?, ?, ?, ?)`,
		f.RunID, f.ChiSquared, f.NoiseNormalization, f.LogLikelihood, f.Pixels,
	)
	if err != nil {
		return fmt.Errorf("failed to record fit for run %s: %w", f.RunID, err)
	}
	return nil
}

// Runs returns the most recent runs, newest first.
func (s *Store) Runs(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.Query(
		`SELECT run_id, model, dataset, status, log_likelihood, evaluations
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var logL sql.NullFloat64
		if err := rows.Scan(&r.RunID, &r.Model, &r.Dataset, &r.Status, &logL, &r.Evaluations); err != nil {
			return nil, err
		}
		if logL.Valid {
			r.LogLikelihood = &logL.Float64
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// RunSamples returns a run's sample history in step order.
func (s *Store) RunSamples(runID string) ([]SampleRecord, error) {
	rows, err := s.Query(
		`SELECT step, params, log_likelihood FROM samples WHERE run_id = ? ORDER BY step`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []SampleRecord
	for rows.Next() {
		var rec SampleRecord
		if err := rows.Scan(&rec.Step, &rec.Params, &rec.LogLikelihood); err != nil {
			return nil, err
		}
		samples = append(samples, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

// AttachAdminRoutes mounts the tailSQL live-query console and debug
// endpoints on the given mux. Accessible only in dev mode or over
// Tailscale.
func (s *Store) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		log.Fatalf("failed to create tailsql server: %v", err)
	}
	tsql.SetDB("sqlite://"+s.path, s.DB, &tailsql.DBOptions{
		Label: "Fit results DB",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())
}
