// Package search runs non-linear maximum-likelihood searches over
// light-profile parameters, wrapping the fit evaluator's log-likelihood
// as the objective of a multi-start Nelder-Mead optimization.
package search

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/optimize"

	"github.com/arcfield-data/galaxy.report/internal/galaxy"
	"github.com/arcfield-data/galaxy.report/internal/monitoring"
)

// penaltyLikelihood is returned for parameter sets outside their bounds
// or that fail to build a valid plane, steering the simplex back into
// the allowed region.
const penaltyLikelihood = -1e12

// Parameter is one free model parameter with its uniform prior bounds.
type Parameter struct {
	Name  string
	Lower float64
	Upper float64
}

// Model maps a parameter vector to a plane. Build must reject invalid
// vectors with an error rather than panic.
type Model struct {
	Parameters []Parameter
	Build      func(values []float64) (*galaxy.Plane, error)
}

// Validate checks the parameter bounds are well formed.
func (m *Model) Validate() error {
	if len(m.Parameters) == 0 {
		return fmt.Errorf("model has no free parameters")
	}
	if m.Build == nil {
		return fmt.Errorf("model has no build function")
	}
	for _, p := range m.Parameters {
		if p.Lower >= p.Upper {
			return fmt.Errorf("parameter %s bounds [%f, %f] are inverted or empty", p.Name, p.Lower, p.Upper)
		}
	}
	return nil
}

// Sample is one objective evaluation recorded during a search.
type Sample struct {
	Parameters    []float64
	LogLikelihood float64
}

// Result is the outcome of a search run.
type Result struct {
	RunID         string
	Best          []float64
	LogLikelihood float64
	Samples       []Sample
	Evaluations   int
}

// BestPlane rebuilds the plane at the best-fit parameters.
func (r *Result) BestPlane(m *Model) (*galaxy.Plane, error) {
	return m.Build(r.Best)
}

// Searcher configures a multi-start Nelder-Mead search. Starts are
// drawn uniformly from the parameter priors with a seeded source, and
// run concurrently on a bounded worker pool.
type Searcher struct {
	Starts        int
	MaxIterations int
	Workers       int
	Seed          uint64
}

// DefaultSearcher returns the settings used when none are configured.
func DefaultSearcher() *Searcher {
	return &Searcher{Starts: 8, MaxIterations: 500, Workers: 4, Seed: 1}
}

// Fit maximizes likelihood(model(x)) and returns the best result with
// the sample history of every objective evaluation.
func (s *Searcher) Fit(ctx context.Context, model *Model, likelihood func(*galaxy.Plane) (float64, error)) (*Result, error) {
	if err := model.Validate(); err != nil {
		return nil, err
	}
	if s.Starts <= 0 || s.Workers <= 0 || s.MaxIterations <= 0 {
		return nil, fmt.Errorf("searcher starts, workers and max iterations must be positive")
	}

	result := &Result{RunID: uuid.New().String()}
	var mu sync.Mutex

	objective := func(x []float64) float64 {
		logL := s.evaluate(model, likelihood, x)
		mu.Lock()
		params := make([]float64, len(x))
		copy(params, x)
		result.Samples = append(result.Samples, Sample{Parameters: params, LogLikelihood: logL})
		result.Evaluations++
		mu.Unlock()
		return -logL
	}

	starts := s.drawStarts(model)
	results := make([]startResult, len(starts))

	var wg sync.WaitGroup
	work := make(chan int)
	for w := 0; w < s.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				results[i] = s.runStart(objective, starts[i])
			}
		}()
	}
	for i := range starts {
		select {
		case <-ctx.Done():
			// stop dispatching; in-flight starts finish on their own
		case work <- i:
			continue
		}
		break
	}
	close(work)
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("search cancelled: %w", err)
	}

	best := startResult{logL: math.Inf(-1)}
	for _, r := range results {
		if r.x != nil && r.logL > best.logL {
			best = r
		}
	}
	if best.x == nil {
		return nil, fmt.Errorf("no search start converged to a finite likelihood")
	}

	result.Best = best.x
	result.LogLikelihood = best.logL
	monitoring.Logf("search %s finished: %d evaluations, best logL=%.4f", result.RunID, result.Evaluations, result.LogLikelihood)
	return result, nil
}

// startResult is the outcome of one optimization start; x is nil when
// the start failed to reach a finite likelihood.
type startResult struct {
	x    []float64
	logL float64
}

func (s *Searcher) runStart(objective func([]float64) float64, start []float64) (out startResult) {
	problem := optimize.Problem{Func: objective}
	settings := &optimize.Settings{
		MajorIterations: s.MaxIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-9,
			Iterations: 50,
		},
	}
	res, err := optimize.Minimize(problem, start, settings, &optimize.NelderMead{})
	if err != nil || res == nil {
		monitoring.Logf("search start failed: %v", err)
		return out
	}
	if math.IsInf(res.F, 0) || math.IsNaN(res.F) || -res.F <= penaltyLikelihood {
		return out
	}
	out.x = res.X
	out.logL = -res.F
	return out
}

// evaluate applies bound penalties and converts build failures into
// penalty likelihoods so the optimizer never sees an error.
func (s *Searcher) evaluate(model *Model, likelihood func(*galaxy.Plane) (float64, error), x []float64) float64 {
	var violation float64
	for i, p := range model.Parameters {
		if x[i] < p.Lower {
			violation += p.Lower - x[i]
		} else if x[i] > p.Upper {
			violation += x[i] - p.Upper
		}
	}
	if violation > 0 {
		return penaltyLikelihood * (1 + violation)
	}
	plane, err := model.Build(x)
	if err != nil {
		return penaltyLikelihood
	}
	logL, err := likelihood(plane)
	if err != nil || math.IsNaN(logL) {
		return penaltyLikelihood
	}
	return logL
}

func (s *Searcher) drawStarts(model *Model) [][]float64 {
	src := rand.New(rand.NewPCG(s.Seed, s.Seed))
	starts := make([][]float64, s.Starts)
	for i := range starts {
		x := make([]float64, len(model.Parameters))
		for j, p := range model.Parameters {
			x[j] = p.Lower + src.Float64()*(p.Upper-p.Lower)
		}
		starts[i] = x
	}
	return starts
}
