package operators

import (
	"fmt"
	"math"

	"github.com/arcfield-data/galaxy.report/internal/grids"
)

// Transformer maps a real-space model image to complex visibilities at
// sampled uv points via a direct Fourier transform:
//
//	V(u_k, v_k) = sum_j I_j * exp(-2*pi*i * (u_k*x_j + v_k*y_j))
//
// with x, y in radians and u, v in wavelengths. The phase terms for
// every (uv point, image pixel) pair are precomputed at construction;
// for the masked grids this operator serves, the dense form is the
// right trade against a non-uniform FFT.
type Transformer struct {
	uv   [][2]float64
	grid *grids.Grid2D

	// cosTerms and sinTerms are [uv][pixel] phase tables.
	cosTerms [][]float64
	sinTerms [][]float64
}

const arcsecToRadians = math.Pi / 180 / 3600

// NewTransformer precomputes the DFT phase tables for the grid and the
// uv sample coordinates (u, v in wavelengths).
func NewTransformer(uvWavelengths [][2]float64, grid *grids.Grid2D) (*Transformer, error) {
	if len(uvWavelengths) == 0 {
		return nil, fmt.Errorf("transformer requires at least one uv point")
	}
	t := &Transformer{
		uv:       uvWavelengths,
		grid:     grid,
		cosTerms: make([][]float64, len(uvWavelengths)),
		sinTerms: make([][]float64, len(uvWavelengths)),
	}
	n := grid.Len()
	for k, uv := range uvWavelengths {
		cos := make([]float64, n)
		sin := make([]float64, n)
		for j := 0; j < n; j++ {
			phase := -2 * math.Pi * (uv[0]*grid.X[j]*arcsecToRadians + uv[1]*grid.Y[j]*arcsecToRadians)
			cos[j] = math.Cos(phase)
			sin[j] = math.Sin(phase)
		}
		t.cosTerms[k] = cos
		t.sinTerms[k] = sin
	}
	return t, nil
}

// UVCount returns the number of uv sample points.
func (t *Transformer) UVCount() int { return len(t.uv) }

// Visibilities transforms a slim model image to complex visibilities,
// one per uv point.
func (t *Transformer) Visibilities(slim []float64) ([]complex128, error) {
	if len(slim) != t.grid.Len() {
		return nil, fmt.Errorf("image length %d does not match grid size %d", len(slim), t.grid.Len())
	}
	vis := make([]complex128, len(t.uv))
	for k := range t.uv {
		var re, im float64
		cos := t.cosTerms[k]
		sin := t.sinTerms[k]
		for j, v := range slim {
			re += v * cos[j]
			im += v * sin[j]
		}
		vis[k] = complex(re, im)
	}
	return vis, nil
}
