// Package inversion reconstructs irregular light distributions on a
// rectangular mesh by linear inversion: image pixels are mapped onto
// mesh cells and the cell surface brightnesses solved for by
// regularized least squares,
//
//	(M^T N^-1 M + lambda*H) s = M^T N^-1 d
//
// where M is the pixel-to-cell mapping matrix, N the noise covariance
// (diagonal), H a gradient regularization matrix and d the data.
package inversion

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/arcfield-data/galaxy.report/internal/grids"
)

// RectangularMesh is a uniform rows x cols mesh laid over the extent of
// a masked grid.
type RectangularMesh struct {
	Rows int
	Cols int
}

// NewRectangularMesh validates the mesh shape.
func NewRectangularMesh(rows, cols int) (*RectangularMesh, error) {
	if rows < 2 || cols < 2 {
		return nil, fmt.Errorf("mesh shape must be at least 2x2, got %dx%d", rows, cols)
	}
	return &RectangularMesh{Rows: rows, Cols: cols}, nil
}

// Cells returns the number of mesh cells.
func (m *RectangularMesh) Cells() int { return m.Rows * m.Cols }

// Mapper assigns each grid pixel to the mesh cell containing it.
type Mapper struct {
	Mesh *RectangularMesh
	grid *grids.Grid2D

	// CellOf maps slim image-pixel index -> mesh cell index.
	CellOf []int
}

// NewMapper computes the mesh extent from the grid's coordinate range
// and assigns every grid pixel to a cell.
func NewMapper(mesh *RectangularMesh, grid *grids.Grid2D) (*Mapper, error) {
	if grid.Len() < mesh.Cells() {
		return nil, fmt.Errorf("grid has %d pixels for %d mesh cells; inversion is under-constrained",
			grid.Len(), mesh.Cells())
	}
	yMin, yMax := minMax(grid.Y)
	xMin, xMax := minMax(grid.X)
	// Widen slightly so boundary pixels land inside the outer cells.
	eps := 1e-8 + 1e-8*math.Max(yMax-yMin, xMax-xMin)
	yMin, yMax = yMin-eps, yMax+eps
	xMin, xMax = xMin-eps, xMax+eps

	cellOf := make([]int, grid.Len())
	for i := 0; i < grid.Len(); i++ {
		row := int(float64(mesh.Rows) * (yMax - grid.Y[i]) / (yMax - yMin))
		col := int(float64(mesh.Cols) * (grid.X[i] - xMin) / (xMax - xMin))
		if row >= mesh.Rows {
			row = mesh.Rows - 1
		}
		if col >= mesh.Cols {
			col = mesh.Cols - 1
		}
		cellOf[i] = row*mesh.Cols + col
	}
	return &Mapper{Mesh: mesh, grid: grid, CellOf: cellOf}, nil
}

// Inversion is the solved reconstruction.
type Inversion struct {
	Mapper *Mapper

	// Solution holds the reconstructed surface brightness per mesh cell.
	Solution []float64
	// MappedImage is the reconstruction projected back onto the grid.
	MappedImage []float64
	// Regularization is the coefficient lambda the solve used.
	Regularization float64
}

// Solve performs the regularized linear inversion of slim data and
// noise vectors. lambda controls the strength of the gradient
// regularization; it must be positive for the system to stay
// positive-definite when cells receive no pixels.
func Solve(mapper *Mapper, data, noise []float64, lambda float64) (*Inversion, error) {
	n := mapper.grid.Len()
	if len(data) != n || len(noise) != n {
		return nil, fmt.Errorf("data length %d and noise length %d must match grid size %d", len(data), len(noise), n)
	}
	if lambda <= 0 {
		return nil, fmt.Errorf("regularization coefficient must be positive, got %f", lambda)
	}

	cells := mapper.Mesh.Cells()
	curvature := mat.NewSymDense(cells, nil)
	dataVector := make([]float64, cells)

	// M has one unit entry per image pixel, so M^T N^-1 M and
	// M^T N^-1 d accumulate directly without forming M.
	for i := 0; i < n; i++ {
		cell := mapper.CellOf[i]
		w := 1 / (noise[i] * noise[i])
		curvature.SetSym(cell, cell, curvature.At(cell, cell)+w)
		dataVector[cell] += w * data[i]
	}

	addGradientRegularization(curvature, mapper.Mesh, lambda)

	var chol mat.Cholesky
	if ok := chol.Factorize(curvature); !ok {
		return nil, fmt.Errorf("inversion curvature matrix is not positive definite")
	}
	solution := mat.NewVecDense(cells, nil)
	if err := chol.SolveVecTo(solution, mat.NewVecDense(cells, dataVector)); err != nil {
		return nil, fmt.Errorf("inversion solve failed: %w", err)
	}

	inv := &Inversion{
		Mapper:         mapper,
		Solution:       make([]float64, cells),
		MappedImage:    make([]float64, n),
		Regularization: lambda,
	}
	for c := 0; c < cells; c++ {
		inv.Solution[c] = solution.AtVec(c)
	}
	for i := 0; i < n; i++ {
		inv.MappedImage[i] = inv.Solution[mapper.CellOf[i]]
	}
	return inv, nil
}

// addGradientRegularization adds lambda times the mesh graph Laplacian,
// penalizing differences between 4-connected neighbor cells.
func addGradientRegularization(curvature *mat.SymDense, mesh *RectangularMesh, lambda float64) {
	for r := 0; r < mesh.Rows; r++ {
		for c := 0; c < mesh.Cols; c++ {
			i := r*mesh.Cols + c
			if c+1 < mesh.Cols {
				j := i + 1
				coupleCells(curvature, i, j, lambda)
			}
			if r+1 < mesh.Rows {
				j := i + mesh.Cols
				coupleCells(curvature, i, j, lambda)
			}
		}
	}
}

func coupleCells(curvature *mat.SymDense, i, j int, lambda float64) {
	curvature.SetSym(i, i, curvature.At(i, i)+lambda)
	curvature.SetSym(j, j, curvature.At(j, j)+lambda)
	curvature.SetSym(i, j, curvature.At(i, j)-lambda)
}

func minMax(values []float64) (lo, hi float64) {
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
