package grids

import (
	"fmt"
)

// Grid2D is an ordered set of (y, x) coordinate pairs in arcseconds with
// an associated pixel scale. A grid built from a mask holds only the
// unmasked pixel centres ("slim" form); NativeIndex maps each slim entry
// back to its flat position in the full 2D array. Grids are immutable
// once constructed.
type Grid2D struct {
	Rows       int
	Cols       int
	PixelScale float64

	// Y and X hold the coordinates of each grid point, slim-ordered.
	Y []float64
	X []float64

	// NativeIndex maps slim index -> flat native index (row*Cols+col).
	NativeIndex []int

	mask *Mask2D
}

// NewFromShape builds a grid covering every pixel of a rows x cols array.
func NewFromShape(rows, cols int, pixelScale float64) (*Grid2D, error) {
	m, err := NewUnmasked(rows, cols, pixelScale)
	if err != nil {
		return nil, err
	}
	return NewFromMask(m)
}

// NewFromMask builds a grid holding the centres of the mask's unmasked
// pixels, in row-major order.
func NewFromMask(m *Mask2D) (*Grid2D, error) {
	n := m.UnmaskedCount()
	if n == 0 {
		return nil, fmt.Errorf("cannot build grid from fully masked mask")
	}
	g := &Grid2D{
		Rows:        m.Rows,
		Cols:        m.Cols,
		PixelScale:  m.PixelScale,
		Y:           make([]float64, 0, n),
		X:           make([]float64, 0, n),
		NativeIndex: make([]int, 0, n),
		mask:        m,
	}
	for r := 0; r < m.Rows; r++ {
		for c := 0; c < m.Cols; c++ {
			if m.IsMasked(r, c) {
				continue
			}
			y, x := m.PixelCentre(r, c)
			g.Y = append(g.Y, y)
			g.X = append(g.X, x)
			g.NativeIndex = append(g.NativeIndex, m.Idx(r, c))
		}
	}
	return g, nil
}

// Len returns the number of grid points.
func (g *Grid2D) Len() int { return len(g.Y) }

// Mask returns the mask the grid was built from.
func (g *Grid2D) Mask() *Mask2D { return g.mask }

// SameGeometry reports whether two grids share shape, pixel scale and
// point count, which a fit requires of its dataset and model grids.
func (g *Grid2D) SameGeometry(other *Grid2D) bool {
	return g.Rows == other.Rows && g.Cols == other.Cols &&
		g.PixelScale == other.PixelScale && g.Len() == other.Len()
}

// ToNative scatters slim values into a full rows x cols flat array, with
// zeros at masked pixels.
func (g *Grid2D) ToNative(slim []float64) ([]float64, error) {
	if len(slim) != g.Len() {
		return nil, fmt.Errorf("slim length %d does not match grid size %d", len(slim), g.Len())
	}
	native := make([]float64, g.Rows*g.Cols)
	for i, v := range slim {
		native[g.NativeIndex[i]] = v
	}
	return native, nil
}

// FromNative gathers the grid's pixels out of a full flat array.
func (g *Grid2D) FromNative(native []float64) ([]float64, error) {
	if len(native) != g.Rows*g.Cols {
		return nil, fmt.Errorf("native length %d does not match shape %dx%d", len(native), g.Rows, g.Cols)
	}
	slim := make([]float64, g.Len())
	for i, idx := range g.NativeIndex {
		slim[i] = native[idx]
	}
	return slim, nil
}
