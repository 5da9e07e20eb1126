// Package grids provides the pixel geometry of an observation: boolean
// masks selecting the region of interest and the arcsecond coordinate
// grids model images are evaluated on.
package grids

import (
	"fmt"
	"math"
)

// Mask2D is a boolean field over a 2D pixel geometry. An entry of true
// means the pixel is masked OUT and excluded from fitting. The mask
// shares its shape and pixel scale with the arrays it masks.
type Mask2D struct {
	Rows       int
	Cols       int
	PixelScale float64
	masked     []bool
}

// NewUnmasked returns a mask with every pixel included.
func NewUnmasked(rows, cols int, pixelScale float64) (*Mask2D, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("mask shape must be positive, got %dx%d", rows, cols)
	}
	if pixelScale <= 0 {
		return nil, fmt.Errorf("pixel scale must be positive, got %f", pixelScale)
	}
	return &Mask2D{
		Rows:       rows,
		Cols:       cols,
		PixelScale: pixelScale,
		masked:     make([]bool, rows*cols),
	}, nil
}

// NewCircular returns a mask that includes only pixels within radius
// arcseconds of centre (y, x in arcseconds from the grid centre).
func NewCircular(rows, cols int, pixelScale, radius float64, centre [2]float64) (*Mask2D, error) {
	return newRadial(rows, cols, pixelScale, 0, radius, centre)
}

// NewAnnular returns a mask that includes only pixels whose radius from
// centre lies in [innerRadius, outerRadius).
func NewAnnular(rows, cols int, pixelScale, innerRadius, outerRadius float64, centre [2]float64) (*Mask2D, error) {
	if innerRadius >= outerRadius {
		return nil, fmt.Errorf("annulus inner radius %f must be less than outer radius %f", innerRadius, outerRadius)
	}
	return newRadial(rows, cols, pixelScale, innerRadius, outerRadius, centre)
}

func newRadial(rows, cols int, pixelScale, inner, outer float64, centre [2]float64) (*Mask2D, error) {
	m, err := NewUnmasked(rows, cols, pixelScale)
	if err != nil {
		return nil, err
	}
	if outer <= 0 {
		return nil, fmt.Errorf("mask radius must be positive, got %f", outer)
	}
	count := 0
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			y, x := m.PixelCentre(r, c)
			dy := y - centre[0]
			dx := x - centre[1]
			radius := math.Sqrt(dy*dy + dx*dx)
			if radius < inner || radius >= outer {
				m.masked[m.Idx(r, c)] = true
			} else {
				count++
			}
		}
	}
	if count == 0 {
		return nil, fmt.Errorf("mask excludes every pixel (radius %f, scale %f)", outer, pixelScale)
	}
	return m, nil
}

// Idx converts a (row, col) pair to a flat index.
func (m *Mask2D) Idx(row, col int) int { return row*m.Cols + col }

// IsMasked reports whether the pixel at (row, col) is excluded.
func (m *Mask2D) IsMasked(row, col int) bool { return m.masked[m.Idx(row, col)] }

// SetMasked marks the pixel at (row, col) as excluded or included.
func (m *Mask2D) SetMasked(row, col int, masked bool) { m.masked[m.Idx(row, col)] = masked }

// UnmaskedCount returns the number of pixels participating in fitting.
func (m *Mask2D) UnmaskedCount() int {
	n := 0
	for _, excluded := range m.masked {
		if !excluded {
			n++
		}
	}
	return n
}

// PixelCentre returns the (y, x) arcsecond coordinates of the centre of
// the pixel at (row, col). The grid origin sits at the centre of the
// array, y increases upward (decreasing row), x increases with column.
func (m *Mask2D) PixelCentre(row, col int) (y, x float64) {
	cy := (float64(m.Rows) - 1) / 2
	cx := (float64(m.Cols) - 1) / 2
	y = (cy - float64(row)) * m.PixelScale
	x = (float64(col) - cx) * m.PixelScale
	return y, x
}
