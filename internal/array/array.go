// Package array provides the flat 2D numeric containers the modeling
// pipeline is built on: images, noise maps and convolution kernels,
// each tagged with the angular size of a pixel.
package array

import (
	"fmt"
	"math"
)

// Array2D is a row-major 2D array of float64 values with an associated
// pixel scale in arcseconds per pixel. Values are addressed either by
// (row, col) or by flat index via Idx.
type Array2D struct {
	Rows       int
	Cols       int
	PixelScale float64
	Values     []float64
}

// New returns a zero-filled Array2D with the given shape and pixel scale.
func New(rows, cols int, pixelScale float64) *Array2D {
	return &Array2D{
		Rows:       rows,
		Cols:       cols,
		PixelScale: pixelScale,
		Values:     make([]float64, rows*cols),
	}
}

// Full returns an Array2D with every value set to fill.
func Full(rows, cols int, pixelScale, fill float64) *Array2D {
	a := New(rows, cols, pixelScale)
	for i := range a.Values {
		a.Values[i] = fill
	}
	return a
}

// FromValues wraps an existing value slice. The slice is retained, not
// copied, and must have length rows*cols.
func FromValues(rows, cols int, pixelScale float64, values []float64) (*Array2D, error) {
	if len(values) != rows*cols {
		return nil, fmt.Errorf("array values length %d does not match shape %dx%d", len(values), rows, cols)
	}
	return &Array2D{Rows: rows, Cols: cols, PixelScale: pixelScale, Values: values}, nil
}

// Idx converts a (row, col) pair to a flat index into Values.
func (a *Array2D) Idx(row, col int) int { return row*a.Cols + col }

// At returns the value at (row, col).
func (a *Array2D) At(row, col int) float64 { return a.Values[a.Idx(row, col)] }

// Set stores v at (row, col).
func (a *Array2D) Set(row, col int, v float64) { a.Values[a.Idx(row, col)] = v }

// Copy returns a deep copy of the array.
func (a *Array2D) Copy() *Array2D {
	out := New(a.Rows, a.Cols, a.PixelScale)
	copy(out.Values, a.Values)
	return out
}

// SameShape reports whether b has the same dimensions and pixel scale.
func (a *Array2D) SameShape(b *Array2D) bool {
	return a.Rows == b.Rows && a.Cols == b.Cols && a.PixelScale == b.PixelScale
}

// Sum returns the sum of all values.
func (a *Array2D) Sum() float64 {
	var s float64
	for _, v := range a.Values {
		s += v
	}
	return s
}

// Max returns the largest value, or 0 for an empty array.
func (a *Array2D) Max() float64 {
	if len(a.Values) == 0 {
		return 0
	}
	m := a.Values[0]
	for _, v := range a.Values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Kernel2D is a convolution kernel. Kernels must have odd dimensions so
// they have a well-defined central pixel, and are normalized to unit sum
// before use so convolution preserves total flux.
type Kernel2D struct {
	Array2D
}

// NewKernel validates the shape and wraps the values in a Kernel2D.
// The kernel is not normalized; call Normalized before convolving.
func NewKernel(rows, cols int, pixelScale float64, values []float64) (*Kernel2D, error) {
	if rows%2 == 0 || cols%2 == 0 {
		return nil, fmt.Errorf("kernel dimensions must be odd, got %dx%d", rows, cols)
	}
	a, err := FromValues(rows, cols, pixelScale, values)
	if err != nil {
		return nil, err
	}
	return &Kernel2D{Array2D: *a}, nil
}

// DeltaKernel returns a size x size kernel with all flux in the central
// pixel. Convolving with it is the identity.
func DeltaKernel(size int, pixelScale float64) (*Kernel2D, error) {
	values := make([]float64, size*size)
	if size%2 == 1 {
		values[(size/2)*size+size/2] = 1
	}
	return NewKernel(size, size, pixelScale, values)
}

// GaussianKernel returns a normalized Gaussian kernel with the given
// standard deviation in pixels.
func GaussianKernel(size int, pixelScale, sigmaPixels float64) (*Kernel2D, error) {
	if sigmaPixels <= 0 {
		return nil, fmt.Errorf("kernel sigma must be positive, got %f", sigmaPixels)
	}
	values := make([]float64, size*size)
	c := size / 2
	for r := 0; r < size; r++ {
		for col := 0; col < size; col++ {
			dy := float64(r - c)
			dx := float64(col - c)
			values[r*size+col] = math.Exp(-(dy*dy + dx*dx) / (2 * sigmaPixels * sigmaPixels))
		}
	}
	k, err := NewKernel(size, size, pixelScale, values)
	if err != nil {
		return nil, err
	}
	return k.Normalized()
}

// Normalized returns a copy of the kernel rescaled to unit sum.
// A kernel whose values sum to zero cannot be normalized.
func (k *Kernel2D) Normalized() (*Kernel2D, error) {
	s := k.Sum()
	if s == 0 {
		return nil, fmt.Errorf("cannot normalize kernel with zero sum")
	}
	out := &Kernel2D{Array2D: *k.Copy()}
	for i := range out.Values {
		out.Values[i] /= s
	}
	return out, nil
}
