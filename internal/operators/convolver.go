// Package operators applies instrument responses to rendered model
// images: PSF convolution for imaging and a direct Fourier transform to
// sampled uv points for interferometry.
package operators

import (
	"fmt"

	"github.com/arcfield-data/galaxy.report/internal/array"
	"github.com/arcfield-data/galaxy.report/internal/grids"
)

// Convolver blurs model images with a point spread function. The kernel
// is renormalized to unit sum at construction so convolution preserves
// flux. Convolution runs over the full native array with zero padding
// at the edges, then results are gathered back to the grid's pixels.
type Convolver struct {
	kernel *array.Kernel2D
	grid   *grids.Grid2D
}

// NewConvolver validates the kernel against the grid and renormalizes it.
func NewConvolver(kernel *array.Kernel2D, grid *grids.Grid2D) (*Convolver, error) {
	if kernel.Rows > grid.Rows || kernel.Cols > grid.Cols {
		return nil, fmt.Errorf("kernel %dx%d larger than grid %dx%d",
			kernel.Rows, kernel.Cols, grid.Rows, grid.Cols)
	}
	normalized, err := kernel.Normalized()
	if err != nil {
		return nil, fmt.Errorf("invalid psf kernel: %w", err)
	}
	return &Convolver{kernel: normalized, grid: grid}, nil
}

// BlurredImage convolves a slim model image with the PSF. The slim
// image is scattered to the native geometry, convolved with zero
// padding, and gathered back to slim order.
func (c *Convolver) BlurredImage(slim []float64) ([]float64, error) {
	native, err := c.grid.ToNative(slim)
	if err != nil {
		return nil, err
	}
	blurred := c.convolveNative(native)
	return c.grid.FromNative(blurred)
}

func (c *Convolver) convolveNative(native []float64) []float64 {
	rows, cols := c.grid.Rows, c.grid.Cols
	kr, kc := c.kernel.Rows, c.kernel.Cols
	hr, hc := kr/2, kc/2

	out := make([]float64, len(native))
	for r := 0; r < rows; r++ {
		for col := 0; col < cols; col++ {
			var sum float64
			for dr := -hr; dr <= hr; dr++ {
				sr := r + dr
				if sr < 0 || sr >= rows {
					continue
				}
				for dc := -hc; dc <= hc; dc++ {
					sc := col + dc
					if sc < 0 || sc >= cols {
						continue
					}
					sum += native[sr*cols+sc] * c.kernel.At(hr-dr, hc-dc)
				}
			}
			out[r*cols+col] = sum
		}
	}
	return out
}
