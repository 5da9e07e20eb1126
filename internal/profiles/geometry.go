// Package profiles implements the parametric light profiles used to
// model galaxy surface brightness: the Sersic family, a cored Sersic
// variant and a Gaussian.
//
// Coordinates follow the (y, x) arcsecond convention of the grids
// package. Ellipticity is parameterized by two elliptical components
// (e1, e2) = (f sin 2phi, f cos 2phi) where f = (1-q)/(1+q) for axis
// ratio q and position angle phi measured counter-clockwise from the
// positive x-axis.
package profiles

import (
	"fmt"
	"math"

	"github.com/arcfield-data/galaxy.report/internal/grids"
)

// Ellipse holds the shared geometry of an elliptical profile.
type Ellipse struct {
	// Centre is the profile centre as (y, x) in arcseconds.
	Centre [2]float64
	// Ell1 and Ell2 are the elliptical components.
	Ell1 float64
	Ell2 float64
}

// AxisRatio returns the minor/major axis ratio q in (0, 1].
func (e Ellipse) AxisRatio() float64 {
	f := math.Hypot(e.Ell1, e.Ell2)
	if f >= 1 {
		f = 0.99999
	}
	return (1 - f) / (1 + f)
}

// Angle returns the position angle phi in radians.
func (e Ellipse) Angle() float64 {
	return 0.5 * math.Atan2(e.Ell1, e.Ell2)
}

// EllipticalRadius maps a (y, x) coordinate to the elliptical radius of
// the isophote through it: coordinates are shifted to the centre,
// rotated into the ellipse frame, and the minor-axis direction is
// stretched by 1/q.
func (e Ellipse) EllipticalRadius(y, x float64) float64 {
	q := e.AxisRatio()
	phi := e.Angle()
	dy := y - e.Centre[0]
	dx := x - e.Centre[1]
	cos := math.Cos(phi)
	sin := math.Sin(phi)
	major := dx*cos + dy*sin
	minor := -dx*sin + dy*cos
	return math.Sqrt(major*major + (minor/q)*(minor/q))
}

// Validate rejects degenerate ellipticities.
func (e Ellipse) Validate() error {
	if f := math.Hypot(e.Ell1, e.Ell2); f >= 1 {
		return fmt.Errorf("elliptical components magnitude %f must be below 1", f)
	}
	return nil
}

// LightProfile is a parametric surface-brightness function. Intensity
// evaluates the radial profile at an elliptical radius in arcseconds;
// Image evaluates the profile over a grid, returning slim-ordered
// values aligned with the grid's points.
type LightProfile interface {
	Intensity(radius float64) float64
	Image(g *grids.Grid2D) []float64
}

// imageFrom evaluates a radial intensity function over a grid through
// the profile's elliptical geometry.
func imageFrom(e Ellipse, g *grids.Grid2D, intensity func(float64) float64) []float64 {
	out := make([]float64, g.Len())
	for i := range out {
		out[i] = intensity(e.EllipticalRadius(g.Y[i], g.X[i]))
	}
	return out
}
