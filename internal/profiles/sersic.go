package profiles

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mathext"

	"github.com/arcfield-data/galaxy.report/internal/grids"
)

// Sersic is the general Sersic profile
//
//	I(r) = I_eff * exp(-k * ((r/R_eff)^(1/n) - 1))
//
// where k is chosen so R_eff encloses half the total light. Intensity
// is the surface brightness at the effective radius.
type Sersic struct {
	Ellipse
	Intensity0      float64 // surface brightness at the effective radius
	EffectiveRadius float64 // arcseconds
	Index           float64 // Sersic index n
}

// NewSersic validates and constructs a Sersic profile.
func NewSersic(e Ellipse, intensity, effectiveRadius, index float64) (*Sersic, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if intensity < 0 {
		return nil, fmt.Errorf("sersic intensity must be non-negative, got %f", intensity)
	}
	if effectiveRadius <= 0 {
		return nil, fmt.Errorf("sersic effective radius must be positive, got %f", effectiveRadius)
	}
	if index < 0.36 || index > 10 {
		return nil, fmt.Errorf("sersic index must be in [0.36, 10], got %f", index)
	}
	return &Sersic{Ellipse: e, Intensity0: intensity, EffectiveRadius: effectiveRadius, Index: index}, nil
}

// NewExponential returns a Sersic profile with index fixed at 1, the
// standard model of a galaxy disk.
func NewExponential(e Ellipse, intensity, effectiveRadius float64) (*Sersic, error) {
	return NewSersic(e, intensity, effectiveRadius, 1)
}

// NewDevVaucouleurs returns a Sersic profile with index fixed at 4, the
// standard model of a galaxy bulge.
func NewDevVaucouleurs(e Ellipse, intensity, effectiveRadius float64) (*Sersic, error) {
	return NewSersic(e, intensity, effectiveRadius, 4)
}

// sersicConstant returns the constant k(n) relating the effective
// radius to the half-light radius, via the standard series expansion.
func sersicConstant(n float64) float64 {
	return 2*n - 1.0/3.0 + 4.0/(405*n) + 46.0/(25515*n*n) +
		131.0/(1148175*n*n*n) - 2194697.0/(30690717750*n*n*n*n)
}

// Intensity evaluates the radial profile at an elliptical radius.
func (s *Sersic) Intensity(radius float64) float64 {
	k := sersicConstant(s.Index)
	return s.Intensity0 * math.Exp(-k*(math.Pow(radius/s.EffectiveRadius, 1/s.Index)-1))
}

// Image evaluates the profile over a grid, slim-ordered.
func (s *Sersic) Image(g *grids.Grid2D) []float64 {
	return imageFrom(s.Ellipse, g, s.Intensity)
}

// LuminosityWithin returns the total light enclosed inside the
// elliptical isophote of the given radius, from the analytic Sersic
// integral using the regularized incomplete gamma function.
func (s *Sersic) LuminosityWithin(radius float64) float64 {
	n := s.Index
	k := sersicConstant(n)
	x := k * math.Pow(radius/s.EffectiveRadius, 1/n)
	total := s.Intensity0 * s.EffectiveRadius * s.EffectiveRadius * 2 * math.Pi * n *
		math.Exp(k) / math.Pow(k, 2*n) * math.Gamma(2*n) * s.AxisRatio()
	return total * mathext.GammaIncReg(2*n, x)
}

// CoreSersic flattens the inner Sersic cusp below a core radius:
//
//	I(r) = I' * (1 + (r_c/r)^alpha)^(gamma/alpha)
//	          * exp(-k * ((r^alpha + r_c^alpha) / R_eff^alpha)^(1/(alpha*n)))
type CoreSersic struct {
	Sersic
	CoreRadius float64 // arcseconds
	Gamma      float64 // inner power-law slope
	Alpha      float64 // sharpness of the transition
}

// NewCoreSersic validates and constructs a cored Sersic profile.
func NewCoreSersic(e Ellipse, intensity, effectiveRadius, index, coreRadius, gamma, alpha float64) (*CoreSersic, error) {
	s, err := NewSersic(e, intensity, effectiveRadius, index)
	if err != nil {
		return nil, err
	}
	if coreRadius <= 0 {
		return nil, fmt.Errorf("core radius must be positive, got %f", coreRadius)
	}
	if alpha <= 0 {
		return nil, fmt.Errorf("core transition alpha must be positive, got %f", alpha)
	}
	return &CoreSersic{Sersic: *s, CoreRadius: coreRadius, Gamma: gamma, Alpha: alpha}, nil
}

// Intensity evaluates the cored radial profile.
func (c *CoreSersic) Intensity(radius float64) float64 {
	if radius <= 0 {
		radius = 1e-8
	}
	n := c.Index
	k := sersicConstant(n)
	inner := math.Pow(1+math.Pow(c.CoreRadius/radius, c.Alpha), c.Gamma/c.Alpha)
	outer := math.Exp(-k * math.Pow(
		(math.Pow(radius, c.Alpha)+math.Pow(c.CoreRadius, c.Alpha))/math.Pow(c.EffectiveRadius, c.Alpha),
		1/(c.Alpha*n)))
	return c.Intensity0 * inner * outer
}

// Image evaluates the profile over a grid, slim-ordered.
func (c *CoreSersic) Image(g *grids.Grid2D) []float64 {
	return imageFrom(c.Ellipse, g, c.Intensity)
}
