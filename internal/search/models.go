package search

import (
	"github.com/arcfield-data/galaxy.report/internal/galaxy"
	"github.com/arcfield-data/galaxy.report/internal/profiles"
)

// SersicModel returns the standard seven-parameter model of a single
// galaxy with one elliptical Sersic light profile at a fixed redshift.
// maxRadius bounds the centre and effective radius to the field of view.
func SersicModel(redshift, maxRadius, maxIntensity float64) *Model {
	return &Model{
		Parameters: []Parameter{
			{Name: "centre_y", Lower: -maxRadius, Upper: maxRadius},
			{Name: "centre_x", Lower: -maxRadius, Upper: maxRadius},
			{Name: "ell_1", Lower: -0.8, Upper: 0.8},
			{Name: "ell_2", Lower: -0.8, Upper: 0.8},
			{Name: "intensity", Lower: 0, Upper: maxIntensity},
			{Name: "effective_radius", Lower: 1e-3, Upper: maxRadius},
			{Name: "sersic_index", Lower: 0.5, Upper: 8},
		},
		Build: func(x []float64) (*galaxy.Plane, error) {
			profile, err := profiles.NewSersic(profiles.Ellipse{
				Centre: [2]float64{x[0], x[1]},
				Ell1:   x[2],
				Ell2:   x[3],
			}, x[4], x[5], x[6])
			if err != nil {
				return nil, err
			}
			g, err := galaxy.New(redshift, map[string]profiles.LightProfile{"sersic": profile})
			if err != nil {
				return nil, err
			}
			return galaxy.NewPlane([]*galaxy.Galaxy{g})
		},
	}
}

// GaussianModel returns a six-parameter model of a single galaxy with
// one elliptical Gaussian light profile, the cheap model used for quick
// centering runs.
func GaussianModel(redshift, maxRadius, maxIntensity float64) *Model {
	return &Model{
		Parameters: []Parameter{
			{Name: "centre_y", Lower: -maxRadius, Upper: maxRadius},
			{Name: "centre_x", Lower: -maxRadius, Upper: maxRadius},
			{Name: "ell_1", Lower: -0.8, Upper: 0.8},
			{Name: "ell_2", Lower: -0.8, Upper: 0.8},
			{Name: "intensity", Lower: 0, Upper: maxIntensity},
			{Name: "sigma", Lower: 1e-3, Upper: maxRadius},
		},
		Build: func(x []float64) (*galaxy.Plane, error) {
			profile, err := profiles.NewGaussian(profiles.Ellipse{
				Centre: [2]float64{x[0], x[1]},
				Ell1:   x[2],
				Ell2:   x[3],
			}, x[4], x[5])
			if err != nil {
				return nil, err
			}
			g, err := galaxy.New(redshift, map[string]profiles.LightProfile{"gaussian": profile})
			if err != nil {
				return nil, err
			}
			return galaxy.NewPlane([]*galaxy.Galaxy{g})
		},
	}
}
