// Package galaxy composes light profiles into galaxies and galaxies
// into planes, the model objects the renderer evaluates.
package galaxy

import (
	"fmt"
	"sort"

	"github.com/arcfield-data/galaxy.report/internal/grids"
	"github.com/arcfield-data/galaxy.report/internal/profiles"
)

// Galaxy is a redshift plus a set of named light profiles. A galaxy
// with no profiles renders a zero image.
type Galaxy struct {
	Redshift float64
	Profiles map[string]profiles.LightProfile
}

// New constructs a galaxy. The profiles map may be nil.
func New(redshift float64, profs map[string]profiles.LightProfile) (*Galaxy, error) {
	if redshift < 0 {
		return nil, fmt.Errorf("redshift must be non-negative, got %f", redshift)
	}
	if profs == nil {
		profs = map[string]profiles.LightProfile{}
	}
	return &Galaxy{Redshift: redshift, Profiles: profs}, nil
}

// ProfileNames returns the profile names in sorted order so image
// decompositions are deterministic.
func (g *Galaxy) ProfileNames() []string {
	names := make([]string, 0, len(g.Profiles))
	for name := range g.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Image renders the galaxy on a grid as the sum of its profile images.
func (g *Galaxy) Image(grid *grids.Grid2D) []float64 {
	image := make([]float64, grid.Len())
	for _, name := range g.ProfileNames() {
		profileImage := g.Profiles[name].Image(grid)
		for i, v := range profileImage {
			image[i] += v
		}
	}
	return image
}

// Plane is an ordered collection of galaxies evaluated together on a
// shared projection.
type Plane struct {
	Galaxies []*Galaxy
}

// NewPlane rejects empty planes.
func NewPlane(galaxies []*Galaxy) (*Plane, error) {
	if len(galaxies) == 0 {
		return nil, fmt.Errorf("plane requires at least one galaxy")
	}
	for i, g := range galaxies {
		if g == nil {
			return nil, fmt.Errorf("plane galaxy %d is nil", i)
		}
	}
	return &Plane{Galaxies: galaxies}, nil
}

// Image renders the plane on a grid as the sum of its galaxy images.
func (p *Plane) Image(grid *grids.Grid2D) []float64 {
	image := make([]float64, grid.Len())
	for _, g := range p.Galaxies {
		galaxyImage := g.Image(grid)
		for i, v := range galaxyImage {
			image[i] += v
		}
	}
	return image
}

// GalaxyImages renders each galaxy separately, in plane order, so fits
// can be decomposed per galaxy.
func (p *Plane) GalaxyImages(grid *grids.Grid2D) [][]float64 {
	images := make([][]float64, len(p.Galaxies))
	for i, g := range p.Galaxies {
		images[i] = g.Image(grid)
	}
	return images
}
