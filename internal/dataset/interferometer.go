package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/arcfield-data/galaxy.report/internal/fsutil"
)

// Interferometer is an interferometric observation in Fourier space:
// complex visibilities, their per-visibility Gaussian noise (applied to
// both real and imaginary parts) and the uv coordinates in wavelengths.
type Interferometer struct {
	Visibilities  []complex128
	NoiseMap      []float64
	UVWavelengths [][2]float64
}

// NewInterferometer validates lengths and noise positivity.
func NewInterferometer(visibilities []complex128, noiseMap []float64, uvWavelengths [][2]float64) (*Interferometer, error) {
	if len(visibilities) == 0 {
		return nil, fmt.Errorf("interferometer dataset requires at least one visibility")
	}
	if len(noiseMap) != len(visibilities) || len(uvWavelengths) != len(visibilities) {
		return nil, fmt.Errorf("visibility count %d, noise count %d and uv count %d must match",
			len(visibilities), len(noiseMap), len(uvWavelengths))
	}
	for i, v := range noiseMap {
		if v <= 0 {
			return nil, fmt.Errorf("visibility noise at index %d must be positive, got %f", i, v)
		}
	}
	return &Interferometer{Visibilities: visibilities, NoiseMap: noiseMap, UVWavelengths: uvWavelengths}, nil
}

// LoadInterferometer reads an interferometer dataset from a single CSV
// with one visibility per row: u, v, real, imag, noise.
func LoadInterferometer(fs fsutil.FileSystem, path string) (*Interferometer, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open visibilities file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	var (
		vis   []complex128
		noise []float64
		uv    [][2]float64
	)
	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if len(record) != 5 {
			return nil, fmt.Errorf("row %d in %s has %d fields, want 5 (u,v,real,imag,noise)", row, path, len(record))
		}
		fields := make([]float64, 5)
		for i, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("bad value %q in %s row %d: %w", field, path, row, err)
			}
			fields[i] = v
		}
		uv = append(uv, [2]float64{fields[0], fields[1]})
		vis = append(vis, complex(fields[2], fields[3]))
		noise = append(noise, fields[4])
		row++
	}
	return NewInterferometer(vis, noise, uv)
}

// WriteInterferometer writes the dataset in the format LoadInterferometer reads.
func WriteInterferometer(fs fsutil.FileSystem, d *Interferometer, path string) error {
	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create visibilities file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for i := range d.Visibilities {
		record := []string{
			strconv.FormatFloat(d.UVWavelengths[i][0], 'g', -1, 64),
			strconv.FormatFloat(d.UVWavelengths[i][1], 'g', -1, 64),
			strconv.FormatFloat(real(d.Visibilities[i]), 'g', -1, 64),
			strconv.FormatFloat(imag(d.Visibilities[i]), 'g', -1, 64),
			strconv.FormatFloat(d.NoiseMap[i], 'g', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write visibility %d: %w", i, err)
		}
	}
	w.Flush()
	return w.Error()
}
