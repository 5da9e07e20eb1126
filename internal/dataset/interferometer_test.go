package dataset

import (
	"testing"

	"github.com/arcfield-data/galaxy.report/internal/fsutil"
	"github.com/arcfield-data/galaxy.report/internal/testutil"
)

func TestNewInterferometerValidation(t *testing.T) {
	vis := []complex128{1 + 2i, 3 - 1i}
	noise := []float64{0.1, 0.1}
	uv := [][2]float64{{1e5, 0}, {0, 1e5}}

	if _, err := NewInterferometer(nil, nil, nil); err == nil {
		t.Fatal("empty dataset accepted")
	}
	if _, err := NewInterferometer(vis, noise[:1], uv); err == nil {
		t.Fatal("length mismatch accepted")
	}
	if _, err := NewInterferometer(vis, []float64{0.1, 0}, uv); err == nil {
		t.Fatal("non-positive noise accepted")
	}

	d, err := NewInterferometer(vis, noise, uv)
	testutil.AssertNoError(t, err)
	if len(d.Visibilities) != 2 {
		t.Fatalf("visibility count = %d, want 2", len(d.Visibilities))
	}
}

func TestInterferometerCSVRoundTrip(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	d, err := NewInterferometer(
		[]complex128{1.5 - 0.5i, -2 + 3i},
		[]float64{0.2, 0.3},
		[][2]float64{{1e5, -5e4}, {2e5, 8e4}},
	)
	testutil.AssertNoError(t, err)

	testutil.AssertNoError(t, WriteInterferometer(fs, d, "vis.csv"))

	back, err := LoadInterferometer(fs, "vis.csv")
	testutil.AssertNoError(t, err)
	for i := range d.Visibilities {
		testutil.AssertClose(t, real(back.Visibilities[i]), real(d.Visibilities[i]), 1e-12)
		testutil.AssertClose(t, imag(back.Visibilities[i]), imag(d.Visibilities[i]), 1e-12)
		testutil.AssertClose(t, back.NoiseMap[i], d.NoiseMap[i], 1e-12)
		testutil.AssertClose(t, back.UVWavelengths[i][0], d.UVWavelengths[i][0], 1e-12)
	}
}

func TestLoadInterferometerRejectsWrongFieldCount(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	testutil.AssertNoError(t, fs.WriteFile("bad.csv", []byte("1,2,3\n"), 0644))
	_, err := LoadInterferometer(fs, "bad.csv")
	testutil.AssertError(t, err)
}
