package array

import (
	"strings"
	"testing"

	"github.com/arcfield-data/galaxy.report/internal/fsutil"
	"github.com/arcfield-data/galaxy.report/internal/testutil"
)

func TestFromValuesRejectsWrongLength(t *testing.T) {
	_, err := FromValues(2, 3, 0.1, []float64{1, 2, 3})
	testutil.AssertError(t, err)
}

func TestIndexing(t *testing.T) {
	a := New(3, 4, 0.1)
	a.Set(1, 2, 7.5)
	if got := a.At(1, 2); got != 7.5 {
		t.Fatalf("At(1,2) = %v, want 7.5", got)
	}
	if got := a.Values[a.Idx(1, 2)]; got != 7.5 {
		t.Fatalf("flat index lookup = %v, want 7.5", got)
	}
}

func TestCopyIsDeep(t *testing.T) {
	a := Full(2, 2, 0.1, 1.0)
	b := a.Copy()
	b.Set(0, 0, 99)
	if a.At(0, 0) != 1.0 {
		t.Fatal("copy mutated the original")
	}
}

func TestSumAndMax(t *testing.T) {
	a, err := FromValues(2, 2, 0.1, []float64{1, 2, 3, -4})
	testutil.AssertNoError(t, err)
	testutil.AssertClose(t, a.Sum(), 2.0, 1e-12)
	testutil.AssertClose(t, a.Max(), 3.0, 1e-12)
}

func TestKernelRejectsEvenDimensions(t *testing.T) {
	_, err := NewKernel(2, 3, 0.1, make([]float64, 6))
	testutil.AssertError(t, err)
}

func TestDeltaKernelCentre(t *testing.T) {
	k, err := DeltaKernel(3, 0.1)
	testutil.AssertNoError(t, err)
	if k.At(1, 1) != 1 {
		t.Fatalf("central pixel = %v, want 1", k.At(1, 1))
	}
	testutil.AssertClose(t, k.Sum(), 1.0, 1e-12)
}

func TestGaussianKernelIsNormalized(t *testing.T) {
	k, err := GaussianKernel(11, 0.1, 1.5)
	testutil.AssertNoError(t, err)
	testutil.AssertClose(t, k.Sum(), 1.0, 1e-10)
	// symmetric about the centre
	testutil.AssertClose(t, k.At(5, 3), k.At(5, 7), 1e-12)
	testutil.AssertClose(t, k.At(3, 5), k.At(7, 5), 1e-12)
}

func TestNormalizedRejectsZeroSum(t *testing.T) {
	k, err := NewKernel(1, 1, 0.1, []float64{0})
	testutil.AssertNoError(t, err)
	_, err = k.Normalized()
	testutil.AssertError(t, err)
}

func TestCSVRoundTrip(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	a, err := FromValues(2, 3, 0.05, []float64{1, 2, 3, 4.5, -1, 0})
	testutil.AssertNoError(t, err)

	testutil.AssertNoError(t, WriteCSV(fs, "out/image.csv", a))

	b, err := ReadCSV(fs, "out/image.csv", 0.05)
	testutil.AssertNoError(t, err)
	if !a.SameShape(b) {
		t.Fatalf("shape %dx%d@%f, want %dx%d@%f", b.Rows, b.Cols, b.PixelScale, a.Rows, a.Cols, a.PixelScale)
	}
	testutil.AssertSliceClose(t, b.Values, a.Values, 1e-12)
}

func TestReadCSVRejectsRaggedRows(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	testutil.AssertNoError(t, fs.WriteFile("bad.csv", []byte("1,2,3\n4,5\n"), 0644))
	_, err := ReadCSV(fs, "bad.csv", 0.1)
	testutil.AssertError(t, err)
}

func TestReadCSVRejectsNonNumeric(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	testutil.AssertNoError(t, fs.WriteFile("bad.csv", []byte("1,x\n2,3\n"), 0644))
	_, err := ReadCSV(fs, "bad.csv", 0.1)
	if err == nil || !strings.Contains(err.Error(), "bad.csv") {
		t.Fatalf("expected parse error naming the file, got %v", err)
	}
}

func TestReadCSVRejectsEmptyFile(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	testutil.AssertNoError(t, fs.WriteFile("empty.csv", []byte(""), 0644))
	_, err := ReadCSV(fs, "empty.csv", 0.1)
	testutil.AssertError(t, err)
}
