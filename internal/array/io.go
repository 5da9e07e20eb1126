package array

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/arcfield-data/galaxy.report/internal/fsutil"
)

// ReadCSV loads an Array2D from a headerless CSV file, one row per
// line. The pixel scale is supplied by the caller since CSV carries no
// geometry metadata.
func ReadCSV(fs fsutil.FileSystem, path string, pixelScale float64) (*Array2D, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open array file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var values []float64
	rows := 0
	cols := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if cols == 0 {
			cols = len(record)
		} else if len(record) != cols {
			return nil, fmt.Errorf("ragged row %d in %s: %d fields, want %d", rows, path, len(record), cols)
		}
		for _, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("bad value %q in %s row %d: %w", field, path, rows, err)
			}
			values = append(values, v)
		}
		rows++
	}
	if rows == 0 {
		return nil, fmt.Errorf("array file %s is empty", path)
	}
	return FromValues(rows, cols, pixelScale, values)
}

// WriteCSV writes the array as headerless CSV, one row per line.
func WriteCSV(fs fsutil.FileSystem, path string, a *Array2D) error {
	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create array file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	record := make([]string, a.Cols)
	for r := 0; r < a.Rows; r++ {
		for c := 0; c < a.Cols; c++ {
			record[c] = strconv.FormatFloat(a.At(r, c), 'g', -1, 64)
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r, err)
		}
	}
	w.Flush()
	return w.Error()
}
