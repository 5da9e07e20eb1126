package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrDatasetNotFound is returned when a named dataset is not registered.
var ErrDatasetNotFound = errors.New("dataset not found")

// Dataset is a registered observation's file locations. The datasets
// table arrives via migrations rather than the base schema.
type Dataset struct {
	Name       string  `json:"name"`
	ImagePath  string  `json:"image_path"`
	NoisePath  string  `json:"noise_path"`
	PSFPath    string  `json:"psf_path"`
	PixelScale float64 `json:"pixel_scale"`
}

// RegisterDataset inserts or replaces a dataset registration.
func (s *Store) RegisterDataset(d Dataset) error {
	if d.PixelScale <= 0 {
		return fmt.Errorf("dataset %s pixel scale must be positive, got %f", d.Name, d.PixelScale)
	}
	_, err := s.Exec(
		`INSERT OR REPLACE INTO datasets (name, image_path, noise_path, psf_path, pixel_scale)
		 VALUES (?, ?, ?, ?, ?)`,
		d.Name, d.ImagePath, d.NoisePath, d.PSFPath, d.PixelScale,
	)
	if err != nil {
		return fmt.Errorf("failed to register dataset %s: %w", d.Name, err)
	}
	return nil
}

// DatasetByName looks up a registered dataset.
func (s *Store) DatasetByName(name string) (*Dataset, error) {
	var d Dataset
	err := s.QueryRow(
		`SELECT name, image_path, noise_path, psf_path, pixel_scale FROM datasets WHERE name = ?`, name,
	).Scan(&d.Name, &d.ImagePath, &d.NoisePath, &d.PSFPath, &d.PixelScale)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Datasets lists all registered datasets by name.
func (s *Store) Datasets() ([]Dataset, error) {
	rows, err := s.Query(`SELECT name, image_path, noise_path, psf_path, pixel_scale FROM datasets ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var datasets []Dataset
	for rows.Next() {
		var d Dataset
		if err := rows.Scan(&d.Name, &d.ImagePath, &d.NoisePath, &d.PSFPath, &d.PixelScale); err != nil {
			return nil, err
		}
		datasets = append(datasets, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return datasets, nil
}
