// Package config loads the JSON settings file controlling fitting,
// simulation and search behavior.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical settings defaults file.
const DefaultConfigPath = "config/settings.defaults.json"

// Settings represents the root configuration. The schema matches the
// /api/settings endpoint so the same JSON serves startup configuration
// and runtime updates. Fields omitted from the JSON retain their
// defaults, so partial configs are safe.
type Settings struct {
	// Fitting params
	MaskRadiusArcsec          *float64 `json:"mask_radius_arcsec,omitempty"`
	RegularizationCoefficient *float64 `json:"regularization_coefficient,omitempty"`

	// Search params
	SearchStarts        *int    `json:"search_starts,omitempty"`
	SearchMaxIterations *int    `json:"search_max_iterations,omitempty"`
	SearchWorkers       *int    `json:"search_workers,omitempty"`
	SearchSeed          *uint64 `json:"search_seed,omitempty"`

	// Simulation params
	ExposureTimeSeconds *float64 `json:"exposure_time_seconds,omitempty"`
	BackgroundSkyLevel  *float64 `json:"background_sky_level,omitempty"`
	GaussianNoiseSigma  *float64 `json:"gaussian_noise_sigma,omitempty"`
	NoiseSeed           *uint64  `json:"noise_seed,omitempty"`
}

// EmptySettings returns a Settings with all fields unset.
// Use Load to read actual values from a settings file.
func EmptySettings() *Settings {
	return &Settings{}
}

// Load reads Settings from a JSON file. The file must have a .json
// extension and stay under the max file size.
func Load(path string) (*Settings, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptySettings()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *Settings) Validate() error {
	if c.MaskRadiusArcsec != nil && *c.MaskRadiusArcsec <= 0 {
		return fmt.Errorf("mask_radius_arcsec must be positive, got %f", *c.MaskRadiusArcsec)
	}
	if c.RegularizationCoefficient != nil && *c.RegularizationCoefficient <= 0 {
		return fmt.Errorf("regularization_coefficient must be positive, got %f", *c.RegularizationCoefficient)
	}
	if c.SearchStarts != nil && *c.SearchStarts <= 0 {
		return fmt.Errorf("search_starts must be positive, got %d", *c.SearchStarts)
	}
	if c.SearchMaxIterations != nil && *c.SearchMaxIterations <= 0 {
		return fmt.Errorf("search_max_iterations must be positive, got %d", *c.SearchMaxIterations)
	}
	if c.SearchWorkers != nil && *c.SearchWorkers <= 0 {
		return fmt.Errorf("search_workers must be positive, got %d", *c.SearchWorkers)
	}
	if c.ExposureTimeSeconds != nil && *c.ExposureTimeSeconds <= 0 {
		return fmt.Errorf("exposure_time_seconds must be positive, got %f", *c.ExposureTimeSeconds)
	}
	if c.BackgroundSkyLevel != nil && *c.BackgroundSkyLevel < 0 {
		return fmt.Errorf("background_sky_level must be non-negative, got %f", *c.BackgroundSkyLevel)
	}
	if c.GaussianNoiseSigma != nil && *c.GaussianNoiseSigma < 0 {
		return fmt.Errorf("gaussian_noise_sigma must be non-negative, got %f", *c.GaussianNoiseSigma)
	}
	return nil
}

// GetMaskRadiusArcsec returns the mask_radius_arcsec value or the default.
func (c *Settings) GetMaskRadiusArcsec() float64 {
	if c.MaskRadiusArcsec == nil {
		return 3.0
	}
	return *c.MaskRadiusArcsec
}

// GetRegularizationCoefficient returns the regularization_coefficient value or the default.
func (c *Settings) GetRegularizationCoefficient() float64 {
	if c.RegularizationCoefficient == nil {
		return 1.0
	}
	return *c.RegularizationCoefficient
}

// GetSearchStarts returns the search_starts value or the default.
func (c *Settings) GetSearchStarts() int {
	if c.SearchStarts == nil {
		return 8
	}
	return *c.SearchStarts
}

// GetSearchMaxIterations returns the search_max_iterations value or the default.
func (c *Settings) GetSearchMaxIterations() int {
	if c.SearchMaxIterations == nil {
		return 500
	}
	return *c.SearchMaxIterations
}

// GetSearchWorkers returns the search_workers value or the default.
func (c *Settings) GetSearchWorkers() int {
	if c.SearchWorkers == nil {
		return 4
	}
	return *c.SearchWorkers
}

// GetSearchSeed returns the search_seed value or the default.
func (c *Settings) GetSearchSeed() uint64 {
	if c.SearchSeed == nil {
		return 1
	}
	return *c.SearchSeed
}

// GetExposureTimeSeconds returns the exposure_time_seconds value or the default.
func (c *Settings) GetExposureTimeSeconds() float64 {
	if c.ExposureTimeSeconds == nil {
		return 300
	}
	return *c.ExposureTimeSeconds
}

// GetBackgroundSkyLevel returns the background_sky_level value or the default.
func (c *Settings) GetBackgroundSkyLevel() float64 {
	if c.BackgroundSkyLevel == nil {
		return 0.1
	}
	return *c.BackgroundSkyLevel
}

// GetGaussianNoiseSigma returns the gaussian_noise_sigma value or the default.
func (c *Settings) GetGaussianNoiseSigma() float64 {
	if c.GaussianNoiseSigma == nil {
		return 0
	}
	return *c.GaussianNoiseSigma
}

// GetNoiseSeed returns the noise_seed value or the default.
func (c *Settings) GetNoiseSeed() uint64 {
	if c.NoiseSeed == nil {
		return 1
	}
	return *c.NoiseSeed
}
