package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, "settings.json", `{
		"mask_radius_arcsec": 2.5,
		"search_starts": 12,
		"search_seed": 99,
		"exposure_time_seconds": 600
	}`)

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	maskRadius := 2.5
	starts := 12
	seed := uint64(99)
	exposure := 600.0
	want := &Settings{
		MaskRadiusArcsec:    &maskRadius,
		SearchStarts:        &starts,
		SearchSeed:          &seed,
		ExposureTimeSeconds: &exposure,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("settings mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadPartialConfigKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "settings.json", `{"search_workers": 2}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GetSearchWorkers() != 2 {
		t.Errorf("GetSearchWorkers = %d, want 2", cfg.GetSearchWorkers())
	}
	// unset fields fall back to defaults
	if cfg.GetMaskRadiusArcsec() != 3.0 {
		t.Errorf("GetMaskRadiusArcsec = %v, want 3.0", cfg.GetMaskRadiusArcsec())
	}
	if cfg.GetSearchStarts() != 8 {
		t.Errorf("GetSearchStarts = %d, want 8", cfg.GetSearchStarts())
	}
	if cfg.GetRegularizationCoefficient() != 1.0 {
		t.Errorf("GetRegularizationCoefficient = %v, want 1.0", cfg.GetRegularizationCoefficient())
	}
	if cfg.GetExposureTimeSeconds() != 300 {
		t.Errorf("GetExposureTimeSeconds = %v, want 300", cfg.GetExposureTimeSeconds())
	}
	if cfg.GetBackgroundSkyLevel() != 0.1 {
		t.Errorf("GetBackgroundSkyLevel = %v, want 0.1", cfg.GetBackgroundSkyLevel())
	}
	if cfg.GetGaussianNoiseSigma() != 0 {
		t.Errorf("GetGaussianNoiseSigma = %v, want 0", cfg.GetGaussianNoiseSigma())
	}
	if cfg.GetNoiseSeed() != 1 {
		t.Errorf("GetNoiseSeed = %v, want 1", cfg.GetNoiseSeed())
	}
}

func TestLoadRejectsBadFiles(t *testing.T) {
	if _, err := Load(writeConfig(t, "settings.yaml", "{}")); err == nil {
		t.Error("non-json extension accepted")
	}
	if _, err := Load(writeConfig(t, "settings.json", "not json")); err == nil {
		t.Error("malformed json accepted")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		json string
	}{
		{"negative mask radius", `{"mask_radius_arcsec": -1}`},
		{"zero regularization", `{"regularization_coefficient": 0}`},
		{"zero starts", `{"search_starts": 0}`},
		{"zero iterations", `{"search_max_iterations": 0}`},
		{"zero workers", `{"search_workers": 0}`},
		{"zero exposure", `{"exposure_time_seconds": 0}`},
		{"negative sky", `{"background_sky_level": -0.5}`},
		{"negative gaussian sigma", `{"gaussian_noise_sigma": -1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, "settings.json", tc.json)); err == nil {
				t.Errorf("%s accepted", tc.name)
			}
		})
	}
}

func TestDefaultsFileLoads(t *testing.T) {
	// keep the checked-in defaults file valid
	data, err := os.ReadFile(filepath.Join("..", "..", DefaultConfigPath))
	if err != nil {
		t.Skipf("defaults file not present: %v", err)
	}
	path := writeConfig(t, "settings.json", string(data))
	if _, err := Load(path); err != nil {
		t.Fatalf("defaults file does not load: %v", err)
	}
}
