package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "phoskin.yaml")
	content := []byte(`
model:
  variant: successive
  sites: 3
estimate:
  method: evol
  bootstrap: 50
`)
	require.NoError(t, os.WriteFile(path, content, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "successive", cfg.Model.Variant)
	assert.Equal(t, 3, cfg.Model.Sites)
	assert.Equal(t, "evol", cfg.Estimate.Method)
	assert.Equal(t, 50, cfg.Estimate.Bootstrap)
	// untouched fields keep their defaults
	assert.Equal(t, "normal", cfg.Estimate.Mode)
	assert.Equal(t, "rk45", cfg.Model.Solver)
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadBounds(t *testing.T) {
	cfg := Default()
	cfg.Model.Bounds["A"] = Range{Min: 5, Max: 1}
	assert.ErrorIs(t, cfg.Validate(), ErrBounds)

	cfg = Default()
	delete(cfg.Model.Bounds, "S(i)")
	assert.ErrorIs(t, cfg.Validate(), ErrBounds)
}

func TestValidateRejectsUnknownModes(t *testing.T) {
	cfg := Default()
	cfg.Estimate.Mode = "incremental"
	assert.ErrorIs(t, cfg.Validate(), ErrMode)

	cfg = Default()
	cfg.Estimate.Method = "anneal"
	assert.ErrorIs(t, cfg.Validate(), ErrMode)

	cfg = Default()
	cfg.Model.Variant = "parallel"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownActivityLoss(t *testing.T) {
	cfg := Default()
	cfg.Activity.Loss = "huber"
	assert.ErrorIs(t, cfg.Validate(), ErrMode)
}

func TestValidateRejectsMismatchedFixedParameter(t *testing.T) {
	cfg := Default()
	cfg.Model.Sites = 2
	cfg.Model.Fixed = map[string]float64{"S3": 1.0}
	assert.ErrorIs(t, cfg.Validate(), ErrBounds)
}

func TestParamBounds(t *testing.T) {
	cfg := Default()
	cfg.Model.Variant = "random"
	cfg.Model.Sites = 2

	lower, upper, err := cfg.ParamBounds()
	require.NoError(t, err)
	// A B C D S1 S2 D1 D2 D12
	require.Len(t, lower, 9)
	assert.Equal(t, 0.01, lower[0])
	assert.Equal(t, 20.0, upper[4]) // S1 uses the S(i) class
	assert.Equal(t, 20.0, upper[8]) // D12 uses the D(i) class
}

func TestSensitivityValidation(t *testing.T) {
	cfg := Default()
	cfg.Sensitivity.Enabled = true
	cfg.Sensitivity.Levels = 3
	assert.Error(t, cfg.Validate())

	cfg.Sensitivity.Levels = 4
	cfg.Sensitivity.Trajectories = 1
	assert.Error(t, cfg.Validate())
}
