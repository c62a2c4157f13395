package gaze

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsValidate(t *testing.T) {
	valid := DefaultOptions(Screen{Width: 1920, Height: 1080})
	require.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(*Options)
	}{
		{"zero screen width", func(o *Options) { o.Screen.Width = 0 }},
		{"negative screen height", func(o *Options) { o.Screen.Height = -1 }},
		{"zero threshold", func(o *Options) { o.VelocityThreshold = 0 }},
		{"negative threshold", func(o *Options) { o.VelocityThreshold = -10 }},
		{"zero min cutoff", func(o *Options) { o.Filter.MinCutoff = 0 }},
		{"negative beta", func(o *Options) { o.Filter.Beta = -0.1 }},
		{"zero max gap", func(o *Options) { o.Filter.MaxGapSeconds = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := DefaultOptions(Screen{Width: 1920, Height: 1080})
			tc.mutate(&opts)
			assert.Error(t, opts.Validate())
		})
	}
}

func TestValidateThresholdIgnoredWhenFixationOff(t *testing.T) {
	opts := DefaultOptions(Screen{Width: 1920, Height: 1080})
	opts.EnableFixation = false
	opts.VelocityThreshold = 0
	assert.NoError(t, opts.Validate())
}

func TestLoadFileOptions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "options.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"velocity_threshold": 50,
		"correct_nans": true,
		"filter_beta": 0.9
	}`), 0o644))

	fo, err := LoadFileOptions(path)
	require.NoError(t, err)

	base := DefaultOptions(Screen{Width: 1920, Height: 1080})
	got := fo.Apply(base)

	// named fields override, the rest keep their defaults
	assert.Equal(t, 50.0, got.VelocityThreshold)
	assert.True(t, got.CorrectNaNs)
	assert.Equal(t, 0.9, got.Filter.Beta)
	assert.Equal(t, base.Filter.MinCutoff, got.Filter.MinCutoff)
	assert.Equal(t, base.Screen, got.Screen)
	assert.Equal(t, base.EnableFixation, got.EnableFixation)
}

func TestLoadFileOptionsRejectsNonJSON(t *testing.T) {
	_, err := LoadFileOptions("options.yaml")
	assert.Error(t, err)
}

func TestLoadFileOptionsBadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"velocity_threshold": `), 0o644))
	_, err := LoadFileOptions(path)
	assert.Error(t, err)
}

func TestFileOptionsApplyNil(t *testing.T) {
	base := DefaultOptions(Screen{Width: 800, Height: 600})
	var fo *FileOptions
	assert.Equal(t, base, fo.Apply(base))
}
