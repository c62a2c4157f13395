package gaze

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Options is the validated configuration surface of a Composer.
type Options struct {
	// Screen is the display the normalized coordinates map onto.
	Screen Screen

	// EnableFixation turns the per-eye classifiers on. When false the
	// fixation channels stay at their defaults (not fixated, NaN onset).
	EnableFixation bool

	// VelocityThreshold is the fixation/saccade boundary in pixels/second.
	VelocityThreshold float64

	// CorrectNaNs substitutes the last known-valid coordinate for a NaN
	// one before processing. Lossy but continuity-preserving; off by
	// default so gaps stay visible downstream.
	CorrectNaNs bool

	// UseFilteredForVelocity selects filtered rather than raw positions
	// as the velocity estimator's input.
	UseFilteredForVelocity bool

	// Filter is the per-axis adaptive filter tuning.
	Filter FilterConfig
}

// DefaultOptions returns the options used by the daemon when no config
// file overrides them.
func DefaultOptions(screen Screen) Options {
	return Options{
		Screen:                 screen,
		EnableFixation:         true,
		VelocityThreshold:      30.0,
		CorrectNaNs:            false,
		UseFilteredForVelocity: true,
		Filter:                 DefaultFilterConfig(),
	}
}

// Validate checks the fatal configuration class: a non-positive velocity
// threshold or non-positive screen dimensions. This is the only error the
// core raises, and it is raised before any sample is processed.
func (o Options) Validate() error {
	if o.Screen.Width <= 0 || o.Screen.Height <= 0 {
		return fmt.Errorf("invalid screen dimensions %gx%g: must be positive", o.Screen.Width, o.Screen.Height)
	}
	if o.EnableFixation && o.VelocityThreshold <= 0 {
		return fmt.Errorf("invalid velocity threshold %g: must be positive", o.VelocityThreshold)
	}
	if o.Filter.MinCutoff <= 0 || o.Filter.DerivativeCutoff <= 0 {
		return fmt.Errorf("invalid filter cutoffs (min %g, derivative %g): must be positive", o.Filter.MinCutoff, o.Filter.DerivativeCutoff)
	}
	if o.Filter.Beta < 0 {
		return fmt.Errorf("invalid filter beta %g: must be non-negative", o.Filter.Beta)
	}
	if o.Filter.MaxGapSeconds <= 0 {
		return fmt.Errorf("invalid filter max gap %g: must be positive", o.Filter.MaxGapSeconds)
	}
	return nil
}

// FileOptions is the on-disk form of Options. Fields are pointers so a
// partial JSON file only overrides what it names.
type FileOptions struct {
	ScreenWidth  *float64 `json:"screen_width,omitempty"`
	ScreenHeight *float64 `json:"screen_height,omitempty"`

	EnableFixation         *bool    `json:"enable_fixation,omitempty"`
	VelocityThreshold      *float64 `json:"velocity_threshold,omitempty"`
	CorrectNaNs            *bool    `json:"correct_nans,omitempty"`
	UseFilteredForVelocity *bool    `json:"use_filtered_for_velocity,omitempty"`

	FilterMinCutoff        *float64 `json:"filter_min_cutoff,omitempty"`
	FilterBeta             *float64 `json:"filter_beta,omitempty"`
	FilterDerivativeCutoff *float64 `json:"filter_derivative_cutoff,omitempty"`
	FilterMaxGapSeconds    *float64 `json:"filter_max_gap_seconds,omitempty"`
}

// LoadFileOptions reads a partial options file. Missing fields keep their
// defaults when applied.
func LoadFileOptions(path string) (*FileOptions, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("options file must have .json extension, got %q", ext)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read options file: %w", err)
	}
	var fo FileOptions
	if err := json.Unmarshal(data, &fo); err != nil {
		return nil, fmt.Errorf("failed to parse options JSON: %w", err)
	}
	return &fo, nil
}

// Apply overlays the file's values onto base and returns the result.
func (fo *FileOptions) Apply(base Options) Options {
	out := base
	if fo == nil {
		return out
	}
	if fo.ScreenWidth != nil {
		out.Screen.Width = *fo.ScreenWidth
	}
	if fo.ScreenHeight != nil {
		out.Screen.Height = *fo.ScreenHeight
	}
	if fo.EnableFixation != nil {
		out.EnableFixation = *fo.EnableFixation
	}
	if fo.VelocityThreshold != nil {
		out.VelocityThreshold = *fo.VelocityThreshold
	}
	if fo.CorrectNaNs != nil {
		out.CorrectNaNs = *fo.CorrectNaNs
	}
	if fo.UseFilteredForVelocity != nil {
		out.UseFilteredForVelocity = *fo.UseFilteredForVelocity
	}
	if fo.FilterMinCutoff != nil {
		out.Filter.MinCutoff = *fo.FilterMinCutoff
	}
	if fo.FilterBeta != nil {
		out.Filter.Beta = *fo.FilterBeta
	}
	if fo.FilterDerivativeCutoff != nil {
		out.Filter.DerivativeCutoff = *fo.FilterDerivativeCutoff
	}
	if fo.FilterMaxGapSeconds != nil {
		out.Filter.MaxGapSeconds = *fo.FilterMaxGapSeconds
	}
	return out
}
