// Package gaze implements the per-sample signal-conditioning and
// fixation-classification pipeline for a binocular eye tracker.
//
// Raw normalized gaze samples go through an adaptive low-pass filter per
// coordinate axis, a pixel-space velocity estimate per eye, and a
// velocity-threshold fixation classifier per eye, and come out as a fixed
// 22-channel record ready for broadcast or persistence. The pipeline is
// synchronous and single-threaded: one Process call per incoming sample,
// in arrival order.
package gaze

import "math"

// FilterConfig holds tuning parameters for the adaptive filter.
type FilterConfig struct {
	// MinCutoff is the cutoff frequency (Hz) applied when the signal is
	// stationary. Lower values smooth more aggressively.
	MinCutoff float64

	// Beta scales how much the estimated rate of change raises the
	// effective cutoff. Higher values reduce lag on fast movements at the
	// cost of letting more noise through.
	Beta float64

	// DerivativeCutoff is the cutoff frequency (Hz) used to smooth the
	// derivative estimate itself.
	DerivativeCutoff float64

	// MaxGapSeconds is the longest eye-loss gap the filter will span.
	// A valid sample arriving after a longer gap reseeds the filter
	// instead of smoothing across it.
	MaxGapSeconds float64
}

// DefaultFilterConfig returns the tuning used for gaze coordinates at
// tracker rates up to 600 Hz.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		MinCutoff:        0.004,
		Beta:             0.7,
		DerivativeCutoff: 1.0,
		MaxGapSeconds:    1.0,
	}
}

// Filter is a one-dimensional adaptive exponential smoother. The cutoff
// frequency follows the estimated derivative of the input, so fast
// movements see less smoothing (less lag) and slow drift sees more
// (less jitter). One instance owns the state for exactly one axis.
type Filter struct {
	cfg FilterConfig

	primed         bool
	lastFiltered   float64
	lastRaw        float64
	lastDerivative float64
	lastTime       float64
}

// NewFilter creates a filter with the given tuning. The first valid
// sample seeds the state and is returned unsmoothed.
func NewFilter(cfg FilterConfig) *Filter {
	return &Filter{cfg: cfg}
}

// smoothingFactor converts a cutoff frequency and time step into the
// coefficient of a first-order exponential smoothing step.
func smoothingFactor(dt, cutoff float64) float64 {
	r := 2 * math.Pi * cutoff * dt
	return r / (r + 1)
}

// Update feeds one raw value with its timestamp (seconds) through the
// filter and returns the filtered value.
//
// NaN input (eye lost) passes through unmodified and leaves the filter
// state untouched; the next valid sample resumes across the gap, or
// reseeds if the gap exceeded MaxGapSeconds. A non-positive time step
// returns the last filtered value unchanged.
func (f *Filter) Update(raw, t float64) float64 {
	if math.IsNaN(raw) {
		return raw
	}
	if !f.primed {
		f.seed(raw, t)
		return raw
	}

	dt := t - f.lastTime
	if dt <= 0 {
		return f.lastFiltered
	}
	if dt > f.cfg.MaxGapSeconds {
		f.seed(raw, t)
		return raw
	}

	// Smooth the derivative estimate, then let its magnitude raise the
	// effective cutoff.
	dx := (raw - f.lastFiltered) / dt
	alphaD := smoothingFactor(dt, f.cfg.DerivativeCutoff)
	dxHat := alphaD*dx + (1-alphaD)*f.lastDerivative

	cutoff := f.cfg.MinCutoff + f.cfg.Beta*math.Abs(dxHat)
	alpha := smoothingFactor(dt, cutoff)
	filtered := alpha*raw + (1-alpha)*f.lastFiltered

	f.lastFiltered = filtered
	f.lastRaw = raw
	f.lastDerivative = dxHat
	f.lastTime = t
	return filtered
}

// Reset discards all state. The next valid sample reseeds the filter.
func (f *Filter) Reset() {
	*f = Filter{cfg: f.cfg}
}

func (f *Filter) seed(raw, t float64) {
	f.primed = true
	f.lastFiltered = raw
	f.lastRaw = raw
	f.lastDerivative = 0
	f.lastTime = t
}
