package gaze

import "math"

// FixationResult is the classifier's per-sample output for one eye.
type FixationResult struct {
	// Fixated reports whether the eye is currently in a fixation run.
	Fixated bool

	// Onset is the timestamp at which the current fixation began, or NaN
	// when not fixating.
	Onset float64

	// Elapsed is the duration (seconds) of the current fixation run, zero
	// when not fixating.
	Elapsed float64
}

// Classifier is the per-eye fixation state machine. Velocity below the
// threshold holds or starts a fixation run; velocity at or above it ends
// one. Each instance owns the run state for exactly one eye.
type Classifier struct {
	threshold float64

	fixating bool
	onset    float64
	elapsed  float64
	lastX    float64
	lastY    float64
}

// NewClassifier creates a classifier with the given velocity threshold in
// pixels/second. The threshold must already be validated (> 0); see
// Options.Validate.
func NewClassifier(threshold float64) *Classifier {
	return &Classifier{threshold: threshold, onset: math.NaN()}
}

// Update advances the state machine with one sample's velocity (px/s),
// normalized position, and timestamp (seconds).
//
// The comparison is strict: velocity exactly equal to the threshold
// classifies as a saccade. A NaN velocity or position forces a saccade
// and clears the run state, since a lost eye cannot be asserted to be
// fixating.
func (c *Classifier) Update(velocity, x, y, t float64) FixationResult {
	lost := math.IsNaN(velocity) || math.IsNaN(x) || math.IsNaN(y)

	if lost || velocity >= c.threshold {
		c.fixating = false
		c.onset = math.NaN()
		c.elapsed = 0
	} else if c.fixating {
		c.elapsed = t - c.onset
	} else {
		c.fixating = true
		c.onset = t
		c.elapsed = 0
	}

	c.lastX = x
	c.lastY = y
	return FixationResult{Fixated: c.fixating, Onset: c.onset, Elapsed: c.elapsed}
}

// Reset clears any ongoing fixation run.
func (c *Classifier) Reset() {
	c.fixating = false
	c.onset = math.NaN()
	c.elapsed = 0
	c.lastX = 0
	c.lastY = 0
}
