package validate

import (
	"math/rand"

	"github.com/banshee-data/gaze.report/internal/gaze"
)

// SequenceConfig shapes a validation target sequence.
type SequenceConfig struct {
	// Rows and Cols lay a grid of targets over the screen, one at each
	// cell centre.
	Rows, Cols int

	// MoveSeconds is how long the stimulus travels to the next target;
	// StaySeconds how long it holds there. Samples are collected during
	// the hold.
	MoveSeconds float64
	StaySeconds float64

	// Seed makes the visiting order reproducible; 0 keeps the grid order.
	Seed int64
}

// DefaultSequenceConfig matches the standard validation procedure: a 3x3
// grid, one second of travel, three seconds of hold per target.
func DefaultSequenceConfig() SequenceConfig {
	return SequenceConfig{Rows: 3, Cols: 3, MoveSeconds: 1.0, StaySeconds: 3.0}
}

// GridTargets returns rows*cols targets at the cell centres of the
// screen, indexed row-major.
func GridTargets(rows, cols int, screen gaze.Screen) []Target {
	targets := make([]Target, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			targets = append(targets, Target{
				Index: r*cols + c,
				X:     (float64(c) + 0.5) * screen.Width / float64(cols),
				Y:     (float64(r) + 0.5) * screen.Height / float64(rows),
			})
		}
	}
	return targets
}

// Sequence plans the presentation schedule for a validation run starting
// at start (device-time seconds). Each target's onset is the moment the
// stimulus arrives there; the caller collects samples during the
// following StaySeconds (see Window).
func Sequence(cfg SequenceConfig, screen gaze.Screen, start float64) []Presentation {
	targets := GridTargets(cfg.Rows, cfg.Cols, screen)
	if cfg.Seed != 0 {
		rng := rand.New(rand.NewSource(cfg.Seed))
		rng.Shuffle(len(targets), func(i, j int) {
			targets[i], targets[j] = targets[j], targets[i]
		})
	}

	out := make([]Presentation, len(targets))
	for i, tgt := range targets {
		onset := start + float64(i+1)*cfg.MoveSeconds + float64(i)*cfg.StaySeconds
		out[i] = Presentation{Target: tgt, Onset: onset}
	}
	return out
}
