// Package validate computes accuracy and precision statistics for a
// tracking session replayed against known target positions, and renders
// the results as CSV or an HTML chart.
package validate

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/gaze.report/internal/gaze"
)

// Target is a known stimulus position in pixel coordinates.
type Target struct {
	Index int     `json:"index"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// Presentation is one target shown from Onset (device-time seconds).
type Presentation struct {
	Target Target  `json:"target"`
	Onset  float64 `json:"onset"`
}

// Trial pairs a target with the records captured while it was shown.
type Trial struct {
	Target  Target
	Records []gaze.Record
}

// TargetSummary is the per-target statistics row.
type TargetSummary struct {
	Target

	// Accuracy is the mean Euclidean pixel offset between observed gaze
	// and the target. NaN when the trial had no usable samples.
	Accuracy float64

	// Precision is the sample standard deviation of the offsets around
	// their own mean, i.e. dispersion, not distance from the target.
	// NaN when the trial had fewer than two usable samples.
	Precision float64

	// Samples counts the records with a usable binocular position.
	Samples int
}

// Summary is a full validation result: one row per target plus the
// overall aggregate (mean of the per-target metrics, NaN targets
// excluded).
type Summary struct {
	Targets   []TargetSummary
	Accuracy  float64
	Precision float64
}

// Window assigns records to presentation windows. A record belongs to a
// presentation when its timestamp falls in [Onset+skip, Onset+hold];
// skip discards the saccade toward a freshly moved target, hold bounds
// the collection window. Presentations with no records still produce a
// trial, which Summarize reports as insufficient data.
func Window(records []gaze.Record, presentations []Presentation, skip, hold float64) []Trial {
	trials := make([]Trial, len(presentations))
	for i, p := range presentations {
		trials[i].Target = p.Target
		lo, hi := p.Onset+skip, p.Onset+hold
		for _, rec := range records {
			if rec.Timestamp >= lo && rec.Timestamp <= hi {
				trials[i].Records = append(trials[i].Records, rec)
			}
		}
	}
	return trials
}

// Summarize computes per-target and overall accuracy/precision for the
// given trials. A trial with no usable samples yields NaN metrics rather
// than an error.
func Summarize(trials []Trial) Summary {
	s := Summary{Targets: make([]TargetSummary, 0, len(trials))}
	for _, trial := range trials {
		s.Targets = append(s.Targets, summarizeTrial(trial))
	}

	var accs, precs []float64
	for _, row := range s.Targets {
		if !math.IsNaN(row.Accuracy) {
			accs = append(accs, row.Accuracy)
		}
		if !math.IsNaN(row.Precision) {
			precs = append(precs, row.Precision)
		}
	}
	s.Accuracy = meanOrNaN(accs)
	s.Precision = meanOrNaN(precs)
	return s
}

func summarizeTrial(trial Trial) TargetSummary {
	row := TargetSummary{
		Target:    trial.Target,
		Accuracy:  math.NaN(),
		Precision: math.NaN(),
	}

	var offsets []float64
	for _, rec := range trial.Records {
		x, y, ok := rec.Binocular()
		if !ok {
			continue
		}
		offsets = append(offsets, math.Hypot(x-trial.Target.X, y-trial.Target.Y))
	}
	row.Samples = len(offsets)
	if len(offsets) == 0 {
		return row
	}

	row.Accuracy = stat.Mean(offsets, nil)
	if len(offsets) >= 2 {
		row.Precision = stat.StdDev(offsets, nil)
	}
	return row
}

func meanOrNaN(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	return stat.Mean(vals, nil)
}
