package gaze

import (
	"math"

	"github.com/banshee-data/gaze.report/internal/monitoring"
)

// Composer runs the full per-sample pipeline: four axis filters, a
// velocity estimate per eye, and a fixation classifier per eye, composed
// into one Record per incoming RawSample.
//
// A Composer owns all mutable pipeline state. Construct one per tracking
// session and discard it on session reset; it is not safe for concurrent
// use and expects samples in arrival order.
type Composer struct {
	opts  Options
	stats *PipelineStats

	leftX, leftY   *Filter
	rightX, rightY *Filter
	left, right    *Classifier

	haveTime bool
	lastTime float64

	// velocity inputs from the previous sample, NaN until seen
	prevLeftX, prevLeftY   float64
	prevRightX, prevRightY float64

	// last known-valid raw coordinates, used when CorrectNaNs is set
	validLeftX, validLeftY   float64
	validRightX, validRightY float64
	haveValidLeft            bool
	haveValidRight           bool
}

// NewComposer validates the options and builds a fresh pipeline. This is
// the only place the core returns an error; per-sample processing never
// fails.
func NewComposer(opts Options, stats *PipelineStats) (*Composer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if stats == nil {
		stats = NewPipelineStats()
	}
	c := &Composer{
		opts:   opts,
		stats:  stats,
		leftX:  NewFilter(opts.Filter),
		leftY:  NewFilter(opts.Filter),
		rightX: NewFilter(opts.Filter),
		rightY: NewFilter(opts.Filter),
		left:   NewClassifier(opts.VelocityThreshold),
		right:  NewClassifier(opts.VelocityThreshold),
	}
	c.clearPrev()
	return c, nil
}

// Options returns the validated configuration the composer was built with.
func (c *Composer) Options() Options { return c.opts }

// Stats returns the composer's counters.
func (c *Composer) Stats() *PipelineStats { return c.stats }

// Process runs one raw sample through the pipeline and returns the
// composed record. Timestamps are carried through unmodified; a
// non-monotonic device timestamp is processed as a zero-movement step and
// counted as a timing anomaly.
func (c *Composer) Process(s RawSample) Record {
	c.stats.AddSample()

	t := s.DeviceTime
	if c.haveTime && t <= c.lastTime {
		c.stats.AddTimingAnomaly()
		monitoring.Logf("warning: non-monotonic device timestamp %.6f after %.6f, treating as zero-movement", t, c.lastTime)
		t = c.lastTime
	}

	lx, ly := s.LeftX, s.LeftY
	rx, ry := s.RightX, s.RightY
	if eyeLost(lx, ly) || eyeLost(rx, ry) {
		c.stats.AddNaNSample()
	}

	if c.opts.CorrectNaNs {
		if eyeLost(lx, ly) && c.haveValidLeft {
			lx, ly = c.validLeftX, c.validLeftY
		}
		if eyeLost(rx, ry) && c.haveValidRight {
			rx, ry = c.validRightX, c.validRightY
		}
	}
	if !eyeLost(lx, ly) {
		c.validLeftX, c.validLeftY = lx, ly
		c.haveValidLeft = true
	}
	if !eyeLost(rx, ry) {
		c.validRightX, c.validRightY = rx, ry
		c.haveValidRight = true
	}

	flx := c.leftX.Update(lx, t)
	fly := c.leftY.Update(ly, t)
	frx := c.rightX.Update(rx, t)
	fry := c.rightY.Update(ry, t)

	// velocity runs on filtered positions unless configured otherwise
	vlx, vly, vrx, vry := flx, fly, frx, fry
	if !c.opts.UseFilteredForVelocity {
		vlx, vly, vrx, vry = lx, ly, rx, ry
	}

	var dt float64
	if c.haveTime {
		dt = t - c.lastTime
	}
	leftVel := PixelVelocity(c.prevLeftX, c.prevLeftY, vlx, vly, dt, c.opts.Screen)
	rightVel := PixelVelocity(c.prevRightX, c.prevRightY, vrx, vry, dt, c.opts.Screen)

	leftFix := FixationResult{Onset: math.NaN()}
	rightFix := FixationResult{Onset: math.NaN()}
	if c.opts.EnableFixation {
		leftFix = c.left.Update(classifierVelocity(leftVel, c.prevLeftX, c.prevLeftY), vlx, vly, t)
		rightFix = c.right.Update(classifierVelocity(rightVel, c.prevRightX, c.prevRightY), vrx, vry, t)
	}

	rec := Record{
		Left: EyeRecord{
			GazeX:           lx,
			GazeY:           ly,
			Pupil:           s.LeftPupil,
			Fixated:         leftFix.Fixated,
			Velocity:        leftVel,
			FixationOnset:   leftFix.Onset,
			FixationElapsed: leftFix.Elapsed,
			FilteredX:       flx,
			FilteredY:       fly,
		},
		Right: EyeRecord{
			GazeX:           rx,
			GazeY:           ry,
			Pupil:           s.RightPupil,
			Fixated:         rightFix.Fixated,
			Velocity:        rightVel,
			FixationOnset:   rightFix.Onset,
			FixationElapsed: rightFix.Elapsed,
			FilteredX:       frx,
			FilteredY:       fry,
		},
		ScreenWidth:  c.opts.Screen.Width,
		ScreenHeight: c.opts.Screen.Height,
		Timestamp:    s.DeviceTime,
		LocalClock:   s.LocalClock,
	}

	c.prevLeftX, c.prevLeftY = vlx, vly
	c.prevRightX, c.prevRightY = vrx, vry
	c.lastTime = t
	c.haveTime = true

	c.stats.AddRecord()
	return rec
}

// Reset discards all accumulated pipeline state, as after a tracker
// reconnect. Counters are kept.
func (c *Composer) Reset() {
	c.leftX.Reset()
	c.leftY.Reset()
	c.rightX.Reset()
	c.rightY.Reset()
	c.left.Reset()
	c.right.Reset()
	c.haveTime = false
	c.lastTime = 0
	c.haveValidLeft = false
	c.haveValidRight = false
	c.clearPrev()
}

func (c *Composer) clearPrev() {
	c.prevLeftX = math.NaN()
	c.prevLeftY = math.NaN()
	c.prevRightX = math.NaN()
	c.prevRightY = math.NaN()
}

// classifierVelocity maps a missing previous position to NaN so the
// classifier drops the fixation rather than reading the estimator's
// 0 px/s as stillness. This covers both the first sample of a session and
// the sample after an eye-loss gap.
func classifierVelocity(vel, prevX, prevY float64) float64 {
	if math.IsNaN(prevX) || math.IsNaN(prevY) {
		return math.NaN()
	}
	return vel
}

func eyeLost(x, y float64) bool {
	return math.IsNaN(x) || math.IsNaN(y)
}
