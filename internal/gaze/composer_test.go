package gaze

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gaze.report/internal/monitoring"
)

func init() {
	monitoring.SetLogger(nil)
}

func testOptions() Options {
	return DefaultOptions(Screen{Width: 1920, Height: 1080})
}

func stationarySample(t float64) RawSample {
	return RawSample{
		LeftX: 0.5, LeftY: 0.5,
		RightX: 0.5, RightY: 0.5,
		LeftPupil: 3.2, RightPupil: 3.1,
		DeviceTime: t, LocalClock: t + 100,
	}
}

func TestComposerStationaryFixation(t *testing.T) {
	opts := testOptions()
	opts.VelocityThreshold = 100
	c, err := NewComposer(opts, nil)
	require.NoError(t, err)

	// ten samples at 10 Hz, all at screen centre
	var recs []Record
	for i := 0; i < 10; i++ {
		recs = append(recs, c.Process(stationarySample(float64(i)*0.1)))
	}

	// the first sample has no velocity estimate and cannot fixate
	assert.False(t, recs[0].Left.Fixated)
	assert.True(t, math.IsNaN(recs[0].Left.FixationOnset))

	// fixation starts on the second sample and holds
	for i := 1; i < 10; i++ {
		require.True(t, recs[i].Left.Fixated, "sample %d", i)
		require.True(t, recs[i].Right.Fixated, "sample %d", i)
		assert.InDelta(t, 0.1, recs[i].Left.FixationOnset, 1e-9, "sample %d", i)
		assert.InDelta(t, recs[i].Timestamp-recs[i].Left.FixationOnset, recs[i].Left.FixationElapsed, 1e-9, "sample %d", i)
		assert.Equal(t, 0.0, recs[i].Left.Velocity, "sample %d", i)
	}
	assert.InDelta(t, 0.8, recs[9].Left.FixationElapsed, 1e-9)

	// elapsed is non-decreasing across the run
	for i := 2; i < 10; i++ {
		assert.GreaterOrEqual(t, recs[i].Left.FixationElapsed, recs[i-1].Left.FixationElapsed)
	}
}

func TestComposerSaccadeStaysUnfixated(t *testing.T) {
	opts := testOptions()
	opts.VelocityThreshold = 100
	c, err := NewComposer(opts, nil)
	require.NoError(t, err)

	// one full screen width in 10ms is far above any plausible threshold
	c.Process(RawSample{LeftX: 0, LeftY: 0.5, RightX: 0, RightY: 0.5, DeviceTime: 0})
	rec := c.Process(RawSample{LeftX: 1, LeftY: 0.5, RightX: 1, RightY: 0.5, DeviceTime: 0.01})

	assert.False(t, rec.Left.Fixated)
	assert.False(t, rec.Right.Fixated)
	assert.Greater(t, rec.Left.Velocity, opts.VelocityThreshold)
	assert.True(t, math.IsNaN(rec.Left.FixationOnset))
	assert.Equal(t, 0.0, rec.Left.FixationElapsed)
}

func TestComposerRawVelocityMatchesEstimator(t *testing.T) {
	opts := testOptions()
	opts.UseFilteredForVelocity = false
	opts.VelocityThreshold = 100
	c, err := NewComposer(opts, nil)
	require.NoError(t, err)

	c.Process(RawSample{LeftX: 0, LeftY: 0.5, RightX: 0, RightY: 0.5, DeviceTime: 0})
	rec := c.Process(RawSample{LeftX: 1, LeftY: 0.5, RightX: 1, RightY: 0.5, DeviceTime: 0.01})

	assert.InDelta(t, 192000.0, rec.Left.Velocity, 1e-6)
	assert.InDelta(t, 192000.0, rec.Right.Velocity, 1e-6)
}

func TestComposerLostLeftEye(t *testing.T) {
	c, err := NewComposer(testOptions(), nil)
	require.NoError(t, err)

	c.Process(stationarySample(0.0))
	c.Process(stationarySample(0.1))

	nan := math.NaN()
	rec := c.Process(RawSample{
		LeftX: nan, LeftY: nan,
		RightX: 0.5, RightY: 0.5,
		DeviceTime: 0.2,
	})

	// lost eye: NaN coordinates propagate and fixation state clears
	assert.True(t, math.IsNaN(rec.Left.GazeX))
	assert.True(t, math.IsNaN(rec.Left.FilteredX))
	assert.False(t, rec.Left.Fixated)
	assert.True(t, math.IsNaN(rec.Left.FixationOnset))
	assert.Equal(t, 0.0, rec.Left.Velocity)

	// the other eye is unaffected
	assert.True(t, rec.Right.Fixated)
	assert.False(t, math.IsNaN(rec.Right.GazeX))
}

func TestComposerCorrectNaNs(t *testing.T) {
	opts := testOptions()
	opts.CorrectNaNs = true
	c, err := NewComposer(opts, nil)
	require.NoError(t, err)

	c.Process(stationarySample(0.0))

	nan := math.NaN()
	rec := c.Process(RawSample{
		LeftX: nan, LeftY: nan,
		RightX: 0.5, RightY: 0.5,
		DeviceTime: 0.1,
	})

	// the last known-valid coordinate substitutes for the lost one
	assert.Equal(t, 0.5, rec.Left.GazeX)
	assert.Equal(t, 0.5, rec.Left.GazeY)
	assert.False(t, math.IsNaN(rec.Left.FilteredX))
}

func TestComposerDeterminism(t *testing.T) {
	nan := math.NaN()
	samples := []RawSample{
		{LeftX: 0.5, LeftY: 0.5, RightX: 0.5, RightY: 0.5, DeviceTime: 0.0},
		{LeftX: 0.51, LeftY: 0.49, RightX: 0.52, RightY: 0.5, DeviceTime: 0.1},
		{LeftX: nan, LeftY: nan, RightX: 0.52, RightY: 0.5, DeviceTime: 0.2},
		{LeftX: 0.9, LeftY: 0.1, RightX: 0.9, RightY: 0.1, DeviceTime: 0.3},
		{LeftX: 0.9, LeftY: 0.1, RightX: 0.9, RightY: 0.1, DeviceTime: 0.4},
	}

	run := func() []Record {
		c, err := NewComposer(testOptions(), nil)
		require.NoError(t, err)
		var out []Record
		for _, s := range samples {
			out = append(out, c.Process(s))
		}
		return out
	}

	if diff := cmp.Diff(run(), run(), cmpopts.EquateNaNs()); diff != "" {
		t.Fatalf("two fresh pipelines diverged on identical input (-first +second):\n%s", diff)
	}
}

func TestComposerTimingAnomaly(t *testing.T) {
	stats := NewPipelineStats()
	c, err := NewComposer(testOptions(), stats)
	require.NoError(t, err)

	c.Process(stationarySample(1.0))
	rec := c.Process(stationarySample(1.0)) // duplicate timestamp

	// zero-effect step: no movement recorded, timestamps carried through
	assert.Equal(t, 0.0, rec.Left.Velocity)
	assert.Equal(t, 1.0, rec.Timestamp)

	_, _, _, anomalies, _ := stats.Snapshot()
	assert.Equal(t, int64(1), anomalies)
}

func TestComposerFixationDisabled(t *testing.T) {
	opts := testOptions()
	opts.EnableFixation = false
	opts.VelocityThreshold = 0 // not validated when fixation is off
	c, err := NewComposer(opts, nil)
	require.NoError(t, err)

	c.Process(stationarySample(0.0))
	rec := c.Process(stationarySample(0.1))

	assert.False(t, rec.Left.Fixated)
	assert.True(t, math.IsNaN(rec.Left.FixationOnset))
	assert.Equal(t, 0.0, rec.Left.FixationElapsed)
	// filtering and velocity still run
	assert.False(t, math.IsNaN(rec.Left.FilteredX))
}

func TestComposerChannelOrder(t *testing.T) {
	c, err := NewComposer(testOptions(), nil)
	require.NoError(t, err)

	rec := c.Process(stationarySample(2.5))
	ch := rec.Channels()

	assert.Equal(t, rec.Left.GazeX, ch[ChanLeftGazeX])
	assert.Equal(t, rec.Left.Pupil, ch[ChanLeftPupil])
	assert.Equal(t, 0.0, ch[ChanLeftFixated], "fixated serializes as 0/1")
	assert.Equal(t, rec.Right.GazeY, ch[ChanRightGazeY])
	assert.Equal(t, 1920.0, ch[ChanScreenWidth])
	assert.Equal(t, 1080.0, ch[ChanScreenHeight])
	assert.Equal(t, 2.5, ch[ChanTimestamp])
	assert.Equal(t, 102.5, ch[ChanLocalClock])
}

func TestNewComposerRejectsBadConfig(t *testing.T) {
	_, err := NewComposer(DefaultOptions(Screen{Width: 0, Height: 1080}), nil)
	assert.Error(t, err)

	opts := testOptions()
	opts.VelocityThreshold = 0
	_, err = NewComposer(opts, nil)
	assert.Error(t, err)

	opts = testOptions()
	opts.VelocityThreshold = -5
	_, err = NewComposer(opts, nil)
	assert.Error(t, err)
}

func TestComposerReset(t *testing.T) {
	c, err := NewComposer(testOptions(), nil)
	require.NoError(t, err)

	c.Process(stationarySample(0.0))
	c.Process(stationarySample(0.1))
	c.Reset()

	// after a reset the next sample is a first sample again
	rec := c.Process(stationarySample(0.2))
	assert.False(t, rec.Left.Fixated)
	assert.Equal(t, 0.0, rec.Left.Velocity)
}
