package gaze

import (
	"math"
	"strconv"
)

// RawSample is one binocular gaze sample as delivered by the acquisition
// driver. Coordinates are normalized to [0,1], or NaN when the eye was
// not detected; pupil diameters are millimetres or NaN. DeviceTime is the
// tracker's monotonic clock, LocalClock the host clock, both in seconds.
type RawSample struct {
	LeftX  float64 `json:"left_x"`
	LeftY  float64 `json:"left_y"`
	RightX float64 `json:"right_x"`
	RightY float64 `json:"right_y"`

	LeftPupil  float64 `json:"left_pupil"`
	RightPupil float64 `json:"right_pupil"`

	DeviceTime float64 `json:"device_time"`
	LocalClock float64 `json:"local_clock"`
}

// EyeRecord holds the processed per-eye fields of an output record.
type EyeRecord struct {
	GazeX float64 `json:"gaze_x"`
	GazeY float64 `json:"gaze_y"`
	Pupil float64 `json:"pupil"`

	Fixated  bool    `json:"fixated"`
	Velocity float64 `json:"velocity"`

	// FixationOnset is the timestamp the current fixation began, or NaN
	// when the eye is not fixating. NaN is the wire sentinel throughout.
	FixationOnset   float64 `json:"fixation_onset"`
	FixationElapsed float64 `json:"fixation_elapsed"`

	FilteredX float64 `json:"filtered_x"`
	FilteredY float64 `json:"filtered_y"`
}

// Record is the canonical per-sample output: both eyes' processed fields
// plus the session screen dimensions and both timestamps. It is created
// fresh per input sample and immutable once emitted.
type Record struct {
	Left  EyeRecord `json:"left"`
	Right EyeRecord `json:"right"`

	ScreenWidth  float64 `json:"screen_width"`
	ScreenHeight float64 `json:"screen_height"`
	Timestamp    float64 `json:"timestamp"`
	LocalClock   float64 `json:"local_clock"`
}

// NumChannels is the width of the flattened record.
const NumChannels = 22

// Channel indices into the flattened record, in wire order. Each eye
// contributes nine channels, left first.
const (
	ChanLeftGazeX = iota
	ChanLeftGazeY
	ChanLeftPupil
	ChanLeftFixated
	ChanLeftVelocity
	ChanLeftFixationOnset
	ChanLeftFixationElapsed
	ChanLeftFilteredX
	ChanLeftFilteredY
	ChanRightGazeX
	ChanRightGazeY
	ChanRightPupil
	ChanRightFixated
	ChanRightVelocity
	ChanRightFixationOnset
	ChanRightFixationElapsed
	ChanRightFilteredX
	ChanRightFilteredY
	ChanScreenWidth
	ChanScreenHeight
	ChanTimestamp
	ChanLocalClock
)

// Channels flattens the record into the fixed 22-channel float64 layout
// used by every stream consumer. Fixated serializes as 0/1; an unset
// fixation onset serializes as NaN.
func (r Record) Channels() [NumChannels]float64 {
	return [NumChannels]float64{
		r.Left.GazeX,
		r.Left.GazeY,
		r.Left.Pupil,
		boolChannel(r.Left.Fixated),
		r.Left.Velocity,
		r.Left.FixationOnset,
		r.Left.FixationElapsed,
		r.Left.FilteredX,
		r.Left.FilteredY,
		r.Right.GazeX,
		r.Right.GazeY,
		r.Right.Pupil,
		boolChannel(r.Right.Fixated),
		r.Right.Velocity,
		r.Right.FixationOnset,
		r.Right.FixationElapsed,
		r.Right.FilteredX,
		r.Right.FilteredY,
		r.ScreenWidth,
		r.ScreenHeight,
		r.Timestamp,
		r.LocalClock,
	}
}

// Binocular returns the pixel-space position averaged over whichever eyes
// have usable coordinates, preferring filtered over raw per eye. ok is
// false when both eyes are lost.
func (r Record) Binocular() (x, y float64, ok bool) {
	screen := Screen{Width: r.ScreenWidth, Height: r.ScreenHeight}
	var sx, sy float64
	var n int
	for _, eye := range []EyeRecord{r.Left, r.Right} {
		ex, ey := eye.FilteredX, eye.FilteredY
		if math.IsNaN(ex) || math.IsNaN(ey) {
			ex, ey = eye.GazeX, eye.GazeY
		}
		if math.IsNaN(ex) || math.IsNaN(ey) {
			continue
		}
		px, py := screen.ToPixels(ex, ey)
		sx += px
		sy += py
		n++
	}
	if n == 0 {
		return math.NaN(), math.NaN(), false
	}
	return sx / float64(n), sy / float64(n), true
}

// FormatChannel renders one channel value for the CSV wire format. NaN
// prints literally as "NaN", which strconv.ParseFloat reads back.
func FormatChannel(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func boolChannel(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
