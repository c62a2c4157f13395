package gaze

import "math"

// Screen holds the session-static display dimensions in pixels. Gaze
// coordinates arrive normalized to [0,1]; velocity and validation math
// happen in pixel space.
type Screen struct {
	Width  float64
	Height float64
}

// ToPixels maps a normalized coordinate pair onto this screen.
func (s Screen) ToPixels(x, y float64) (px, py float64) {
	return x * s.Width, y * s.Height
}

// PixelVelocity returns the on-screen speed in pixels/second between two
// consecutive normalized positions dt seconds apart.
//
// A NaN coordinate on either side or a non-positive dt yields 0: a lost
// eye or a duplicated timestamp records no movement rather than an
// extreme saccade.
func PixelVelocity(prevX, prevY, currX, currY, dt float64, screen Screen) float64 {
	if dt <= 0 {
		return 0
	}
	if math.IsNaN(prevX) || math.IsNaN(prevY) || math.IsNaN(currX) || math.IsNaN(currY) {
		return 0
	}
	px0, py0 := screen.ToPixels(prevX, prevY)
	px1, py1 := screen.ToPixels(currX, currY)
	return math.Hypot(px1-px0, py1-py0) / dt
}
