// Package units provides shared constants and conversion between pixel
// distances on the display and degrees of visual angle
package units

import "math"

// Unit constants
const (
	PX  = "px"
	DEG = "deg"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{PX, DEG}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "px, deg"
}

// Geometry is the physical viewing setup needed to express a pixel
// distance as visual angle: how wide the display is in pixels and
// millimetres, and how far the viewer sits from it.
type Geometry struct {
	ScreenWidthPx float64
	ScreenWidthMM float64
	DistanceMM    float64
}

// PixelsPerDegree returns how many pixels one degree of visual angle
// spans at the configured viewing distance. The small-angle region near
// the screen centre is assumed, which is where validation targets live.
func (g Geometry) PixelsPerDegree() float64 {
	mmPerPx := g.ScreenWidthMM / g.ScreenWidthPx
	mmPerDeg := 2 * g.DistanceMM * math.Tan(0.5*math.Pi/180)
	return mmPerDeg / mmPerPx
}

// Convert converts a pixel distance to the target units
// Gaze metrics are computed in pixels
func (g Geometry) Convert(px float64, targetUnits string) float64 {
	switch targetUnits {
	case DEG:
		return px / g.PixelsPerDegree()
	case PX:
		return px // no conversion needed
	default:
		return px // default to pixels if unknown unit
	}
}
