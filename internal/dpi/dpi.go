// Package dpi converts between logical and physical screen coordinates.
//
// Logical coordinates are scaled by the window's scale factor to obtain
// physical pixels. The scale factor itself is computed by the windowing
// layer and only consumed here.
package dpi

import (
	"fmt"
	"math"
)

// minNormal is the smallest positive normal float64.
const minNormal = 0x1p-1022

// ValidScaleFactor reports whether f can be used as a scale factor:
// it must be a normal, positive, finite number.
func ValidScaleFactor(f float64) bool {
	return f >= minNormal && !math.IsInf(f, 0)
}

// Position is either a LogicalPosition or a PhysicalPosition.
type Position interface {
	// ToPhysical converts the position to physical pixels.
	ToPhysical(scale float64) PhysicalPosition
}

// LogicalPosition is a position in device-independent units.
type LogicalPosition struct {
	X, Y float64
}

// ToPhysical multiplies by scale and rounds to the nearest pixel.
func (p LogicalPosition) ToPhysical(scale float64) PhysicalPosition {
	return PhysicalPosition{
		X: roundToInt32(p.X * scale),
		Y: roundToInt32(p.Y * scale),
	}
}

func (p LogicalPosition) String() string {
	return fmt.Sprintf("logical(%g, %g)", p.X, p.Y)
}

// PhysicalPosition is a position in physical pixels.
type PhysicalPosition struct {
	X, Y int32
}

// ToPhysical returns p unchanged; physical positions are not scaled.
func (p PhysicalPosition) ToPhysical(float64) PhysicalPosition {
	return p
}

func (p PhysicalPosition) String() string {
	return fmt.Sprintf("physical(%d, %d)", p.X, p.Y)
}

// roundToInt32 rounds half away from zero and saturates at the int32 range.
func roundToInt32(v float64) int32 {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	}
	return int32(math.Round(v))
}
