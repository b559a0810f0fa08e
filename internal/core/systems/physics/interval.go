package physics

import (
	"fmt"
	"math"
)

// AxisOverlap is the 1D separating-axis test: two extents overlap when the
// distance between their centers does not exceed the sum of their half
// extents. Touching extents overlap.
func AxisOverlap(centerA, centerB, halfA, halfB float64) bool {
	return math.Abs(centerA-centerB) <= halfA+halfB
}

// Interval is one axis-aligned extent.
type Interval struct {
	Center     float64
	HalfExtent float64
}

func NewInterval(center, halfExtent float64) (Interval, error) {
	if halfExtent < 0 || math.IsNaN(halfExtent) {
		return Interval{}, fmt.Errorf("%w: %g", ErrNegativeHalfExtent, halfExtent)
	}
	return Interval{Center: center, HalfExtent: halfExtent}, nil
}

func (i Interval) Min() float64 { return i.Center - i.HalfExtent }

func (i Interval) Max() float64 { return i.Center + i.HalfExtent }

func (i Interval) Overlaps(o Interval) bool {
	return AxisOverlap(i.Center, o.Center, i.HalfExtent, o.HalfExtent)
}
