package physics

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrNegativeHalfExtent = errors.New("negative half extent")
	ErrInvalidSize        = errors.New("size components must be >= 0")
)

type Vec3 struct{ Xv, Yv, Zv float64 }

func V3(x, y, z float64) Vec3 { return Vec3{Xv: x, Yv: y, Zv: z} }

// Axis returns the component on a.
func (v Vec3) Axis(a Axis) float64 {
	switch a {
	case AxisX:
		return v.Xv
	case AxisY:
		return v.Yv
	default:
		return v.Zv
	}
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v.Xv, v.Yv, v.Zv)
}

// ValidateSize reports ErrInvalidSize when any component is negative or NaN.
func ValidateSize(size Vec3) error {
	for _, a := range Axes {
		c := size.Axis(a)
		if c < 0 || math.IsNaN(c) {
			return fmt.Errorf("%w: %s=%g", ErrInvalidSize, a, c)
		}
	}
	return nil
}

// FromSlice converts a config triple. It fails unless len(xs) == 3.
func FromSlice(xs []float64) (Vec3, error) {
	if len(xs) != 3 {
		return Vec3{}, fmt.Errorf("vector needs 3 components, got %d", len(xs))
	}
	return V3(xs[0], xs[1], xs[2]), nil
}
