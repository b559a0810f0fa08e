package collision

import (
	"github.com/zeusync/collider/internal/core/signal"
	"github.com/zeusync/collider/internal/core/systems/physics"
)

// Overlaps is the reactive 1D overlap test |centerA-centerB| <= halfA+halfB.
// Half extents are signals so sizes can animate. A negative half extent at
// construction is rejected; one that turns negative later reads as no overlap.
func Overlaps(centerA, centerB, halfA, halfB signal.Signal[float64]) (signal.Signal[bool], error) {
	if centerA == nil || centerB == nil || halfA == nil || halfB == nil {
		return nil, ErrNilBox
	}
	for _, h := range []signal.Signal[float64]{halfA, halfB} {
		if _, err := physics.NewInterval(0, h.Get()); err != nil {
			return nil, err
		}
	}
	return overlap(centerA, centerB, halfA, halfB), nil
}

func overlap(centerA, centerB, halfA, halfB signal.Signal[float64]) signal.Signal[bool] {
	return signal.Combine([]signal.Signal[float64]{centerA, centerB, halfA, halfB}, func(v []float64) bool {
		if v[2] < 0 || v[3] < 0 {
			return false
		}
		a := physics.Interval{Center: v[0], HalfExtent: v[2]}
		return a.Overlaps(physics.Interval{Center: v[1], HalfExtent: v[3]})
	})
}

// AxisTests returns the per-axis overlap signals of a and b in X, Y, Z order.
func AxisTests(a, b Collidable) [3]signal.Signal[bool] {
	ba, bb := a.Box(), b.Box()
	var out [3]signal.Signal[bool]
	for i := range physics.Axes {
		out[i] = overlap(ba.centers[i], bb.centers[i], ba.halves[i], bb.halves[i])
	}
	return out
}

// Collides is true iff the boxes of a and b overlap on all three axes and
// both boxes are ready. a == b is not special cased: a ready box always
// collides with itself.
func Collides(a, b Collidable) signal.Signal[bool] {
	axes := AxisTests(a, b)
	return signal.All(gated(axes[:], a.Box(), b.Box())...)
}

func gated(tests []signal.Signal[bool], boxes ...*Box) []signal.Signal[bool] {
	out := make([]signal.Signal[bool], 0, len(tests)+len(boxes))
	out = append(out, tests...)
	for _, b := range boxes {
		if b.ready != nil {
			out = append(out, b.ready)
		}
	}
	return out
}

// CollidesWithAny is true iff a collides with at least one of others. No
// others yields a constant false.
func CollidesWithAny(a Collidable, others ...Collidable) signal.Signal[bool] {
	return NewSet(a, others...).Any()
}
