package physics

// Box3 is an AABB described by its center and full size.
type Box3 struct {
	Position Vec3
	Size     Vec3
}

func NewBox3(position, size Vec3) (Box3, error) {
	if err := ValidateSize(size); err != nil {
		return Box3{}, err
	}
	return Box3{Position: position, Size: size}, nil
}

// Interval projects the box onto a.
func (b Box3) Interval(a Axis) Interval {
	return Interval{Center: b.Position.Axis(a), HalfExtent: b.Size.Axis(a) / 2}
}

func (b Box3) Min() Vec3 { return b.corner(Interval.Min) }

func (b Box3) Max() Vec3 { return b.corner(Interval.Max) }

func (b Box3) corner(end func(Interval) float64) Vec3 {
	return V3(end(b.Interval(AxisX)), end(b.Interval(AxisY)), end(b.Interval(AxisZ)))
}
