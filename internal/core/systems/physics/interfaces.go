package physics

// Lightweight 3D math for axis-aligned boxes. Kept dependency free so the
// collision and scene packages can share it.

// Axis selects one coordinate of a Vec3.
type Axis uint8

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// Axes lists the three axes in order.
var Axes = [3]Axis{AxisX, AxisY, AxisZ}

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return "?"
	}
}
