package offset

// PlanarOffset is the east/north translation that keeps projected
// coordinates small enough for float storage
type PlanarOffset struct {
	East  float64
	North float64
}

func NewPlanarOffset(east float64, north float64) PlanarOffset {
	return PlanarOffset{East: east, North: north}
}

// Apply moves offset-relative coordinates back to absolute ones
func (o PlanarOffset) Apply(x float64, y float64) (float64, float64) {
	return x + o.East, y + o.North
}

func (o PlanarOffset) Remove(x float64, y float64) (float64, float64) {
	return x - o.East, y - o.North
}

func (o PlanarOffset) IsZero() bool {
	return o.East == 0 && o.North == 0
}
