package envmap

import (
	"envmap/pkg/projection"
)

// Coverage returns the pixels of a rows x cols image in projection from whose
// direction is also inside the field of view of projection to.
func Coverage(from, to projection.Format, rows, cols int) *Mask {
	world := worldCoordinates(from, rows, cols)

	m := NewMask(rows, cols, false)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if !world.Valid.At(r, c) {
				continue
			}
			u, v := to.WorldToImage(world.Direction(r, c))
			_, ok := to.ImageToWorld(u, v)
			m.Set(r, c, ok)
		}
	}
	return m
}
