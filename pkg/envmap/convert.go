package envmap

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"envmap/internal/models"
	"envmap/pkg/projection"
)

// Reproject resamples the map into target at the same resolution. It returns
// the new buffer and a mask of the pixels that were filled from the map, which
// is target's validity mask minus directions that fell outside the map's
// sampling domain. The map itself is not modified.
func (e *EnvironmentMap) Reproject(target projection.Format, opts ...Option) (*models.PixelData, *Mask, error) {
	if !target.Valid() {
		return nil, nil, fmt.Errorf("%w: %d", ErrInvalidFormat, int(target))
	}

	// Directions the output image must sample, taken from a scratch map of
	// the same shape in the target projection
	scratch, err := NewWithFormat(models.NewPixelData(e.data.Rows, e.data.Cols, e.data.Channels), target)
	if err != nil {
		return nil, nil, err
	}
	world := scratch.WorldCoordinates()

	// Where those directions are stored in the current projection
	u, v := e.lookup(world)

	return Resample(e.data, u, v, world.Valid, e.background, opts...)
}

// ConvertTo converts the map in place to the named format.
func (e *EnvironmentMap) ConvertTo(target string, opts ...Option) error {
	f, err := projection.ParseFormat(target)
	if err != nil {
		return err
	}
	return e.ConvertToFormat(f, opts...)
}

// ConvertToFormat converts the map in place to target. On error the map is
// left unchanged.
func (e *EnvironmentMap) ConvertToFormat(target projection.Format, opts ...Option) error {
	out, _, err := e.Reproject(target, opts...)
	if err != nil {
		return fmt.Errorf("convert %s to %s: %w", e.format, target, err)
	}

	e.data = out
	e.format = target
	return nil
}

// lookup projects world directions into the map's current image plane.
func (e *EnvironmentMap) lookup(world *WorldCoordinates) (u, v *mat.Dense) {
	rows, cols := world.X.Dims()
	u = mat.NewDense(rows, cols, nil)
	v = mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			pu, pv := e.format.WorldToImage(world.Direction(r, c))
			u.Set(r, c, pu)
			v.Set(r, c, pv)
		}
	}
	return u, v
}
