// Package envmap represents omnidirectional images stored in one of the
// registered panoramic projections and converts them between projections by
// resampling through world directions.
package envmap

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"envmap/internal/models"
	"envmap/pkg/grid"
	"envmap/pkg/projection"
)

var (
	// ErrInvalidFormat is returned for format identifiers outside the registry
	ErrInvalidFormat = projection.ErrInvalidFormat

	// ErrShapeMismatch is returned when a mask does not match the image size
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrTypeMismatch is returned when a boolean validity mask is required
	// but none was supplied
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrChannelMismatch is returned when a color does not have one value per channel
	ErrChannelMismatch = errors.New("channel count mismatch")

	// ErrInvalidBuffer is returned for nil or malformed pixel buffers
	ErrInvalidBuffer = errors.New("invalid pixel buffer")
)

// Mask flags which pixels of an image hold a physically meaningful direction.
type Mask struct {
	Rows, Cols int

	// Valid is stored row-major
	Valid []bool
}

// NewMask returns a mask of the given size with every pixel set to valid.
func NewMask(rows, cols int, valid bool) *Mask {
	m := &Mask{Rows: rows, Cols: cols, Valid: make([]bool, rows*cols)}
	if valid {
		for i := range m.Valid {
			m.Valid[i] = true
		}
	}
	return m
}

// At reports whether pixel (r, c) is valid.
func (m *Mask) At(r, c int) bool {
	return m.Valid[r*m.Cols+c]
}

// Set marks pixel (r, c).
func (m *Mask) Set(r, c int, valid bool) {
	m.Valid[r*m.Cols+c] = valid
}

// Count returns the number of valid pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Valid {
		if v {
			n++
		}
	}
	return n
}

// And returns the intersection of two masks of the same shape.
func (m *Mask) And(other *Mask) (*Mask, error) {
	if other == nil {
		return nil, fmt.Errorf("%w: mask is nil", ErrTypeMismatch)
	}
	if m.Rows != other.Rows || m.Cols != other.Cols {
		return nil, fmt.Errorf("%w: %dx%d and %dx%d", ErrShapeMismatch, m.Rows, m.Cols, other.Rows, other.Cols)
	}
	out := NewMask(m.Rows, m.Cols, false)
	for i := range out.Valid {
		out.Valid[i] = m.Valid[i] && other.Valid[i]
	}
	return out, nil
}

// WorldCoordinates holds the direction seen through each pixel center.
type WorldCoordinates struct {
	X, Y, Z *mat.Dense
	Valid   *Mask
}

// Direction returns the direction of pixel (r, c).
func (w *WorldCoordinates) Direction(r, c int) r3.Vec {
	return r3.Vec{X: w.X.At(r, c), Y: w.Y.At(r, c), Z: w.Z.At(r, c)}
}

// EnvironmentMap is a panoramic image tagged with its projection.
type EnvironmentMap struct {
	// data holds the pixel samples
	data *models.PixelData

	// format is the projection the samples are stored in
	format projection.Format

	// background fills pixels that have no valid direction
	background []float64
}

// New creates an environment map from a pixel buffer and a case-insensitive
// format identifier. The background color starts black.
func New(data *models.PixelData, format string) (*EnvironmentMap, error) {
	f, err := projection.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return NewWithFormat(data, f)
}

// NewWithFormat creates an environment map from an already parsed format.
func NewWithFormat(data *models.PixelData, format projection.Format) (*EnvironmentMap, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFormat, int(format))
	}
	if err := data.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBuffer, err)
	}

	return &EnvironmentMap{
		data:       data,
		format:     format,
		background: make([]float64, data.Channels),
	}, nil
}

// Data returns the pixel buffer. The buffer is shared with the map.
func (e *EnvironmentMap) Data() *models.PixelData {
	return e.data
}

// Format returns the current projection.
func (e *EnvironmentMap) Format() projection.Format {
	return e.format
}

// BackgroundColor returns a copy of the background color.
func (e *EnvironmentMap) BackgroundColor() []float64 {
	return append([]float64(nil), e.background...)
}

// Shape returns the image size and channel count.
func (e *EnvironmentMap) Shape() (rows, cols, channels int) {
	return e.data.Rows, e.data.Cols, e.data.Channels
}

// ImageCoordinates returns the (u, v) center of every pixel.
func (e *EnvironmentMap) ImageCoordinates() (u, v *mat.Dense) {
	return grid.Generate(e.data.Rows, e.data.Cols)
}

// WorldCoordinates returns the direction of every pixel center in the
// current projection along with the validity mask.
func (e *EnvironmentMap) WorldCoordinates() *WorldCoordinates {
	return worldCoordinates(e.format, e.data.Rows, e.data.Cols)
}

// ValidMask returns which pixels of the current projection hold a direction.
func (e *EnvironmentMap) ValidMask() *Mask {
	return e.WorldCoordinates().Valid
}

// SetBackgroundColor stores color as the background and writes it into every
// pixel flagged invalid by valid. Nothing changes if validation fails.
func (e *EnvironmentMap) SetBackgroundColor(color []float64, valid *Mask) error {
	if valid == nil {
		return fmt.Errorf("%w: valid must be a boolean mask", ErrTypeMismatch)
	}
	if valid.Rows != e.data.Rows || valid.Cols != e.data.Cols || len(valid.Valid) != valid.Rows*valid.Cols {
		return fmt.Errorf("%w: mask is %dx%d, map is %dx%d",
			ErrShapeMismatch, valid.Rows, valid.Cols, e.data.Rows, e.data.Cols)
	}
	if len(color) != e.data.Channels {
		return fmt.Errorf("%w: color has %d values, map has %d channels",
			ErrChannelMismatch, len(color), e.data.Channels)
	}

	e.background = append([]float64(nil), color...)
	fillBackground(e.data, valid, e.background)
	return nil
}

// worldCoordinates passes the pixel-center grid of a rows x cols image
// through format's image-to-world transform.
func worldCoordinates(format projection.Format, rows, cols int) *WorldCoordinates {
	u, v := grid.Generate(rows, cols)

	w := &WorldCoordinates{
		X:     mat.NewDense(rows, cols, nil),
		Y:     mat.NewDense(rows, cols, nil),
		Z:     mat.NewDense(rows, cols, nil),
		Valid: NewMask(rows, cols, false),
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			d, ok := format.ImageToWorld(u.At(r, c), v.At(r, c))
			w.X.Set(r, c, d.X)
			w.Y.Set(r, c, d.Y)
			w.Z.Set(r, c, d.Z)
			w.Valid.Set(r, c, ok)
		}
	}
	return w
}

// fillBackground overwrites every channel of the invalid pixels.
func fillBackground(data *models.PixelData, valid *Mask, color []float64) {
	for r := 0; r < data.Rows; r++ {
		for c := 0; c < data.Cols; c++ {
			if valid.At(r, c) {
				continue
			}
			off := data.Offset(r, c)
			copy(data.Pix[off:off+data.Channels], color)
		}
	}
}
