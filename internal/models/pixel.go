package models

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// PixelData is a floating point image buffer stored row-major with the
// channels of each pixel adjacent (channel-last).
type PixelData struct {
	// Rows is the image height in pixels
	Rows int

	// Cols is the image width in pixels
	Cols int

	// Channels is the number of samples per pixel
	Channels int

	// Pix holds Rows*Cols*Channels samples
	Pix []float64
}

// NewPixelData allocates a zero-filled buffer of the given shape.
func NewPixelData(rows, cols, channels int) *PixelData {
	return &PixelData{
		Rows:     rows,
		Cols:     cols,
		Channels: channels,
		Pix:      make([]float64, rows*cols*channels),
	}
}

// Validate reports whether the buffer shape is usable.
func (p *PixelData) Validate() error {
	if p == nil {
		return fmt.Errorf("pixel data is nil")
	}
	if p.Rows <= 0 || p.Cols <= 0 || p.Channels <= 0 {
		return fmt.Errorf("invalid shape %dx%dx%d", p.Rows, p.Cols, p.Channels)
	}
	if len(p.Pix) != p.Rows*p.Cols*p.Channels {
		return fmt.Errorf("buffer holds %d samples, shape %dx%dx%d needs %d",
			len(p.Pix), p.Rows, p.Cols, p.Channels, p.Rows*p.Cols*p.Channels)
	}
	return nil
}

// Offset returns the index of the first sample of pixel (r, c).
func (p *PixelData) Offset(r, c int) int {
	return (r*p.Cols + c) * p.Channels
}

// At returns channel ch of pixel (r, c).
func (p *PixelData) At(r, c, ch int) float64 {
	return p.Pix[p.Offset(r, c)+ch]
}

// Set assigns channel ch of pixel (r, c).
func (p *PixelData) Set(r, c, ch int, v float64) {
	p.Pix[p.Offset(r, c)+ch] = v
}

// Channel copies one channel into a Rows x Cols matrix.
func (p *PixelData) Channel(ch int) *mat.Dense {
	plane := make([]float64, p.Rows*p.Cols)
	for i := range plane {
		plane[i] = p.Pix[i*p.Channels+ch]
	}
	return mat.NewDense(p.Rows, p.Cols, plane)
}

// SetChannel writes a Rows x Cols matrix into channel ch.
func (p *PixelData) SetChannel(ch int, plane mat.Matrix) {
	for r := 0; r < p.Rows; r++ {
		for c := 0; c < p.Cols; c++ {
			p.Pix[p.Offset(r, c)+ch] = plane.At(r, c)
		}
	}
}

// Clone returns a deep copy.
func (p *PixelData) Clone() *PixelData {
	out := &PixelData{Rows: p.Rows, Cols: p.Cols, Channels: p.Channels}
	out.Pix = append([]float64(nil), p.Pix...)
	return out
}
