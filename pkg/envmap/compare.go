package envmap

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"envmap/internal/models"
	"envmap/pkg/interpolation"
)

// Metrics summarizes the difference between two images over a mask.
type Metrics struct {
	// Samples is the number of channel samples compared
	Samples int

	// RMSE is the root mean square error
	RMSE float64

	// MAE is the mean absolute error
	MAE float64

	// MaxError is the largest absolute difference
	MaxError float64

	// Correlation is the Pearson correlation of the compared samples. It is
	// NaN when either side has no variance.
	Correlation float64
}

// Compare measures how closely b reproduces a on the pixels flagged in mask.
// Samples holding the invalid sentinel on either side are skipped. A nil mask
// compares every pixel.
func Compare(a, b *models.PixelData, mask *Mask) (Metrics, error) {
	if err := a.Validate(); err != nil {
		return Metrics{}, fmt.Errorf("%w: %v", ErrInvalidBuffer, err)
	}
	if err := b.Validate(); err != nil {
		return Metrics{}, fmt.Errorf("%w: %v", ErrInvalidBuffer, err)
	}
	if a.Rows != b.Rows || a.Cols != b.Cols || a.Channels != b.Channels {
		return Metrics{}, fmt.Errorf("%w: %dx%dx%d and %dx%dx%d", ErrShapeMismatch,
			a.Rows, a.Cols, a.Channels, b.Rows, b.Cols, b.Channels)
	}
	if mask == nil {
		mask = NewMask(a.Rows, a.Cols, true)
	}
	if mask.Rows != a.Rows || mask.Cols != a.Cols {
		return Metrics{}, fmt.Errorf("%w: mask is %dx%d, images are %dx%d",
			ErrShapeMismatch, mask.Rows, mask.Cols, a.Rows, a.Cols)
	}

	var xs, ys []float64
	for r := 0; r < a.Rows; r++ {
		for c := 0; c < a.Cols; c++ {
			if !mask.At(r, c) {
				continue
			}
			for ch := 0; ch < a.Channels; ch++ {
				x, y := a.At(r, c, ch), b.At(r, c, ch)
				if interpolation.IsInvalid(x) || interpolation.IsInvalid(y) {
					continue
				}
				xs = append(xs, x)
				ys = append(ys, y)
			}
		}
	}

	m := Metrics{Samples: len(xs)}
	if m.Samples == 0 {
		return m, nil
	}

	diff := make([]float64, len(xs))
	floats.SubTo(diff, xs, ys)
	m.RMSE = floats.Norm(diff, 2) / math.Sqrt(float64(len(diff)))
	m.MAE = floats.Norm(diff, 1) / float64(len(diff))
	m.MaxError = floats.Norm(diff, math.Inf(1))
	m.Correlation = stat.Correlation(xs, ys, nil)
	return m, nil
}
