// Package grid generates the per-pixel sampling coordinates shared by every
// projection format.
package grid

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Centers returns the centers of n equal bins spanning [0, 1], i.e.
// (2k+1)/(2n) for k in [0, n).
func Centers(n int) []float64 {
	if n <= 0 {
		panic(fmt.Sprintf("grid: non-positive size %d", n))
	}

	// Bin edges and centers interleave on a 2n+1 point span; keep the odd ones.
	span := floats.Span(make([]float64, 2*n+1), 0, 1)
	centers := make([]float64, n)
	for k := range centers {
		centers[k] = span[2*k+1]
	}
	return centers
}

// Generate returns the (u, v) pixel centers of a rows x cols image. Column
// index increases u and row index increases v.
func Generate(rows, cols int) (u, v *mat.Dense) {
	us := Centers(cols)
	vs := Centers(rows)

	u = mat.NewDense(rows, cols, nil)
	v = mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		u.SetRow(r, us)
		for c := 0; c < cols; c++ {
			v.Set(r, c, vs[r])
		}
	}
	return u, v
}
