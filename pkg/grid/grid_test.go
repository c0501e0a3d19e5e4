package grid

import (
	"math"
	"testing"
)

// TestCenters verifies the bin centers for a few sizes
func TestCenters(t *testing.T) {
	tests := []struct {
		n    int
		want []float64
	}{
		{1, []float64{0.5}},
		{2, []float64{0.25, 0.75}},
		{4, []float64{0.125, 0.375, 0.625, 0.875}},
	}

	for _, tt := range tests {
		got := Centers(tt.n)
		if len(got) != len(tt.want) {
			t.Fatalf("Centers(%d): expected %d values, got %d", tt.n, len(tt.want), len(got))
		}
		for i := range got {
			if math.Abs(got[i]-tt.want[i]) > 1e-12 {
				t.Errorf("Centers(%d)[%d] = %f, expected %f", tt.n, i, got[i], tt.want[i])
			}
		}
	}
}

// TestGenerate verifies orientation and shape of the coordinate grid
func TestGenerate(t *testing.T) {
	rows, cols := 3, 5
	u, v := Generate(rows, cols)

	r, c := u.Dims()
	if r != rows || c != cols {
		t.Fatalf("Expected u of shape %dx%d, got %dx%d", rows, cols, r, c)
	}
	r, c = v.Dims()
	if r != rows || c != cols {
		t.Fatalf("Expected v of shape %dx%d, got %dx%d", rows, cols, r, c)
	}

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			wantU := float64(2*j+1) / float64(2*cols)
			wantV := float64(2*i+1) / float64(2*rows)
			if math.Abs(u.At(i, j)-wantU) > 1e-12 {
				t.Errorf("u[%d,%d] = %f, expected %f", i, j, u.At(i, j), wantU)
			}
			if math.Abs(v.At(i, j)-wantV) > 1e-12 {
				t.Errorf("v[%d,%d] = %f, expected %f", i, j, v.At(i, j), wantV)
			}
		}
	}
}

// TestCentersPanicsOnZero verifies the contract check
func TestCentersPanicsOnZero(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for zero size")
		}
	}()
	Centers(0)
}
