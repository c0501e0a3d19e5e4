package envmap

import (
	"errors"
	"math"
	"sync"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"envmap/internal/models"
	"envmap/pkg/grid"
	"envmap/pkg/interpolation"
	"envmap/pkg/projection"
)

// radiance is a smooth test signal over directions, one value per channel
func radiance(d r3.Vec, ch int) float64 {
	switch ch {
	case 0:
		return 0.5 + 0.25*d.X
	case 1:
		return 0.5 + 0.3*d.Y
	default:
		return 0.5 - 0.2*d.Z + 0.1*d.X*d.Y
	}
}

// createEnvironment renders radiance into a rows x cols map in format f.
// Pixels without a direction are set to -1.
func createEnvironment(t *testing.T, f projection.Format, rows, cols int) *EnvironmentMap {
	t.Helper()

	data := models.NewPixelData(rows, cols, 3)
	u, v := grid.Generate(rows, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			d, valid := f.ImageToWorld(u.At(r, c), v.At(r, c))
			for ch := 0; ch < 3; ch++ {
				val := -1.0
				if valid {
					val = radiance(d, ch)
				}
				data.Set(r, c, ch, val)
			}
		}
	}

	e, err := NewWithFormat(data, f)
	if err != nil {
		t.Fatalf("NewWithFormat: %v", err)
	}
	return e
}

// TestConvertLatLongToAngular covers the 4x4x3 zero buffer scenario
func TestConvertLatLongToAngular(t *testing.T) {
	e, err := New(models.NewPixelData(4, 4, 3), "latlong")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := e.ConvertTo("angular"); err != nil {
		t.Fatalf("ConvertTo: %v", err)
	}

	if e.Format() != projection.Angular {
		t.Errorf("Expected format angular, got %v", e.Format())
	}
	rows, cols, channels := e.Shape()
	if rows != 4 || cols != 4 || channels != 3 {
		t.Fatalf("Expected shape 4x4x3, got %dx%dx%d", rows, cols, channels)
	}

	for _, p := range [][2]int{{0, 0}, {0, 3}, {3, 0}, {3, 3}} {
		for ch := 0; ch < 3; ch++ {
			if got := e.Data().At(p[0], p[1], ch); got != 0 {
				t.Errorf("Corner %v channel %d = %f, expected black background", p, ch, got)
			}
		}
	}
}

// TestConvertCenterIsInterpolated checks that the center of the angular
// output is sampled from the source rather than filled
func TestConvertCenterIsInterpolated(t *testing.T) {
	data := models.NewPixelData(4, 4, 3)
	for i := range data.Pix {
		data.Pix[i] = 0.75
	}
	e, err := New(data, "latlong")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := e.SetBackgroundColor([]float64{1, 0, 1}, NewMask(4, 4, true)); err != nil {
		t.Fatalf("SetBackgroundColor: %v", err)
	}

	if err := e.ConvertTo("ANGULAR"); err != nil {
		t.Fatalf("ConvertTo: %v", err)
	}

	for r := 1; r <= 2; r++ {
		for c := 1; c <= 2; c++ {
			for ch := 0; ch < 3; ch++ {
				if got := e.Data().At(r, c, ch); math.Abs(got-0.75) > 1e-12 {
					t.Errorf("Center pixel (%d, %d, %d) = %f, expected interpolated 0.75", r, c, ch, got)
				}
			}
		}
	}
	for ch, want := range []float64{1, 0, 1} {
		if got := e.Data().At(0, 0, ch); got != want {
			t.Errorf("Corner channel %d = %f, expected background %f", ch, got, want)
		}
	}
}

// TestConvertInvalidFormat verifies a failed conversion leaves the map intact
func TestConvertInvalidFormat(t *testing.T) {
	e := createEnvironment(t, projection.LatLong, 8, 16)
	before := e.Data().Clone()

	if err := e.ConvertTo("mirrorball"); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("Expected ErrInvalidFormat, got %v", err)
	}
	if err := e.ConvertToFormat(projection.Format(12)); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("Expected ErrInvalidFormat, got %v", err)
	}
	if e.Format() != projection.LatLong {
		t.Errorf("Format changed to %v", e.Format())
	}
	for i := range before.Pix {
		if before.Pix[i] != e.Data().Pix[i] {
			t.Fatalf("Sample %d changed after failed conversion", i)
		}
	}
}

// TestReprojectMatchesDirectRendering compares a conversion against the
// signal rendered directly in the target format
func TestReprojectMatchesDirectRendering(t *testing.T) {
	everywhere := func(d r3.Vec) bool { return true }

	tests := []struct {
		from, to projection.Format
		keep     func(d r3.Vec) bool
	}{
		{projection.LatLong, projection.Angular, everywhere},
		{projection.LatLong, projection.SkyAngular, everywhere},
		// The angular map is only finely sampled away from its rim
		{projection.Angular, projection.LatLong, func(d r3.Vec) bool { return d.Z < -0.2 }},
	}

	for _, tt := range tests {
		src := createEnvironment(t, tt.from, 128, 128)
		if err := src.SetBackgroundColor([]float64{-1, -1, -1}, src.ValidMask()); err != nil {
			t.Fatalf("SetBackgroundColor: %v", err)
		}
		want := createEnvironment(t, tt.to, 128, 128)
		world := worldCoordinates(tt.to, 128, 128)

		out, valid, err := src.Reproject(tt.to)
		if err != nil {
			t.Fatalf("%v -> %v: %v", tt.from, tt.to, err)
		}
		if src.Format() != tt.from {
			t.Errorf("Reproject modified the source format")
		}

		// Compare only pixels that were filled from the source
		mask := NewMask(valid.Rows, valid.Cols, false)
		for r := 0; r < valid.Rows; r++ {
			for c := 0; c < valid.Cols; c++ {
				mask.Set(r, c, valid.At(r, c) && out.At(r, c, 0) != -1 && tt.keep(world.Direction(r, c)))
			}
		}
		if mask.Count() < valid.Count()/4 {
			t.Fatalf("%v -> %v: only %d of %d valid pixels compared", tt.from, tt.to, mask.Count(), valid.Count())
		}

		m, err := Compare(want.Data(), out, mask)
		if err != nil {
			t.Fatalf("Compare: %v", err)
		}
		if m.RMSE > 0.01 {
			t.Errorf("%v -> %v: RMSE %f exceeds 0.01", tt.from, tt.to, m.RMSE)
		}
	}
}

// TestCrossFormatRoundTrip converts A -> B -> A and compares pixels that are
// valid in both formats
func TestCrossFormatRoundTrip(t *testing.T) {
	e := createEnvironment(t, projection.LatLong, 128, 256)
	if err := e.SetBackgroundColor([]float64{-1, -1, -1}, e.ValidMask()); err != nil {
		t.Fatalf("SetBackgroundColor: %v", err)
	}
	original := e.Data().Clone()

	if err := e.ConvertTo("skyangular"); err != nil {
		t.Fatalf("ConvertTo skyangular: %v", err)
	}
	if err := e.ConvertTo("latlong"); err != nil {
		t.Fatalf("ConvertTo latlong: %v", err)
	}

	// The sky-angular map covers the upper hemisphere; stay a few rows clear
	// of the horizon where the disk rim is sampled, and clear of the seam
	// where the first conversion left the domain of the source grid
	mask := NewMask(128, 256, false)
	for r := 0; r < 56; r++ {
		for c := 8; c < 248; c++ {
			mask.Set(r, c, e.Data().At(r, c, 0) != -1)
		}
	}
	if mask.Count() < 40*240 {
		t.Fatalf("Only %d pixels survived the round trip", mask.Count())
	}

	m, err := Compare(original, e.Data(), mask)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if m.RMSE > 0.01 {
		t.Errorf("Round trip RMSE %f exceeds 0.01", m.RMSE)
	}
	if m.Correlation < 0.99 {
		t.Errorf("Round trip correlation %f below 0.99", m.Correlation)
	}
}

// TestResampleClosesSentinelGap verifies that pixels flagged valid but sampled
// outside the source domain receive the background color
func TestResampleClosesSentinelGap(t *testing.T) {
	src := createConstantData(2, 2, 2, 0.5)

	// Query (0.1, 0.5) lies left of the first pixel center at 0.25
	u := mat.NewDense(1, 2, []float64{0.1, 0.5})
	v := mat.NewDense(1, 2, []float64{0.5, 0.5})
	valid := NewMask(1, 2, true)

	out, _, err := Resample(src, u, v, valid, []float64{0.9, 0.8})
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}

	if out.At(0, 0, 0) != 0.9 || out.At(0, 0, 1) != 0.8 {
		t.Errorf("Out-of-domain pixel = (%f, %f), expected background", out.At(0, 0, 0), out.At(0, 0, 1))
	}
	if out.At(0, 1, 0) != 0.5 || out.At(0, 1, 1) != 0.5 {
		t.Errorf("In-domain pixel = (%f, %f), expected 0.5", out.At(0, 1, 0), out.At(0, 1, 1))
	}
	for _, s := range out.Pix {
		if interpolation.IsInvalid(s) {
			t.Fatal("Sentinel leaked into the output")
		}
	}
}

// TestResampleValidation verifies argument checks
func TestResampleValidation(t *testing.T) {
	src := createConstantData(2, 2, 3, 0)
	u, v := grid.Generate(2, 2)

	if _, _, err := Resample(src, u, v, nil, []float64{0, 0, 0}); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Expected ErrTypeMismatch, got %v", err)
	}
	if _, _, err := Resample(src, u, v, NewMask(1, 4, true), []float64{0, 0, 0}); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Expected ErrShapeMismatch, got %v", err)
	}
	if _, _, err := Resample(src, u, v, NewMask(2, 2, true), []float64{0}); !errors.Is(err, ErrChannelMismatch) {
		t.Errorf("Expected ErrChannelMismatch, got %v", err)
	}
	if _, _, err := Resample(src, u, mat.NewDense(2, 1, nil), NewMask(2, 2, true), []float64{0, 0, 0}); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Expected ErrShapeMismatch for mismatched v, got %v", err)
	}
}

// TestResampleIdentity verifies sampling at the source's own centers
// reproduces the source for both methods
func TestResampleIdentity(t *testing.T) {
	e := createEnvironment(t, projection.LatLong, 6, 10)
	u, v := e.ImageCoordinates()

	for _, method := range []interpolation.Method{interpolation.Linear, interpolation.Nearest} {
		out, _, err := Resample(e.Data(), u, v, NewMask(6, 10, true), e.BackgroundColor(), WithMethod(method))
		if err != nil {
			t.Fatalf("Resample(%v): %v", method, err)
		}
		for i := range out.Pix {
			if math.Abs(out.Pix[i]-e.Data().Pix[i]) > 1e-12 {
				t.Fatalf("%v: sample %d = %f, expected %f", method, i, out.Pix[i], e.Data().Pix[i])
			}
		}
	}
}

// TestResampleWorkersAgree verifies channel parallelism does not change results
func TestResampleWorkersAgree(t *testing.T) {
	e := createEnvironment(t, projection.LatLong, 32, 64)
	target := worldCoordinates(projection.Angular, 32, 64)
	u, v := e.lookup(target)

	var mu sync.Mutex
	calls := 0
	progress := func(completed, total int, message string) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if total != 3 || completed > total {
			t.Errorf("Unexpected progress %d/%d", completed, total)
		}
	}

	serial, _, err := Resample(e.Data(), u, v, target.Valid, e.BackgroundColor(), WithWorkers(1), WithProgress(progress))
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}
	parallel, _, err := Resample(e.Data(), u, v, target.Valid, e.BackgroundColor(), WithWorkers(3))
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}

	if calls != 3 {
		t.Errorf("Expected 3 progress calls, got %d", calls)
	}
	for i := range serial.Pix {
		if serial.Pix[i] != parallel.Pix[i] {
			t.Fatalf("Sample %d differs: %f vs %f", i, serial.Pix[i], parallel.Pix[i])
		}
	}
}

// BenchmarkConvert measures a 256x512 latlong to angular conversion
func BenchmarkConvert(b *testing.B) {
	data := createConstantData(256, 512, 3, 0.5)
	for i := 0; i < b.N; i++ {
		e, err := New(data.Clone(), "latlong")
		if err != nil {
			b.Fatalf("New: %v", err)
		}
		if err := e.ConvertTo("angular"); err != nil {
			b.Fatalf("ConvertTo: %v", err)
		}
	}
}
