package interpolation

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Invalid is the value returned for queries outside the grid domain.
var Invalid = math.NaN()

// IsInvalid reports whether v is the out-of-domain sentinel.
func IsInvalid(v float64) bool {
	return math.IsNaN(v)
}

// Method selects how values between grid nodes are estimated.
type Method int

const (
	// Linear interpolates bilinearly between the four surrounding nodes
	Linear Method = iota
	// Nearest takes the value of the closest node
	Nearest
)

// ParseMethod resolves a method name ("linear" or "nearest").
func ParseMethod(name string) (Method, error) {
	switch name {
	case "", "linear":
		return Linear, nil
	case "nearest":
		return Nearest, nil
	default:
		return 0, fmt.Errorf("unknown interpolation method: %s", name)
	}
}

func (m Method) String() string {
	switch m {
	case Linear:
		return "linear"
	case Nearest:
		return "nearest"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// Point2D is a query location in grid coordinates
type Point2D struct {
	X, Y float64
}

// RegularGrid interpolates values sampled on a rectilinear grid. Node (i, j)
// of values sits at (xs[j], ys[i]), so rows follow y and columns follow x.
//
// Queries outside [xs[0], xs[n-1]] x [ys[0], ys[m-1]] return Invalid rather
// than being clamped or wrapped.
type RegularGrid struct {
	xs     []float64
	ys     []float64
	values mat.Matrix
	method Method
}

// NewRegularGrid creates an interpolator over the given axes. The axes must be
// strictly increasing and match the dimensions of values.
func NewRegularGrid(xs, ys []float64, values mat.Matrix, method Method) (*RegularGrid, error) {
	rows, cols := values.Dims()
	if len(xs) != cols || len(ys) != rows {
		return nil, fmt.Errorf("axes of length %d x %d do not match %dx%d values", len(xs), len(ys), rows, cols)
	}
	if !strictlyIncreasing(xs) || !strictlyIncreasing(ys) {
		return nil, fmt.Errorf("grid axes must be strictly increasing")
	}
	if method != Linear && method != Nearest {
		return nil, fmt.Errorf("unknown interpolation method %d", int(method))
	}

	return &RegularGrid{
		xs:     xs,
		ys:     ys,
		values: values,
		method: method,
	}, nil
}

// At returns the interpolated value at (x, y).
func (g *RegularGrid) At(x, y float64) float64 {
	j, tx, ok := locate(g.xs, x)
	if !ok {
		return Invalid
	}
	i, ty, ok := locate(g.ys, y)
	if !ok {
		return Invalid
	}

	if g.method == Nearest {
		// Ties round up, matching the upper node at exact midpoints
		if tx >= 0.5 {
			j++
		}
		if ty >= 0.5 {
			i++
		}
		return g.values.At(i, j)
	}

	// Degenerate axes (a single node) carry no upper neighbour
	j1, i1 := j, i
	if tx > 0 {
		j1++
	}
	if ty > 0 {
		i1++
	}

	v00 := g.values.At(i, j)
	v01 := g.values.At(i, j1)
	v10 := g.values.At(i1, j)
	v11 := g.values.At(i1, j1)

	top := v00 + (v01-v00)*tx
	bottom := v10 + (v11-v10)*tx
	return top + (bottom-top)*ty
}

// Interpolate evaluates the grid at every point.
func (g *RegularGrid) Interpolate(points []Point2D) []float64 {
	out := make([]float64, len(points))
	for k, p := range points {
		out[k] = g.At(p.X, p.Y)
	}
	return out
}

// locate finds the cell containing v along axis and the fractional position
// inside it. The last node is included in the domain.
func locate(axis []float64, v float64) (idx int, t float64, ok bool) {
	n := len(axis)
	if math.IsNaN(v) || v < axis[0] || v > axis[n-1] {
		return 0, 0, false
	}
	if n == 1 || v == axis[n-1] {
		return n - 1, 0, true
	}

	idx = sort.SearchFloat64s(axis, v)
	if axis[idx] != v {
		idx--
	}
	t = (v - axis[idx]) / (axis[idx+1] - axis[idx])
	return idx, t, true
}

func strictlyIncreasing(axis []float64) bool {
	if len(axis) == 0 {
		return false
	}
	for k := 1; k < len(axis); k++ {
		if !(axis[k] > axis[k-1]) {
			return false
		}
	}
	return true
}
