package projection

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Epsilon keeps WorldToAngular finite for directions on the z axis.
const Epsilon = 0x1p-52

// inDisk reports whether (u, v) lies in the disk inscribed in the unit square.
func inDisk(u, v float64) bool {
	du := u - 0.5
	dv := v - 0.5
	return du*du+dv*dv <= 0.25
}

// LatLongToWorld converts equirectangular image coordinates to a direction.
// Every point of the image is valid.
func LatLongToWorld(u, v float64) (r3.Vec, bool) {
	theta := math.Pi * (2*u - 1)
	phi := math.Pi * v

	sinPhi := math.Sin(phi)
	return r3.Vec{
		X: sinPhi * math.Sin(theta),
		Y: math.Cos(phi),
		Z: -sinPhi * math.Cos(theta),
	}, true
}

// WorldToLatLong converts a direction to equirectangular image coordinates.
func WorldToLatLong(d r3.Vec) (u, v float64) {
	u = (1 + math.Atan2(d.X, -d.Z)/math.Pi) / 2
	v = math.Acos(clampUnit(d.Y)) / math.Pi
	return u, v
}

// AngularToWorld converts angular map coordinates to a direction. The image
// center looks down -z and the disk rim is the direction straight behind.
func AngularToWorld(u, v float64) (r3.Vec, bool) {
	theta := math.Atan2(1-2*v, 2*u-1)
	phi := math.Pi * math.Hypot(2*u-1, 2*v-1)

	sinPhi := math.Sin(phi)
	return r3.Vec{
		X: sinPhi * math.Cos(theta),
		Y: sinPhi * math.Sin(theta),
		Z: -math.Cos(phi),
	}, inDisk(u, v)
}

// WorldToAngular converts a direction to angular map coordinates.
func WorldToAngular(d r3.Vec) (u, v float64) {
	r := math.Acos(clampUnit(-d.Z)) / (2*math.Pi*math.Hypot(d.X, d.Y) + Epsilon)
	u = 0.5 + r*d.X
	v = 0.5 - r*d.Y
	return u, v
}

// SkyAngularToWorld converts sky-angular coordinates to a direction. The
// image center is the zenith (+y) and the disk rim is the horizon.
func SkyAngularToWorld(u, v float64) (r3.Vec, bool) {
	theta := math.Atan2(1-2*v, 2*u-1)
	phi := math.Pi / 2 * math.Hypot(2*u-1, 2*v-1)

	sinPhi := math.Sin(phi)
	return r3.Vec{
		X: sinPhi * math.Cos(theta),
		Y: math.Cos(phi),
		Z: sinPhi * math.Sin(theta),
	}, inDisk(u, v)
}

// WorldToSkyAngular converts a direction to sky-angular coordinates.
func WorldToSkyAngular(d r3.Vec) (u, v float64) {
	theta := math.Atan2(d.X, d.Z)
	phi := math.Atan2(math.Hypot(d.X, d.Z), d.Y)

	r := phi / (math.Pi / 2)
	u = r*math.Sin(theta)/2 + 0.5
	v = 0.5 - r*math.Cos(theta)/2
	return u, v
}

// clampUnit keeps slightly denormalized components inside acos's domain.
func clampUnit(x float64) float64 {
	return math.Max(-1, math.Min(1, x))
}
