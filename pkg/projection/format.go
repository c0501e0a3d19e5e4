// Package projection holds the registry of supported panoramic formats and
// the transforms between each format's image plane and world directions.
//
// World directions use a y-up, right-handed frame where y is the cosine of
// the zenith angle and the camera looks down -z. Image coordinates (u, v) are
// normalized to [0, 1] with u increasing to the right and v increasing down.
package projection

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrInvalidFormat is returned when a format identifier is not registered.
var ErrInvalidFormat = errors.New("invalid format")

// Format identifies a panoramic projection.
type Format int

const (
	// Angular maps the full sphere onto the disk inscribed in the image,
	// with the forward direction at the center.
	Angular Format = iota
	// SkyAngular maps the upper hemisphere onto the inscribed disk, with
	// the zenith at the center.
	SkyAngular
	// LatLong is the equirectangular projection covering the full image.
	LatLong
)

var formatNames = [...]string{
	Angular:    "angular",
	SkyAngular: "skyangular",
	LatLong:    "latlong",
}

// SupportedFormats returns all registered formats in registry order.
func SupportedFormats() []Format {
	return []Format{Angular, SkyAngular, LatLong}
}

// SupportedNames returns the identifiers accepted by ParseFormat.
func SupportedNames() []string {
	names := make([]string, len(formatNames))
	copy(names, formatNames[:])
	return names
}

// ParseFormat resolves a case-insensitive format identifier.
func ParseFormat(name string) (Format, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for f, n := range formatNames {
		if n == key {
			return Format(f), nil
		}
	}
	return 0, fmt.Errorf("%w: %q (supported: %s)", ErrInvalidFormat, name, strings.Join(formatNames[:], ", "))
}

// String returns the format identifier.
func (f Format) String() string {
	if f.Valid() {
		return formatNames[f]
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Valid reports whether f is a registered format.
func (f Format) Valid() bool {
	return f >= Angular && f <= LatLong
}

// MarshalText implements encoding.TextMarshaler.
func (f Format) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFormat, int(f))
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Format) UnmarshalText(text []byte) error {
	parsed, err := ParseFormat(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ImageToWorld returns the direction seen through image point (u, v) and
// whether that point lies inside the format's field of view.
func (f Format) ImageToWorld(u, v float64) (r3.Vec, bool) {
	switch f {
	case Angular:
		return AngularToWorld(u, v)
	case SkyAngular:
		return SkyAngularToWorld(u, v)
	case LatLong:
		return LatLongToWorld(u, v)
	default:
		panic(fmt.Sprintf("projection: unknown format %d", int(f)))
	}
}

// WorldToImage returns the image point at which direction d is stored.
func (f Format) WorldToImage(d r3.Vec) (u, v float64) {
	switch f {
	case Angular:
		return WorldToAngular(d)
	case SkyAngular:
		return WorldToSkyAngular(d)
	case LatLong:
		return WorldToLatLong(d)
	default:
		panic(fmt.Sprintf("projection: unknown format %d", int(f)))
	}
}
