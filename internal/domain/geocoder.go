package domain

import (
	"context"
	"strings"
)

// Coordinate is a WGS-84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Geocoder resolves postal codes to coordinates.
type Geocoder interface {
	// Resolve returns the coordinate for a postal code. A postal code with no
	// match yields ErrNotFound; transport failures yield ErrTransientFetch.
	Resolve(ctx context.Context, postalCode string) (Coordinate, error)
}

// NormalizePostalCode trims surrounding whitespace. Postal codes are otherwise
// opaque; the geocoding service decides what is valid.
func NormalizePostalCode(postalCode string) string {
	return strings.TrimSpace(postalCode)
}
