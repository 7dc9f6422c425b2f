package domain

import (
	"time"

	"github.com/paulmach/orb"
)

// Coordinates represents a geographic point.
type Coordinates struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lon float64 `json:"lon" bson:"lon"`
}

// Point converts the coordinates to an orb point (X=lon, Y=lat).
func (c Coordinates) Point() orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

// CoordinatesFromPoint is the inverse of Coordinates.Point.
func CoordinatesFromPoint(p orb.Point) Coordinates {
	return Coordinates{Lat: p.Lat(), Lon: p.Lon()}
}

// Fix is one reported geolocation sample. Accuracy, heading and speed are
// optional and nil when the device did not report them.
type Fix struct {
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Accuracy  *float64  `json:"accuracy,omitempty"` // meters
	Heading   *float64  `json:"heading,omitempty"`
	Speed     *float64  `json:"speed,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Point returns the raw fix as an orb point.
func (f Fix) Point() orb.Point {
	return orb.Point{f.Lon, f.Lat}
}

// Coordinates returns the raw fix position.
func (f Fix) Coordinates() Coordinates {
	return Coordinates{Lat: f.Lat, Lon: f.Lon}
}

// PositionErrorKind classifies a failure reported by the position stream.
type PositionErrorKind string

const (
	PositionPermissionDenied PositionErrorKind = "permission_denied"
	PositionUnavailable      PositionErrorKind = "position_unavailable"
	PositionTimeout          PositionErrorKind = "timeout"
	PositionUnknownError     PositionErrorKind = "unknown"
)

// Terminal reports whether the error ends the subscription. Only a denied
// permission does; every other kind is transient.
func (k PositionErrorKind) Terminal() bool {
	return k == PositionPermissionDenied
}

// ParsePositionErrorKind maps an arbitrary string onto a known kind,
// falling back to PositionUnknownError.
func ParsePositionErrorKind(s string) PositionErrorKind {
	switch k := PositionErrorKind(s); k {
	case PositionPermissionDenied, PositionUnavailable, PositionTimeout:
		return k
	default:
		return PositionUnknownError
	}
}
