package domain

import (
	"time"

	"github.com/paulmach/orb"
)

// Location is a campus place that can be used as a navigation destination.
type Location struct {
	ID           string      `json:"id" bson:"_id" yaml:"id"`
	Name         string      `json:"name" bson:"name" yaml:"name"`
	Description  string      `json:"description,omitempty" bson:"description,omitempty" yaml:"description"`
	Type         string      `json:"type" bson:"type" yaml:"type"`
	Coordinates  Coordinates `json:"coordinates" bson:"coordinates" yaml:"coordinates"`
	FloorLevel   int         `json:"floor_level" bson:"floor_level" yaml:"floor_level"`
	IsAccessible bool        `json:"is_accessible" bson:"is_accessible" yaml:"is_accessible"`
	UpdatedAt    time.Time   `json:"updated_at" bson:"updated_at" yaml:"-"`
}

// Point returns the location as an orb point.
func (l Location) Point() orb.Point {
	return l.Coordinates.Point()
}

// Location search kinds.
const (
	SearchText       = "text"
	SearchCoordinate = "coordinate"
)

// LocationMatch is one search hit. DistanceMeters is only set for
// coordinate searches.
type LocationMatch struct {
	Location
	DistanceMeters *float64 `json:"distance_m,omitempty"`
}

// LocationSearch is the outcome of a catalogue search.
type LocationSearch struct {
	Kind    string          `json:"search_type"`
	Matches []LocationMatch `json:"locations"`
}
