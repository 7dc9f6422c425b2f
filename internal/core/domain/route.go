package domain

import (
	"time"

	"github.com/paulmach/orb"
)

// Travel modes accepted by the directions service.
const (
	ModeWalking = "walking"
	ModeCycling = "cycling"
	ModeDriving = "driving"
)

// Destination identifies where the active route leads. Exactly one of
// LocationID or Coordinates is used; LocationID wins when both are set.
type Destination struct {
	LocationID  string       `json:"location_id,omitempty" bson:"location_id,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty" bson:"coordinates,omitempty"`
	Name        string       `json:"name,omitempty" bson:"name,omitempty"`
}

// Valid reports whether the destination can be used to request a route.
func (d *Destination) Valid() bool {
	if d == nil {
		return false
	}
	return d.LocationID != "" || d.Coordinates != nil
}

// ValidMode reports whether m is a supported travel mode.
func ValidMode(m string) bool {
	switch m {
	case ModeWalking, ModeCycling, ModeDriving:
		return true
	}
	return false
}

// Route is an active navigable path.
type Route struct {
	Path            orb.LineString `json:"path"`
	DistanceMeters  float64        `json:"distance_m"`
	DurationSeconds float64        `json:"duration_s"`
	Mode            string         `json:"mode,omitempty"`
	Destination     *Destination   `json:"destination,omitempty"`
}

// DirectionsRequest identifies a pending recalculation.
type DirectionsRequest struct {
	ID          string
	SessionID   string
	Origin      Coordinates
	Destination Destination
	Mode        string
}

// Route request reasons.
const (
	ReasonNavigate    = "navigate"
	ReasonRecalculate = "recalculate"
)

// RouteRequest is an analytics record of a directions lookup.
type RouteRequest struct {
	Username       string      `bson:"username"`
	Origin         Coordinates `bson:"origin"`
	Destination    Destination `bson:"destination"`
	Mode           string      `bson:"mode"`
	Reason         string      `bson:"reason"`
	DistanceMeters float64     `bson:"distance_m"`
	DurationSecs   float64     `bson:"duration_s"`
	CreatedAt      time.Time   `bson:"created_at"`
}
