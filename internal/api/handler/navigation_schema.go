package handler

import (
	"time"

	"github.com/paulmach/orb"

	"github.com/endlessworld/campusnav/internal/core/domain"
	"github.com/endlessworld/campusnav/internal/core/ports"
	"github.com/endlessworld/campusnav/internal/core/service"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request types ---

type fixRequest struct {
	Latitude  *float64   `json:"latitude"  validate:"required,gte=-90,lte=90"`
	Longitude *float64   `json:"longitude" validate:"required,gte=-180,lte=180"`
	Accuracy  *float64   `json:"accuracy,omitempty"  validate:"omitempty,gte=0"`
	Heading   *float64   `json:"heading,omitempty"   validate:"omitempty,gte=0,lte=360"`
	Speed     *float64   `json:"speed,omitempty"     validate:"omitempty,gte=0"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// toDomain expects a validated request.
func (r fixRequest) toDomain() domain.Fix {
	f := domain.Fix{
		Lat:      *r.Latitude,
		Lon:      *r.Longitude,
		Accuracy: r.Accuracy,
		Heading:  r.Heading,
		Speed:    r.Speed,
	}
	if r.Timestamp != nil {
		f.Timestamp = r.Timestamp.UTC()
	}
	return f
}

type positionErrorRequest struct {
	Kind string `json:"kind" validate:"required"`
}

type coordinatesRequest struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon *float64 `json:"lon" validate:"required,gte=-180,lte=180"`
}

func (c *coordinatesRequest) toDomain() *domain.Coordinates {
	if c == nil {
		return nil
	}
	return &domain.Coordinates{Lat: *c.Lat, Lon: *c.Lon}
}

type destinationRequest struct {
	LocationID  string              `json:"location_id,omitempty"`
	Coordinates *coordinatesRequest `json:"coordinates,omitempty" validate:"omitempty"`
	Name        string              `json:"name,omitempty"`
}

func (d *destinationRequest) toDomain() *domain.Destination {
	if d == nil {
		return nil
	}
	return &domain.Destination{
		LocationID:  d.LocationID,
		Coordinates: d.Coordinates.toDomain(),
		Name:        d.Name,
	}
}

// setRouteRequest carries geometry as [lat, lon] pairs.
type setRouteRequest struct {
	Path        [][]float64         `json:"path" validate:"required,dive,len=2"`
	Destination *destinationRequest `json:"destination,omitempty" validate:"omitempty"`
	Mode        string              `json:"mode,omitempty" validate:"omitempty,oneof=walking cycling driving"`
	Distance    float64             `json:"distance_m,omitempty" validate:"gte=0"`
	Duration    float64             `json:"duration_s,omitempty" validate:"gte=0"`
}

func (r setRouteRequest) toDomain() domain.Route {
	path := make(orb.LineString, len(r.Path))
	for i, p := range r.Path {
		path[i] = orb.Point{p[1], p[0]}
	}
	return domain.Route{
		Path:            path,
		DistanceMeters:  r.Distance,
		DurationSeconds: r.Duration,
		Mode:            r.Mode,
		Destination:     r.Destination.toDomain(),
	}
}

type directionsRequest struct {
	Origin           *coordinatesRequest `json:"origin,omitempty" validate:"omitempty"`
	OriginLocationID string              `json:"origin_location_id,omitempty"`
	Destination      destinationRequest  `json:"destination" validate:"required"`
	Mode             string              `json:"mode,omitempty" validate:"omitempty,oneof=walking cycling driving"`
}

// --- Response types ---

type fixResponse struct {
	Duplicate bool                     `json:"duplicate"`
	Position  *service.PositionPayload `json:"position,omitempty"`
}

type recalculateResponse struct {
	RequestID   string             `json:"request_id"`
	Origin      domain.Coordinates `json:"origin"`
	Destination domain.Destination `json:"destination"`
	Mode        string             `json:"mode"`
}

type sessionResponse struct {
	SessionID string                `json:"session_id"`
	HasRoute  bool                  `json:"has_route"`
	State     string                `json:"state"`
	Distance  float64               `json:"distance_m"`
	Route     *service.RoutePayload `json:"route,omitempty"`
	LastFix   *domain.Fix           `json:"last_fix,omitempty"`
	Watching  bool                  `json:"watching"`
	UpdatedAt time.Time             `json:"updated_at"`
}

func newSessionResponse(st *ports.SessionStatus) sessionResponse {
	resp := sessionResponse{
		SessionID: st.SessionID,
		HasRoute:  st.HasRoute,
		State:     st.State,
		Distance:  st.Distance,
		LastFix:   st.LastFix,
		Watching:  st.Watching,
		UpdatedAt: st.UpdatedAt,
	}
	if st.HasRoute {
		r := service.NewRoutePayload(st.Route)
		resp.Route = &r
	}
	return resp
}
