package service

import (
	"strconv"

	"github.com/rs/zerolog"

	"github.com/endlessworld/campusnav/internal/api/metrics"
	"github.com/endlessworld/campusnav/internal/core/domain"
	"github.com/endlessworld/campusnav/internal/core/ports"
	"github.com/endlessworld/campusnav/internal/core/tracker"
)

// Event types pushed to the client.
const (
	EventPosition            = "position"
	EventOffRoute            = "off_route"
	EventOffRouteCleared     = "off_route_cleared"
	EventRoute               = "route"
	EventRecalculationFailed = "recalculation_failed"
	EventWatchStopped        = "watch_stopped"
)

type AccuracyPayload struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Radius float64 `json:"radius_m"`
}

type PositionPayload struct {
	Marker   domain.Coordinates `json:"marker"`
	Snapped  bool               `json:"snapped"`
	OnRoute  bool               `json:"on_route"`
	Distance *float64           `json:"distance_m,omitempty"`
	Accuracy *AccuracyPayload   `json:"accuracy,omitempty"`
}

type OffRoutePayload struct {
	Distance       float64 `json:"distance_m"`
	RecalculateURL string  `json:"recalculate_url"`
}

type RoutePayload struct {
	Path        []domain.Coordinates `json:"path"`
	Distance    float64              `json:"distance_m"`
	Duration    float64              `json:"duration_s"`
	Mode        string               `json:"mode,omitempty"`
	Destination *domain.Destination  `json:"destination,omitempty"`
}

type RecalculationFailedPayload struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
}

type WatchStoppedPayload struct {
	Reason domain.PositionErrorKind `json:"reason"`
}

// NewPositionPayload renders a display decision for the wire. Distance is
// omitted when no route was active.
func NewPositionPayload(d tracker.Display, hasRoute bool) PositionPayload {
	p := PositionPayload{
		Marker:  domain.CoordinatesFromPoint(d.Marker),
		Snapped: d.Snapped,
		OnRoute: d.OnRoute,
	}
	if hasRoute {
		dist := d.Distance
		p.Distance = &dist
	}
	if d.Accuracy != nil {
		p.Accuracy = &AccuracyPayload{
			Lat:    d.Accuracy.Center.Lat(),
			Lon:    d.Accuracy.Center.Lon(),
			Radius: d.Accuracy.Radius,
		}
	}
	return p
}

// NewRoutePayload converts a route into lat/lon pairs for the client.
func NewRoutePayload(r domain.Route) RoutePayload {
	path := make([]domain.Coordinates, len(r.Path))
	for i, p := range r.Path {
		path[i] = domain.CoordinatesFromPoint(p)
	}
	return RoutePayload{
		Path:        path,
		Distance:    r.DistanceMeters,
		Duration:    r.DurationSeconds,
		Mode:        r.Mode,
		Destination: r.Destination,
	}
}

// sessionSink adapts a Publisher to the tracker sinks of one session.
type sessionSink struct {
	sessionID      string
	pub            ports.Publisher
	recalculateURL string
	hasRoute       func() bool
	log            zerolog.Logger
}

func (s *sessionSink) ShowPosition(d tracker.Display) {
	metrics.FixesProcessedTotal.WithLabelValues(strconv.FormatBool(d.Snapped)).Inc()
	s.publish(EventPosition, NewPositionPayload(d, s.hasRoute()))
}

func (s *sessionSink) ShowOffRoute(distance float64) {
	metrics.OffRouteTransitionsTotal.WithLabelValues("off").Inc()
	s.log.Info().Str("session", s.sessionID).Float64("distance_m", distance).Msg("user left the route")
	s.publish(EventOffRoute, OffRoutePayload{Distance: distance, RecalculateURL: s.recalculateURL})
}

func (s *sessionSink) HideOffRoute() {
	metrics.OffRouteTransitionsTotal.WithLabelValues("on").Inc()
	s.publish(EventOffRouteCleared, nil)
}

func (s *sessionSink) publish(eventType string, data any) {
	if err := s.pub.Publish(s.sessionID, eventType, data); err != nil {
		s.log.Warn().Err(err).Str("session", s.sessionID).Str("event", eventType).Msg("failed to publish event")
	}
}
