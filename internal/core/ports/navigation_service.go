package ports

import (
	"context"
	"time"

	"github.com/endlessworld/campusnav/internal/core/domain"
	"github.com/endlessworld/campusnav/internal/core/tracker"
)

// NavigateInput carries a directions request from the transport layer.
// Origin falls back to OriginLocationID and then to the session's last fix.
type NavigateInput struct {
	SessionID        string
	Origin           *domain.Coordinates
	OriginLocationID string
	Destination      domain.Destination
	Mode             string
}

// FixResult is returned after a fix went through the tracker.
type FixResult struct {
	Duplicate bool
	Display   *tracker.Display
	HasRoute  bool
}

// SessionStatus is the read view of a navigation session.
type SessionStatus struct {
	SessionID string
	HasRoute  bool
	State     string
	Distance  float64
	Route     domain.Route
	LastFix   *domain.Fix
	Watching  bool
	UpdatedAt time.Time
}

// NavigationService defines the use cases of live route tracking.
type NavigationService interface {
	SubmitFix(ctx context.Context, sessionID string, fix domain.Fix) (*FixResult, error)
	ReportPositionError(ctx context.Context, sessionID string, kind domain.PositionErrorKind) error
	SetRoute(ctx context.Context, sessionID string, route domain.Route) error
	ClearRoute(ctx context.Context, sessionID string) error
	StartWatch(ctx context.Context, sessionID string) error
	Navigate(ctx context.Context, in NavigateInput) (*domain.Route, error)
	// Recalculate validates synchronously and fetches the new route in the
	// background. The returned request identifies the pending lookup.
	Recalculate(ctx context.Context, sessionID string) (*domain.DirectionsRequest, error)
	Status(ctx context.Context, sessionID string) (*SessionStatus, error)
}

// LocationService defines use cases for the campus location catalogue.
type LocationService interface {
	Get(ctx context.Context, id string) (*domain.Location, error)
	Put(ctx context.Context, loc domain.Location) (*domain.Location, error)
	Import(ctx context.Context, locs []domain.Location) (int, error)
	// Search treats a "lat,lon" query as a nearby search and anything else
	// as text.
	Search(ctx context.Context, query string) (*domain.LocationSearch, error)
}
