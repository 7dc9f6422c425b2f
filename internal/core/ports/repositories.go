package ports

import (
	"context"

	"github.com/paulmach/orb"

	"github.com/endlessworld/campusnav/internal/core/domain"
)

// LocationRepository defines persistence operations for campus locations.
type LocationRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Location, error)
	// Upsert inserts or replaces the location keyed by its ID.
	Upsert(ctx context.Context, loc *domain.Location) error
	// Search matches text case-insensitively against name, description and
	// type.
	Search(ctx context.Context, text string, limit int) ([]domain.Location, error)
	// WithinBound returns locations whose coordinates fall inside b.
	WithinBound(ctx context.Context, b orb.Bound, limit int) ([]domain.Location, error)
}

// RouteRequestRepository stores the directions lookup log.
type RouteRequestRepository interface {
	Insert(ctx context.Context, req *domain.RouteRequest) error
}

// DirectionsClient fetches a route from an external routing engine.
type DirectionsClient interface {
	Route(ctx context.Context, from, to domain.Coordinates, mode string) (*domain.Route, error)
}

// Publisher pushes a named event to every live connection of a user.
type Publisher interface {
	Publish(userID, eventType string, data any) error
}
