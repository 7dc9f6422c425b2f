package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/endlessworld/campusnav/internal/core/domain"
)

const collectionRouteRequests = "route_requests"

// RouteRequestRepository appends directions lookups to the route_requests
// collection.
type RouteRequestRepository struct {
	col *mongo.Collection
}

func NewRouteRequestRepository(db *mongo.Database) *RouteRequestRepository {
	return &RouteRequestRepository{col: db.Collection(collectionRouteRequests)}
}

// Insert persists one route request record.
func (r *RouteRequestRepository) Insert(ctx context.Context, req *domain.RouteRequest) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, req); err != nil {
		return fmt.Errorf("insert route request: %w", err)
	}
	return nil
}

// EnsureIndexes creates necessary indexes on the route_requests collection.
func (r *RouteRequestRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "destination.location_id", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
