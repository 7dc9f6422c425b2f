package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/paulmach/orb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/endlessworld/campusnav/internal/core/domain"
)

const collectionLocations = "locations"

type LocationRepository struct {
	col *mongo.Collection
}

func NewLocationRepository(db *mongo.Database) *LocationRepository {
	return &LocationRepository{col: db.Collection(collectionLocations)}
}

// FindByID retrieves a location by its catalogue id.
func (r *LocationRepository) FindByID(ctx context.Context, id string) (*domain.Location, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var loc domain.Location
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&loc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrLocationNotFound
		}
		return nil, fmt.Errorf("find location: %w", err)
	}
	return &loc, nil
}

// Upsert replaces the document with the same id, inserting it if absent.
func (r *LocationRepository) Upsert(ctx context.Context, loc *domain.Location) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": loc.ID}, loc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert location: %w", err)
	}
	return nil
}

// Search matches text as a case-insensitive substring of name, description
// or type, ordered by name.
func (r *LocationRepository) Search(ctx context.Context, text string, limit int) ([]domain.Location, error) {
	re := primitive.Regex{Pattern: regexp.QuoteMeta(text), Options: "i"}
	filter := bson.M{"$or": bson.A{
		bson.M{"name": re},
		bson.M{"description": re},
		bson.M{"type": re},
	}}
	return r.find(ctx, filter, limit, "search locations")
}

// WithinBound returns locations inside b, ordered by name.
func (r *LocationRepository) WithinBound(ctx context.Context, b orb.Bound, limit int) ([]domain.Location, error) {
	filter := bson.M{
		"coordinates.lat": bson.M{"$gte": b.Min.Lat(), "$lte": b.Max.Lat()},
		"coordinates.lon": bson.M{"$gte": b.Min.Lon(), "$lte": b.Max.Lon()},
	}
	return r.find(ctx, filter, limit, "locations within bound")
}

func (r *LocationRepository) find(ctx context.Context, filter bson.M, limit int, op string) ([]domain.Location, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	locs := []domain.Location{}
	if err := cur.All(ctx, &locs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return locs, nil
}

// EnsureIndexes creates necessary indexes on the locations collection.
func (r *LocationRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}},
		{Keys: bson.D{{Key: "type", Value: 1}}},
		{Keys: bson.D{{Key: "coordinates.lat", Value: 1}, {Key: "coordinates.lon", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
