package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/rs/zerolog"

	"github.com/endlessworld/campusnav/internal/core/domain"
	"github.com/endlessworld/campusnav/internal/core/ports"
	"github.com/endlessworld/campusnav/internal/core/proximity"
)

const (
	searchLimit      = 15
	searchCandidates = 100
	minSearchText    = 2
	// nearbyRadius is in meters.
	nearbyRadius = 100.0
)

type LocationService struct {
	repo     ports.LocationRepository
	boundary orb.Bound
	logger   zerolog.Logger
}

// NewLocationService returns a LocationService. Search results are limited
// to boundary unless it is the zero bound.
func NewLocationService(repo ports.LocationRepository, boundary orb.Bound, logger zerolog.Logger) *LocationService {
	return &LocationService{repo: repo, boundary: boundary, logger: logger}
}

func (s *LocationService) Get(ctx context.Context, id string) (*domain.Location, error) {
	return s.repo.FindByID(ctx, id)
}

// Put validates and upserts one location.
func (s *LocationService) Put(ctx context.Context, loc domain.Location) (*domain.Location, error) {
	loc.ID = strings.TrimSpace(loc.ID)
	loc.Name = strings.TrimSpace(loc.Name)
	if err := validateLocation(loc); err != nil {
		return nil, err
	}
	loc.UpdatedAt = time.Now().UTC()

	if err := s.repo.Upsert(ctx, &loc); err != nil {
		return nil, fmt.Errorf("put location %s: %w", loc.ID, err)
	}
	return &loc, nil
}

// Import upserts a catalogue in order and stops at the first failure. The
// returned count covers the locations written before it.
func (s *LocationService) Import(ctx context.Context, locs []domain.Location) (int, error) {
	for i, loc := range locs {
		if _, err := s.Put(ctx, loc); err != nil {
			return i, fmt.Errorf("import entry %d: %w", i, err)
		}
	}
	s.logger.Info().Int("count", len(locs)).Msg("locations imported")
	return len(locs), nil
}

// Search runs a nearby search for "lat,lon" queries and a text search
// otherwise. Both only return locations inside the campus boundary.
func (s *LocationService) Search(ctx context.Context, query string) (*domain.LocationSearch, error) {
	query = strings.TrimSpace(query)
	if c, ok := parseCoordinates(query); ok {
		return s.searchNear(ctx, c)
	}
	if utf8.RuneCountInString(query) < minSearchText {
		return nil, domain.ErrQueryTooShort
	}

	locs, err := s.repo.Search(ctx, query, searchCandidates)
	if err != nil {
		return nil, fmt.Errorf("search locations: %w", err)
	}
	res := &domain.LocationSearch{Kind: domain.SearchText, Matches: []domain.LocationMatch{}}
	for _, loc := range locs {
		if !s.withinBoundary(loc.Point()) {
			continue
		}
		res.Matches = append(res.Matches, domain.LocationMatch{Location: loc})
		if len(res.Matches) == searchLimit {
			break
		}
	}
	s.logger.Debug().Str("query", query).Int("found", len(res.Matches)).Msg("text search")
	return res, nil
}

func (s *LocationService) searchNear(ctx context.Context, c domain.Coordinates) (*domain.LocationSearch, error) {
	if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
		return nil, domain.ErrInvalidCoordinates
	}
	center := c.Point()
	if !s.withinBoundary(center) {
		return nil, domain.ErrOutsideBoundary
	}

	locs, err := s.repo.WithinBound(ctx, geo.NewBoundAroundPoint(center, nearbyRadius), searchCandidates)
	if err != nil {
		return nil, fmt.Errorf("search nearby locations: %w", err)
	}
	res := &domain.LocationSearch{Kind: domain.SearchCoordinate, Matches: []domain.LocationMatch{}}
	for _, loc := range locs {
		d := proximity.Haversine(center, loc.Point())
		if d > nearbyRadius || !s.withinBoundary(loc.Point()) {
			continue
		}
		d = math.Round(d*100) / 100
		res.Matches = append(res.Matches, domain.LocationMatch{Location: loc, DistanceMeters: &d})
	}
	sort.SliceStable(res.Matches, func(i, j int) bool {
		return *res.Matches[i].DistanceMeters < *res.Matches[j].DistanceMeters
	})
	if len(res.Matches) > searchLimit {
		res.Matches = res.Matches[:searchLimit]
	}
	return res, nil
}

func (s *LocationService) withinBoundary(p orb.Point) bool {
	return s.boundary.IsZero() || s.boundary.Contains(p)
}

// parseCoordinates accepts "lat,lon". Anything else is a text query.
func parseCoordinates(q string) (domain.Coordinates, bool) {
	latStr, lonStr, ok := strings.Cut(q, ",")
	if !ok {
		return domain.Coordinates{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return domain.Coordinates{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return domain.Coordinates{}, false
	}
	return domain.Coordinates{Lat: lat, Lon: lon}, true
}

func validateLocation(loc domain.Location) error {
	c := loc.Coordinates
	if loc.ID == "" || loc.Name == "" ||
		c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w (id=%q)", domain.ErrInvalidLocation, loc.ID)
	}
	return nil
}
