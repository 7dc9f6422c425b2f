package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"github.com/endlessworld/campusnav/internal/api/metrics"
	"github.com/endlessworld/campusnav/internal/core/domain"
	"github.com/endlessworld/campusnav/internal/core/ports"
	"github.com/endlessworld/campusnav/internal/core/tracker"
)

const (
	defaultRecalculationTimeout = 30 * time.Second
	forgetTimeout               = 2 * time.Second
)

// NavigationConfig holds the service-level settings.
type NavigationConfig struct {
	// Boundary limits origins and destinations. A zero bound disables the check.
	Boundary             orb.Bound
	RecalculationTimeout time.Duration
}

type navigationService struct {
	cfg        NavigationConfig
	queue      ports.CommandQueue
	store      ports.SessionStore
	dedup      ports.FixDeduplicator
	locations  ports.LocationRepository
	requests   ports.RouteRequestRepository
	directions ports.DirectionsClient
	pub        ports.Publisher
	log        zerolog.Logger

	recalcs conc.WaitGroup
	now     func() time.Time
}

// NavigationService is the concrete service; Wait blocks until background
// recalculations finished.
type NavigationService interface {
	ports.NavigationService
	Wait()
}

// NewNavigationService returns a NavigationService implementation.
func NewNavigationService(
	cfg NavigationConfig,
	queue ports.CommandQueue,
	store ports.SessionStore,
	dedup ports.FixDeduplicator,
	locations ports.LocationRepository,
	requests ports.RouteRequestRepository,
	directions ports.DirectionsClient,
	pub ports.Publisher,
	log zerolog.Logger,
) NavigationService {
	if cfg.RecalculationTimeout <= 0 {
		cfg.RecalculationTimeout = defaultRecalculationTimeout
	}
	return &navigationService{
		cfg:        cfg,
		queue:      queue,
		store:      store,
		dedup:      dedup,
		locations:  locations,
		requests:   requests,
		directions: directions,
		pub:        pub,
		log:        log,
		now:        time.Now,
	}
}

// SubmitFix deduplicates a fix and runs it through the session's tracker.
// A fix without timestamp is stamped on arrival and never treated as a
// duplicate.
// A fix the worker does not apply is unmarked, so a retry is processed.
func (s *navigationService) SubmitFix(ctx context.Context, sessionID string, fix domain.Fix) (*ports.FixResult, error) {
	marked := false
	if fix.Timestamp.IsZero() {
		fix.Timestamp = s.now().UTC()
	} else {
		first, err := s.dedup.MarkNew(ctx, sessionID, fix.Timestamp)
		if err != nil {
			s.log.Warn().Err(err).Str("session", sessionID).Msg("dedup check failed, processing anyway")
		} else if !first {
			metrics.FixesDuplicateTotal.Inc()
			s.log.Debug().Str("session", sessionID).Time("timestamp", fix.Timestamp).Msg("duplicate fix skipped")
			return &ports.FixResult{Duplicate: true}, nil
		}
		marked = err == nil
	}

	res, err := s.do(ctx, ports.Command{SessionID: sessionID, Kind: ports.CommandFix, Fix: &fix})
	if err != nil {
		if marked {
			s.forgetFix(sessionID, fix.Timestamp)
		}
		return nil, fmt.Errorf("submit fix: %w", err)
	}
	return &ports.FixResult{Display: res.Display, HasRoute: res.HasRoute}, nil
}

// forgetFix uses its own context; the caller's may already be done.
func (s *navigationService) forgetFix(sessionID string, ts time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), forgetTimeout)
	defer cancel()
	if err := s.dedup.Forget(ctx, sessionID, ts); err != nil {
		s.log.Warn().Err(err).Str("session", sessionID).Time("timestamp", ts).Msg("failed to unmark rejected fix")
	}
}

func (s *navigationService) ReportPositionError(ctx context.Context, sessionID string, kind domain.PositionErrorKind) error {
	_, err := s.do(ctx, ports.Command{SessionID: sessionID, Kind: ports.CommandPositionError, PositionError: kind})
	return err
}

func (s *navigationService) SetRoute(ctx context.Context, sessionID string, route domain.Route) error {
	if _, err := s.do(ctx, ports.Command{SessionID: sessionID, Kind: ports.CommandSetRoute, Route: &route}); err != nil {
		return fmt.Errorf("set route: %w", err)
	}
	return nil
}

func (s *navigationService) ClearRoute(ctx context.Context, sessionID string) error {
	_, err := s.do(ctx, ports.Command{SessionID: sessionID, Kind: ports.CommandClearRoute})
	return err
}

func (s *navigationService) StartWatch(ctx context.Context, sessionID string) error {
	_, err := s.do(ctx, ports.Command{SessionID: sessionID, Kind: ports.CommandStartWatch})
	return err
}

// Navigate resolves both ends, fetches a route and installs it on the session.
func (s *navigationService) Navigate(ctx context.Context, in ports.NavigateInput) (*domain.Route, error) {
	mode := in.Mode
	if mode == "" {
		mode = domain.ModeWalking
	}
	if !domain.ValidMode(mode) {
		return nil, fmt.Errorf("navigate: %w: %q", domain.ErrInvalidMode, mode)
	}

	dest, to, err := s.resolveDestination(ctx, in.Destination)
	if err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}
	from, err := s.resolveOrigin(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}
	if !s.withinBoundary(from) || !s.withinBoundary(to) {
		return nil, fmt.Errorf("navigate: %w", domain.ErrOutsideBoundary)
	}

	route, err := s.fetchRoute(ctx, from, to, mode)
	if err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}
	route.Mode = mode
	route.Destination = dest

	if _, err := s.do(ctx, ports.Command{SessionID: in.SessionID, Kind: ports.CommandSetRoute, Route: route}); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}

	s.logRouteRequest(ctx, in.SessionID, from, *dest, mode, domain.ReasonNavigate, route)
	return route, nil
}

// Recalculate checks synchronously that a position and a destination are
// known, then fetches the new route in the background. The result replaces
// the active route whenever it arrives; failures are published to the user.
func (s *navigationService) Recalculate(ctx context.Context, sessionID string) (*domain.DirectionsRequest, error) {
	res, err := s.do(ctx, ports.Command{SessionID: sessionID, Kind: ports.CommandRecalculate})
	if err != nil {
		metrics.RecalculationsTotal.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("recalculate: %w", err)
	}

	req := *res.Recalculation
	s.recalcs.Go(func() { s.runRecalculation(req) })

	s.log.Info().
		Str("session", sessionID).
		Str("request_id", req.ID).
		Str("mode", req.Mode).
		Msg("route recalculation requested")
	return &req, nil
}

func (s *navigationService) runRecalculation(req domain.DirectionsRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RecalculationTimeout)
	defer cancel()

	log := s.log.With().Str("session", req.SessionID).Str("request_id", req.ID).Logger()

	dest, to, err := s.resolveDestination(ctx, req.Destination)
	if err == nil {
		var route *domain.Route
		route, err = s.fetchRoute(ctx, req.Origin, to, req.Mode)
		if err == nil && len(route.Path) < 2 {
			err = domain.ErrRouteTooShort
		}
		if err == nil {
			route.Mode = req.Mode
			route.Destination = dest
			s.queue.Enqueue(ports.Command{SessionID: req.SessionID, Kind: ports.CommandSetRoute, Route: route})
			s.logRouteRequest(ctx, req.SessionID, req.Origin, *dest, req.Mode, domain.ReasonRecalculate, route)
			metrics.RecalculationsTotal.WithLabelValues("success").Inc()
			log.Info().Int("vertices", len(route.Path)).Msg("route recalculated")
			return
		}
	}

	metrics.RecalculationsTotal.WithLabelValues("failed").Inc()
	log.Warn().Err(err).Msg("route recalculation failed")
	payload := RecalculationFailedPayload{RequestID: req.ID, Error: err.Error()}
	if pubErr := s.pub.Publish(req.SessionID, EventRecalculationFailed, payload); pubErr != nil {
		log.Warn().Err(pubErr).Msg("failed to publish recalculation failure")
	}
}

// Status reads the persisted view of a session.
func (s *navigationService) Status(ctx context.Context, sessionID string) (*ports.SessionStatus, error) {
	snap, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session status: %w", err)
	}

	state := tracker.OnRoute
	if snap.Tracker.OffRoute {
		state = tracker.OffRoute
	}
	return &ports.SessionStatus{
		SessionID: sessionID,
		HasRoute:  len(snap.Tracker.Route) >= 2,
		State:     state.String(),
		Distance:  snap.Tracker.LastDistance,
		Route: domain.Route{
			Path:        snap.Tracker.Route,
			Mode:        snap.Mode,
			Destination: snap.Destination,
		},
		LastFix:   snap.LastFix,
		Watching:  !snap.WatchStopped,
		UpdatedAt: snap.UpdatedAt,
	}, nil
}

// Wait blocks until every background recalculation has returned.
func (s *navigationService) Wait() {
	s.recalcs.Wait()
}

// do runs a command synchronously and folds the worker's error into the
// returned error.
func (s *navigationService) do(ctx context.Context, cmd ports.Command) (ports.Result, error) {
	res, err := s.queue.Do(ctx, cmd)
	if err != nil {
		return res, err
	}
	return res, res.Err
}

func (s *navigationService) fetchRoute(ctx context.Context, from, to domain.Coordinates, mode string) (*domain.Route, error) {
	start := time.Now()
	route, err := s.directions.Route(ctx, from, to, mode)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.DirectionsRequestDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	return route, err
}

// resolveDestination fills in coordinates and a display name for a
// location-id destination. LocationID wins over raw coordinates.
func (s *navigationService) resolveDestination(ctx context.Context, d domain.Destination) (*domain.Destination, domain.Coordinates, error) {
	if d.LocationID != "" {
		loc, err := s.locations.FindByID(ctx, d.LocationID)
		if err != nil {
			return nil, domain.Coordinates{}, err
		}
		name := d.Name
		if name == "" {
			name = loc.Name
		}
		return &domain.Destination{LocationID: loc.ID, Name: name}, loc.Coordinates, nil
	}
	if d.Coordinates == nil {
		return nil, domain.Coordinates{}, domain.ErrNoDestination
	}
	c := *d.Coordinates
	return &domain.Destination{Coordinates: &c, Name: d.Name}, c, nil
}

func (s *navigationService) resolveOrigin(ctx context.Context, in ports.NavigateInput) (domain.Coordinates, error) {
	switch {
	case in.Origin != nil:
		return *in.Origin, nil
	case in.OriginLocationID != "":
		loc, err := s.locations.FindByID(ctx, in.OriginLocationID)
		if err != nil {
			return domain.Coordinates{}, err
		}
		return loc.Coordinates, nil
	}

	snap, err := s.store.Load(ctx, in.SessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.Coordinates{}, domain.ErrNoCurrentPosition
		}
		return domain.Coordinates{}, err
	}
	if snap.LastFix == nil {
		return domain.Coordinates{}, domain.ErrNoCurrentPosition
	}
	return snap.LastFix.Coordinates(), nil
}

func (s *navigationService) withinBoundary(c domain.Coordinates) bool {
	if s.cfg.Boundary.IsZero() {
		return true
	}
	return s.cfg.Boundary.Contains(c.Point())
}

// logRouteRequest writes the analytics record (non-fatal on failure).
func (s *navigationService) logRouteRequest(
	ctx context.Context,
	username string,
	origin domain.Coordinates,
	dest domain.Destination,
	mode, reason string,
	route *domain.Route,
) {
	rec := &domain.RouteRequest{
		Username:       username,
		Origin:         origin,
		Destination:    dest,
		Mode:           mode,
		Reason:         reason,
		DistanceMeters: route.DistanceMeters,
		DurationSecs:   route.DurationSeconds,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.requests.Insert(ctx, rec); err != nil {
		s.log.Warn().Err(err).Str("session", username).Str("reason", reason).Msg("failed to record route request")
	}
}
