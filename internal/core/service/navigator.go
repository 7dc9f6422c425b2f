package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/endlessworld/campusnav/internal/api/metrics"
	"github.com/endlessworld/campusnav/internal/core/domain"
	"github.com/endlessworld/campusnav/internal/core/ports"
	"github.com/endlessworld/campusnav/internal/core/tracker"
)

// session is the live state of one user's navigation.
type session struct {
	id           string
	tracker      *tracker.Tracker
	destination  *domain.Destination
	mode         string
	lastFix      *domain.Fix
	watchStopped bool
	touched      time.Time
}

// Navigator applies session commands. It is meant to run behind a dispatcher
// that never delivers two commands for the same session concurrently; the
// mutex only guards the session map.
type Navigator struct {
	cfg            tracker.Config
	store          ports.SessionStore
	pub            ports.Publisher
	recalculateURL string
	log            zerolog.Logger
	now            func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// NewNavigator returns a Navigator. recalculateURL is advertised in off-route
// events as the way to request a new route.
func NewNavigator(
	cfg tracker.Config,
	store ports.SessionStore,
	pub ports.Publisher,
	recalculateURL string,
	log zerolog.Logger,
) *Navigator {
	return &Navigator{
		cfg:            cfg,
		store:          store,
		pub:            pub,
		recalculateURL: recalculateURL,
		log:            log,
		now:            time.Now,
		sessions:       make(map[string]*session),
	}
}

// Handle applies cmd to its session and persists the resulting snapshot.
func (n *Navigator) Handle(ctx context.Context, cmd ports.Command) ports.Result {
	start := time.Now()
	defer func() {
		metrics.CommandDuration.WithLabelValues(string(cmd.Kind)).Observe(time.Since(start).Seconds())
	}()

	s := n.session(ctx, cmd.SessionID)

	var res ports.Result
	switch cmd.Kind {
	case ports.CommandFix:
		res = n.applyFix(s, cmd.Fix)
	case ports.CommandPositionError:
		n.applyPositionError(s, cmd.PositionError)
	case ports.CommandSetRoute:
		res.Err = n.applySetRoute(s, cmd.Route)
	case ports.CommandClearRoute:
		s.tracker.ClearRoute()
		s.destination = nil
		s.mode = ""
	case ports.CommandStartWatch:
		s.watchStopped = false
	case ports.CommandRecalculate:
		// Read-only; nothing to persist.
		return n.prepareRecalculation(s)
	default:
		res.Err = errors.New("unknown command " + string(cmd.Kind))
		return res
	}

	n.persist(ctx, s)
	return res
}

func (n *Navigator) applyFix(s *session, fix *domain.Fix) ports.Result {
	if fix == nil {
		return ports.Result{Err: errors.New("fix command without a fix")}
	}
	if s.watchStopped {
		return ports.Result{Err: domain.ErrWatchStopped}
	}

	d := s.tracker.Update(*fix)
	f := *fix
	s.lastFix = &f
	return ports.Result{Display: &d, HasRoute: s.tracker.HasRoute()}
}

func (n *Navigator) applyPositionError(s *session, kind domain.PositionErrorKind) {
	metrics.PositionErrorsTotal.WithLabelValues(string(kind)).Inc()

	if !kind.Terminal() {
		n.log.Debug().Str("session", s.id).Str("kind", string(kind)).Msg("transient position error ignored")
		return
	}

	s.watchStopped = true
	n.log.Info().Str("session", s.id).Msg("position permission denied, watch stopped")
	n.publish(s.id, EventWatchStopped, WatchStoppedPayload{Reason: kind})
}

func (n *Navigator) applySetRoute(s *session, route *domain.Route) error {
	if route == nil {
		route = &domain.Route{}
	}
	if err := s.tracker.SetRoute(route.Path); err != nil {
		s.destination = nil
		s.mode = ""
		return err
	}

	s.destination = route.Destination
	s.mode = route.Mode
	n.publish(s.id, EventRoute, NewRoutePayload(*route))
	return nil
}

func (n *Navigator) prepareRecalculation(s *session) ports.Result {
	if s.lastFix == nil {
		return ports.Result{Err: domain.ErrNoCurrentPosition}
	}
	if !s.destination.Valid() {
		return ports.Result{Err: domain.ErrNoDestination}
	}

	mode := s.mode
	if mode == "" {
		mode = domain.ModeWalking
	}
	return ports.Result{Recalculation: &domain.DirectionsRequest{
		ID:          uuid.NewString(),
		SessionID:   s.id,
		Origin:      s.lastFix.Coordinates(),
		Destination: *s.destination,
		Mode:        mode,
	}}
}

// session returns the live session for id, restoring it from the store the
// first time it is seen.
func (n *Navigator) session(ctx context.Context, id string) *session {
	n.mu.Lock()
	s, ok := n.sessions[id]
	if ok {
		s.touched = n.now()
	}
	n.mu.Unlock()
	if ok {
		return s
	}

	s = &session{id: id}
	sink := &sessionSink{
		sessionID:      id,
		pub:            n.pub,
		recalculateURL: n.recalculateURL,
		hasRoute:       func() bool { return s.tracker.HasRoute() },
		log:            n.log,
	}
	s.tracker = tracker.New(n.cfg, sink, sink)

	snap, err := n.store.Load(ctx, id)
	switch {
	case err == nil:
		s.tracker.Restore(snap.Tracker)
		s.destination = snap.Destination
		s.mode = snap.Mode
		s.lastFix = snap.LastFix
		s.watchStopped = snap.WatchStopped
	case !errors.Is(err, domain.ErrSessionNotFound):
		n.log.Warn().Err(err).Str("session", id).Msg("failed to load session, starting fresh")
	}

	n.mu.Lock()
	s.touched = n.now()
	n.sessions[id] = s
	n.mu.Unlock()
	return s
}

func (n *Navigator) persist(ctx context.Context, s *session) {
	snap := &ports.SessionSnapshot{
		Tracker:      s.tracker.Snapshot(),
		Destination:  s.destination,
		Mode:         s.mode,
		LastFix:      s.lastFix,
		WatchStopped: s.watchStopped,
		UpdatedAt:    n.now().UTC(),
	}
	if err := n.store.Save(ctx, s.id, snap); err != nil {
		n.log.Warn().Err(err).Str("session", s.id).Msg("failed to save session snapshot")
	}
}

func (n *Navigator) publish(sessionID, eventType string, data any) {
	if err := n.pub.Publish(sessionID, eventType, data); err != nil {
		n.log.Warn().Err(err).Str("session", sessionID).Str("event", eventType).Msg("failed to publish event")
	}
}

// Evict drops in-memory sessions idle for longer than maxIdle. Their
// snapshots stay in the store and are restored on the next command.
func (n *Navigator) Evict(maxIdle time.Duration) int {
	cutoff := n.now().Add(-maxIdle)

	n.mu.Lock()
	defer n.mu.Unlock()

	evicted := 0
	for id, s := range n.sessions {
		if s.touched.Before(cutoff) {
			delete(n.sessions, id)
			evicted++
		}
	}
	return evicted
}
