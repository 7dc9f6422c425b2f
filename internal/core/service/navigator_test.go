package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"github.com/endlessworld/campusnav/internal/core/domain"
	"github.com/endlessworld/campusnav/internal/core/ports"
	"github.com/endlessworld/campusnav/internal/core/proximity"
	"github.com/endlessworld/campusnav/internal/core/tracker"
)

// ---------------------------------------------------------------------------
// Stubs shared by the navigation tests
// ---------------------------------------------------------------------------

type memSessionStore struct {
	mu      sync.Mutex
	snaps   map[string]ports.SessionSnapshot
	saveErr error
	saves   int
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{snaps: make(map[string]ports.SessionSnapshot)}
}

func (m *memSessionStore) Load(_ context.Context, id string) (*ports.SessionSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snaps[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &snap, nil
}

func (m *memSessionStore) Save(_ context.Context, id string, snap *ports.SessionSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.snaps[id] = *snap
	return nil
}

type published struct {
	user  string
	event string
	data  any
}

type stubPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *stubPublisher) Publish(userID, eventType string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{user: userID, event: eventType, data: data})
	return nil
}

func (p *stubPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.event == eventType {
			n++
		}
	}
	return n
}

func (p *stubPublisher) last(eventType string) (published, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.events) - 1; i >= 0; i-- {
		if p.events[i].event == eventType {
			return p.events[i], true
		}
	}
	return published{}, false
}

// inlineQueue runs commands on the caller's goroutine, one at a time.
type inlineQueue struct {
	mu sync.Mutex
	h  ports.CommandHandler
}

func (q *inlineQueue) Enqueue(cmd ports.Command) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.h.Handle(context.Background(), cmd)
}

func (q *inlineQueue) Do(ctx context.Context, cmd ports.Command) (ports.Result, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.h.Handle(ctx, cmd), nil
}

// planarConfig measures in coordinate units: the test route runs along
// latitude 0, so a fix at latitude y is exactly |y| away.
func planarConfig() tracker.Config {
	return tracker.Config{SnapThreshold: 15, OffRouteThreshold: 25, Metric: proximity.Planar}
}

func straightRoute() *domain.Route {
	return &domain.Route{
		Path:        orb.LineString{{0, 0}, {100, 0}},
		Destination: &domain.Destination{LocationID: "library"},
	}
}

func fixAt(lon, lat float64) *domain.Fix {
	return &domain.Fix{Lat: lat, Lon: lon, Timestamp: time.Now()}
}

func newTestNavigator() (*Navigator, *memSessionStore, *stubPublisher) {
	store := newMemSessionStore()
	pub := &stubPublisher{}
	return NewNavigator(planarConfig(), store, pub, "/v1/navigation/recalculate", zerolog.Nop()), store, pub
}

func handle(t *testing.T, n *Navigator, cmd ports.Command) ports.Result {
	t.Helper()
	if cmd.SessionID == "" {
		cmd.SessionID = "alice"
	}
	return n.Handle(context.Background(), cmd)
}

// ---------------------------------------------------------------------------
// Fix processing
// ---------------------------------------------------------------------------

func TestNavigator_OffRouteNotifiesOncePerTransition(t *testing.T) {
	n, _, pub := newTestNavigator()
	handle(t, n, ports.Command{Kind: ports.CommandSetRoute, Route: straightRoute()})

	for _, y := range []float64{10, 30, 30, 5} {
		if res := handle(t, n, ports.Command{Kind: ports.CommandFix, Fix: fixAt(50, y)}); res.Err != nil {
			t.Fatalf("fix: %v", res.Err)
		}
	}

	if got := pub.count(EventPosition); got != 4 {
		t.Fatalf("expected 4 position events, got %d", got)
	}
	if got := pub.count(EventOffRoute); got != 1 {
		t.Fatalf("expected 1 off_route event, got %d", got)
	}
	if got := pub.count(EventOffRouteCleared); got != 1 {
		t.Fatalf("expected 1 off_route_cleared event, got %d", got)
	}

	ev, _ := pub.last(EventOffRoute)
	payload := ev.data.(OffRoutePayload)
	if payload.Distance != 30 || payload.RecalculateURL != "/v1/navigation/recalculate" {
		t.Fatalf("unexpected off_route payload %+v", payload)
	}
}

func TestNavigator_FixWithoutRouteHasNoDistance(t *testing.T) {
	n, _, pub := newTestNavigator()

	res := handle(t, n, ports.Command{Kind: ports.CommandFix, Fix: fixAt(3, 4)})
	if res.Err != nil || res.Display == nil || res.HasRoute {
		t.Fatalf("unexpected result %+v", res)
	}

	ev, ok := pub.last(EventPosition)
	if !ok {
		t.Fatal("expected a position event")
	}
	p := ev.data.(PositionPayload)
	if p.Distance != nil || p.Snapped {
		t.Fatalf("expected raw marker without distance, got %+v", p)
	}
	if p.Marker != (domain.Coordinates{Lat: 4, Lon: 3}) {
		t.Fatalf("unexpected marker %+v", p.Marker)
	}
}

func TestNavigator_PermissionDeniedStopsWatch(t *testing.T) {
	n, _, pub := newTestNavigator()

	handle(t, n, ports.Command{Kind: ports.CommandPositionError, PositionError: domain.PositionPermissionDenied})
	if pub.count(EventWatchStopped) != 1 {
		t.Fatal("expected watch_stopped event")
	}

	res := handle(t, n, ports.Command{Kind: ports.CommandFix, Fix: fixAt(1, 1)})
	if !errors.Is(res.Err, domain.ErrWatchStopped) {
		t.Fatalf("expected ErrWatchStopped, got %v", res.Err)
	}

	handle(t, n, ports.Command{Kind: ports.CommandStartWatch})
	if res := handle(t, n, ports.Command{Kind: ports.CommandFix, Fix: fixAt(1, 1)}); res.Err != nil {
		t.Fatalf("fix after start_watch: %v", res.Err)
	}
}

func TestNavigator_TransientPositionErrorsIgnored(t *testing.T) {
	n, _, pub := newTestNavigator()

	for _, k := range []domain.PositionErrorKind{domain.PositionUnavailable, domain.PositionTimeout, domain.PositionUnknownError} {
		handle(t, n, ports.Command{Kind: ports.CommandPositionError, PositionError: k})
	}
	if pub.count(EventWatchStopped) != 0 {
		t.Fatal("transient errors must not stop the watch")
	}
	if res := handle(t, n, ports.Command{Kind: ports.CommandFix, Fix: fixAt(1, 1)}); res.Err != nil {
		t.Fatalf("fix: %v", res.Err)
	}
}

// ---------------------------------------------------------------------------
// Route commands
// ---------------------------------------------------------------------------

func TestNavigator_SetRouteTooShortDropsRoute(t *testing.T) {
	n, _, pub := newTestNavigator()
	handle(t, n, ports.Command{Kind: ports.CommandSetRoute, Route: straightRoute()})
	handle(t, n, ports.Command{Kind: ports.CommandFix, Fix: fixAt(50, 40)})

	res := handle(t, n, ports.Command{Kind: ports.CommandSetRoute, Route: &domain.Route{Path: orb.LineString{{1, 1}}}})
	if !errors.Is(res.Err, domain.ErrRouteTooShort) {
		t.Fatalf("expected ErrRouteTooShort, got %v", res.Err)
	}
	if pub.count(EventOffRouteCleared) != 1 {
		t.Fatal("expected visible notification to be hidden")
	}

	res = handle(t, n, ports.Command{Kind: ports.CommandRecalculate})
	if !errors.Is(res.Err, domain.ErrNoDestination) {
		t.Fatalf("destination should be gone, got %v", res.Err)
	}
}

func TestNavigator_ClearRouteWhileOffRouteHides(t *testing.T) {
	n, store, pub := newTestNavigator()
	handle(t, n, ports.Command{Kind: ports.CommandSetRoute, Route: straightRoute()})
	handle(t, n, ports.Command{Kind: ports.CommandFix, Fix: fixAt(50, 40)})

	handle(t, n, ports.Command{Kind: ports.CommandClearRoute})

	if pub.count(EventOffRouteCleared) != 1 {
		t.Fatal("expected off_route_cleared on clear")
	}
	snap, _ := store.Load(context.Background(), "alice")
	if snap.Tracker.OffRoute || len(snap.Tracker.Route) != 0 || snap.Destination != nil {
		t.Fatalf("expected cleared snapshot, got %+v", snap)
	}
}

// ---------------------------------------------------------------------------
// Recalculation validation
// ---------------------------------------------------------------------------

func TestNavigator_RecalculateNeedsPosition(t *testing.T) {
	n, _, _ := newTestNavigator()
	handle(t, n, ports.Command{Kind: ports.CommandSetRoute, Route: straightRoute()})

	res := handle(t, n, ports.Command{Kind: ports.CommandRecalculate})
	if !errors.Is(res.Err, domain.ErrNoCurrentPosition) {
		t.Fatalf("expected ErrNoCurrentPosition, got %v", res.Err)
	}
}

func TestNavigator_RecalculateNeedsDestination(t *testing.T) {
	n, _, _ := newTestNavigator()
	handle(t, n, ports.Command{Kind: ports.CommandSetRoute, Route: &domain.Route{Path: orb.LineString{{0, 0}, {1, 0}}}})
	handle(t, n, ports.Command{Kind: ports.CommandFix, Fix: fixAt(0, 0)})

	res := handle(t, n, ports.Command{Kind: ports.CommandRecalculate})
	if !errors.Is(res.Err, domain.ErrNoDestination) {
		t.Fatalf("expected ErrNoDestination, got %v", res.Err)
	}
}

func TestNavigator_RecalculateBuildsRequestFromLastFix(t *testing.T) {
	n, _, _ := newTestNavigator()
	handle(t, n, ports.Command{Kind: ports.CommandSetRoute, Route: straightRoute()})
	handle(t, n, ports.Command{Kind: ports.CommandFix, Fix: fixAt(10, 2)})
	handle(t, n, ports.Command{Kind: ports.CommandFix, Fix: fixAt(20, 3)})

	res := handle(t, n, ports.Command{Kind: ports.CommandRecalculate})
	if res.Err != nil {
		t.Fatalf("recalculate: %v", res.Err)
	}
	req := res.Recalculation
	if req.ID == "" || req.SessionID != "alice" {
		t.Fatalf("unexpected request identity %+v", req)
	}
	if req.Origin != (domain.Coordinates{Lat: 3, Lon: 20}) {
		t.Fatalf("expected origin at the last fix, got %+v", req.Origin)
	}
	if req.Destination.LocationID != "library" || req.Mode != domain.ModeWalking {
		t.Fatalf("unexpected request %+v", req)
	}
}

// ---------------------------------------------------------------------------
// Persistence
// ---------------------------------------------------------------------------

func TestNavigator_StateSurvivesRestart(t *testing.T) {
	n, store, _ := newTestNavigator()
	handle(t, n, ports.Command{Kind: ports.CommandSetRoute, Route: straightRoute()})
	handle(t, n, ports.Command{Kind: ports.CommandFix, Fix: fixAt(50, 40)})

	pub := &stubPublisher{}
	restarted := NewNavigator(planarConfig(), store, pub, "", zerolog.Nop())

	handle(t, restarted, ports.Command{Kind: ports.CommandFix, Fix: fixAt(50, 35)})
	if pub.count(EventOffRoute) != 0 {
		t.Fatal("restored off-route state must not notify again")
	}
	handle(t, restarted, ports.Command{Kind: ports.CommandFix, Fix: fixAt(50, 1)})
	if pub.count(EventOffRouteCleared) != 1 {
		t.Fatal("expected hide after returning to the route")
	}
}

func TestNavigator_SaveFailureDoesNotFailCommand(t *testing.T) {
	n, store, _ := newTestNavigator()
	store.saveErr = errors.New("redis down")

	if res := handle(t, n, ports.Command{Kind: ports.CommandSetRoute, Route: straightRoute()}); res.Err != nil {
		t.Fatalf("expected success despite store failure, got %v", res.Err)
	}
	if store.saves != 1 {
		t.Fatalf("expected one save attempt, got %d", store.saves)
	}
}

func TestNavigator_SessionsAreIsolated(t *testing.T) {
	n, _, pub := newTestNavigator()
	handle(t, n, ports.Command{SessionID: "alice", Kind: ports.CommandSetRoute, Route: straightRoute()})
	handle(t, n, ports.Command{SessionID: "bob", Kind: ports.CommandFix, Fix: fixAt(50, 40)})

	if pub.count(EventOffRoute) != 0 {
		t.Fatal("bob has no route and cannot be off-route")
	}
}

func TestNavigator_Evict(t *testing.T) {
	n, _, _ := newTestNavigator()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return now }

	handle(t, n, ports.Command{SessionID: "old", Kind: ports.CommandStartWatch})
	now = now.Add(time.Hour)
	handle(t, n, ports.Command{SessionID: "fresh", Kind: ports.CommandStartWatch})

	if got := n.Evict(30 * time.Minute); got != 1 {
		t.Fatalf("expected 1 eviction, got %d", got)
	}
	if _, ok := n.sessions["fresh"]; !ok {
		t.Fatal("fresh session should stay")
	}
}
