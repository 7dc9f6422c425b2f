// Package tracker follows a live position against the active route.
//
// For every fix the Tracker projects the raw position onto the route, decides
// whether the user marker sticks to the line, and drives the off-route
// notification:
//
//	on-route  --distance > OffRouteThreshold-->  off-route   (ShowOffRoute)
//	off-route --distance <= OffRouteThreshold--> on-route    (HideOffRoute)
//
// There is a single threshold and no dead band, so a distance hovering at
// the threshold flips the state on every fix.
//
// A Tracker is not safe for concurrent use. Callers serialize fixes and
// route changes for one tracker, which is what the session dispatcher does.
package tracker

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/endlessworld/campusnav/internal/core/domain"
	"github.com/endlessworld/campusnav/internal/core/proximity"
)

// Defaults in meters, used with proximity.Haversine.
const (
	DefaultSnapThreshold     = 15.0
	DefaultOffRouteThreshold = 25.0
)

// ErrInvalidThresholds is returned by Config.Validate.
var ErrInvalidThresholds = errors.New("tracker: off-route threshold must exceed snap threshold")

// Config holds the fixed tuning of a tracker.
type Config struct {
	SnapThreshold     float64
	OffRouteThreshold float64
	Metric            proximity.Metric
}

// DefaultConfig returns the meter-based defaults.
func DefaultConfig() Config {
	return Config{
		SnapThreshold:     DefaultSnapThreshold,
		OffRouteThreshold: DefaultOffRouteThreshold,
		Metric:            proximity.Haversine,
	}
}

// Validate checks that both thresholds are positive and ordered.
func (c Config) Validate() error {
	if c.SnapThreshold <= 0 || c.OffRouteThreshold <= c.SnapThreshold {
		return fmt.Errorf("%w (snap=%v, off-route=%v)", ErrInvalidThresholds, c.SnapThreshold, c.OffRouteThreshold)
	}
	return nil
}

// AccuracyCircle denotes GPS uncertainty around the raw fix.
type AccuracyCircle struct {
	Center orb.Point
	Radius float64
}

// Display is where the live marker and accuracy circle should be drawn.
type Display struct {
	Marker  orb.Point
	Snapped bool
	// Distance from the raw fix to the route. Zero when there is no route.
	Distance float64
	OnRoute  bool
	Accuracy *AccuracyCircle
}

// DisplaySink receives the rendering decision for every processed fix.
type DisplaySink interface {
	ShowPosition(d Display)
}

// NotificationSink receives off-route transitions. ShowOffRoute gets the
// distance rounded to a whole unit.
type NotificationSink interface {
	ShowOffRoute(distance float64)
	HideOffRoute()
}

// Tracker owns the geometric and off-route state of one navigation session.
type Tracker struct {
	cfg     Config
	display DisplaySink
	notify  NotificationSink

	route        orb.LineString
	state        State
	lastDistance float64
}

// New returns a tracker with no active route in the on-route state. A nil
// Metric defaults to proximity.Haversine; nil sinks discard their events.
func New(cfg Config, display DisplaySink, notify NotificationSink) *Tracker {
	if cfg.Metric == nil {
		cfg.Metric = proximity.Haversine
	}
	if display == nil {
		display = discard{}
	}
	if notify == nil {
		notify = discard{}
	}
	return &Tracker{cfg: cfg, display: display, notify: notify, state: OnRoute}
}

// State returns the current off-route state.
func (t *Tracker) State() State { return t.state }

// LastDistance returns the most recently computed distance to the route.
func (t *Tracker) LastDistance() float64 { return t.lastDistance }

// HasRoute reports whether a usable route geometry is active.
func (t *Tracker) HasRoute() bool { return len(t.route) >= 2 }

// Route returns a copy of the active geometry.
func (t *Tracker) Route() orb.LineString { return t.route.Clone() }

// SetRoute replaces the active route and resets to on-route, hiding a
// visible notification. Geometry with fewer than two vertices leaves the
// tracker without a route and returns domain.ErrRouteTooShort.
func (t *Tracker) SetRoute(path orb.LineString) error {
	t.resetState()
	if len(path) < 2 {
		t.route = nil
		return domain.ErrRouteTooShort
	}
	t.route = path.Clone()
	return nil
}

// ClearRoute drops the active route. A visible off-route notification is
// hidden immediately, without waiting for the next fix.
func (t *Tracker) ClearRoute() {
	t.route = nil
	t.resetState()
}

// Update processes one fix, emits the display decision and any off-route
// transition, and returns the display decision.
func (t *Tracker) Update(fix domain.Fix) Display {
	raw := fix.Point()

	d := Display{Marker: raw, OnRoute: true}
	if fix.Accuracy != nil {
		d.Accuracy = &AccuracyCircle{Center: raw, Radius: *fix.Accuracy}
	}

	closest, ok := proximity.ClosestPoint(t.route, raw)
	if !ok {
		t.resetState()
		t.display.ShowPosition(d)
		return d
	}

	dist := t.cfg.Metric(raw, closest)
	t.lastDistance = dist
	d.Distance = dist

	if dist < t.cfg.SnapThreshold {
		d.Marker = closest
		d.Snapped = true
	}

	switch {
	case dist > t.cfg.OffRouteThreshold && t.state == OnRoute:
		t.state = OffRoute
		t.notify.ShowOffRoute(math.Round(dist))
	case dist <= t.cfg.OffRouteThreshold && t.state == OffRoute:
		t.state = OnRoute
		t.notify.HideOffRoute()
	}
	d.OnRoute = t.state == OnRoute

	t.display.ShowPosition(d)
	return d
}

func (t *Tracker) resetState() {
	t.lastDistance = 0
	if t.state == OffRoute {
		t.state = OnRoute
		t.notify.HideOffRoute()
	}
}

type discard struct{}

func (discard) ShowPosition(Display) {}
func (discard) ShowOffRoute(float64) {}
func (discard) HideOffRoute()        {}
