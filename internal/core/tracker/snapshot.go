package tracker

import (
	"github.com/paulmach/orb"
)

// State is the off-route state of a tracker.
type State int

const (
	OnRoute State = iota
	OffRoute
)

func (s State) String() string {
	switch s {
	case OffRoute:
		return "off_route"
	default:
		return "on_route"
	}
}

// Snapshot is the persistable part of a tracker. Config and sinks are not
// included; they are supplied again when the tracker is rebuilt.
type Snapshot struct {
	Route        orb.LineString `json:"route,omitempty"`
	OffRoute     bool           `json:"off_route"`
	LastDistance float64        `json:"last_distance"`
}

// Snapshot captures the current route and state.
func (t *Tracker) Snapshot() Snapshot {
	return Snapshot{
		Route:        t.route.Clone(),
		OffRoute:     t.state == OffRoute,
		LastDistance: t.lastDistance,
	}
}

// Restore loads a snapshot without emitting any notification. A restored
// off-route state is assumed to be already visible to the user.
func (t *Tracker) Restore(s Snapshot) {
	t.route = nil
	if len(s.Route) >= 2 {
		t.route = s.Route.Clone()
	}
	t.state = OnRoute
	if s.OffRoute && t.route != nil {
		t.state = OffRoute
	}
	t.lastDistance = s.LastDistance
}
