package ports

import (
	"context"
	"time"

	"github.com/endlessworld/campusnav/internal/core/domain"
	"github.com/endlessworld/campusnav/internal/core/tracker"
)

// SessionSnapshot is the persisted form of a navigation session. Only the
// latest fix is kept; there is no location history.
type SessionSnapshot struct {
	Tracker      tracker.Snapshot    `json:"tracker"`
	Destination  *domain.Destination `json:"destination,omitempty"`
	Mode         string              `json:"mode,omitempty"`
	LastFix      *domain.Fix         `json:"last_fix,omitempty"`
	WatchStopped bool                `json:"watch_stopped"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// SessionStore persists session snapshots between commands and restarts.
type SessionStore interface {
	// Load returns domain.ErrSessionNotFound when nothing is stored for id.
	Load(ctx context.Context, id string) (*SessionSnapshot, error)
	Save(ctx context.Context, id string, snap *SessionSnapshot) error
}

// FixDeduplicator remembers fixes that were already accepted.
type FixDeduplicator interface {
	// MarkNew records the fix and reports whether it was seen for the first time.
	MarkNew(ctx context.Context, sessionID string, ts time.Time) (bool, error)
	// Forget removes a mark so the same fix is accepted again.
	Forget(ctx context.Context, sessionID string, ts time.Time) error
}
