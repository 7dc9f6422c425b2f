package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/paulmach/orb"
	"github.com/redis/go-redis/v9"

	"github.com/endlessworld/campusnav/internal/core/domain"
	"github.com/endlessworld/campusnav/internal/core/ports"
	"github.com/endlessworld/campusnav/internal/core/tracker"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// ---------------------------------------------------------------------------
// Connect
// ---------------------------------------------------------------------------

func TestConnect_PingsServer(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Connect(context.Background(), Config{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	_ = client.Close()
}

func TestConnect_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if _, err := Connect(context.Background(), Config{Addr: addr, Timeout: 200 * time.Millisecond}); err == nil {
		t.Fatal("expected ping failure")
	}
}

// ---------------------------------------------------------------------------
// FixDedup
// ---------------------------------------------------------------------------

func TestFixDedup_MarkNew(t *testing.T) {
	mr, client := newTestClient(t)
	d := NewFixDedup(client)
	ctx := context.Background()
	ts := time.Date(2026, 5, 4, 10, 0, 0, 123, time.UTC)

	first, err := d.MarkNew(ctx, "alice", ts)
	if err != nil || !first {
		t.Fatalf("first mark: first=%v err=%v", first, err)
	}
	again, err := d.MarkNew(ctx, "alice", ts)
	if err != nil || again {
		t.Fatalf("second mark should report a duplicate: %v err=%v", again, err)
	}
	other, _ := d.MarkNew(ctx, "bob", ts)
	if !other {
		t.Fatal("same timestamp for another session is not a duplicate")
	}

	mr.FastForward(dedupTTL + time.Second)
	expired, _ := d.MarkNew(ctx, "alice", ts)
	if !expired {
		t.Fatal("mark should expire after the TTL")
	}
}

func TestFixDedup_Forget(t *testing.T) {
	mr, client := newTestClient(t)
	d := NewFixDedup(client)
	ctx := context.Background()
	ts := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	_, _ = d.MarkNew(ctx, "alice", ts)
	if err := d.Forget(ctx, "alice", ts); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if mr.Exists(d.key("alice", ts)) {
		t.Fatal("key should be gone")
	}
	again, err := d.MarkNew(ctx, "alice", ts)
	if err != nil || !again {
		t.Fatalf("forgotten fix should be new again: %v err=%v", again, err)
	}
	if err := d.Forget(ctx, "ghost", ts); err != nil {
		t.Fatalf("forgetting an unknown fix: %v", err)
	}
}

// ---------------------------------------------------------------------------
// SessionStore
// ---------------------------------------------------------------------------

func TestSessionStore_RoundTrip(t *testing.T) {
	_, client := newTestClient(t)
	store := NewSessionStore(client, time.Hour)
	ctx := context.Background()

	acc := 8.0
	snap := &ports.SessionSnapshot{
		Tracker: tracker.Snapshot{
			Route:        orb.LineString{{39.2, -6.78}, {39.21, -6.781}},
			OffRoute:     true,
			LastDistance: 31.5,
		},
		Destination:  &domain.Destination{LocationID: "library", Name: "Main Library"},
		Mode:         domain.ModeWalking,
		LastFix:      &domain.Fix{Lat: -6.7805, Lon: 39.205, Accuracy: &acc},
		WatchStopped: true,
		UpdatedAt:    time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
	}
	if err := store.Save(ctx, "alice", snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load(ctx, "alice")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !got.Tracker.OffRoute || got.Tracker.LastDistance != 31.5 || len(got.Tracker.Route) != 2 {
		t.Fatalf("tracker snapshot mismatch: %+v", got.Tracker)
	}
	if got.Tracker.Route[1] != (orb.Point{39.21, -6.781}) {
		t.Fatalf("route vertex mismatch: %v", got.Tracker.Route[1])
	}
	if got.Destination.LocationID != "library" || !got.WatchStopped || got.Mode != domain.ModeWalking {
		t.Fatalf("session fields mismatch: %+v", got)
	}
	if got.LastFix == nil || *got.LastFix.Accuracy != 8 {
		t.Fatalf("last fix mismatch: %+v", got.LastFix)
	}
	if !got.UpdatedAt.Equal(snap.UpdatedAt) {
		t.Fatalf("updated_at mismatch: %v", got.UpdatedAt)
	}
}

func TestSessionStore_MissingSession(t *testing.T) {
	_, client := newTestClient(t)
	store := NewSessionStore(client, 0)

	if _, err := store.Load(context.Background(), "ghost"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionStore_TTL(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewSessionStore(client, time.Minute)
	ctx := context.Background()

	_ = store.Save(ctx, "alice", &ports.SessionSnapshot{})
	if ttl := mr.TTL(sessionKey("alice")); ttl != time.Minute {
		t.Fatalf("expected 1m TTL, got %v", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := store.Load(ctx, "alice"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}

}

func TestSessionStore_CorruptPayload(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewSessionStore(client, time.Minute)

	_ = mr.Set(sessionKey("alice"), "{not json")
	_, err := store.Load(context.Background(), "alice")
	if err == nil || errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
}
