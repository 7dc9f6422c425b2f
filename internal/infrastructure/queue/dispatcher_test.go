package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/endlessworld/campusnav/internal/core/domain"
	"github.com/endlessworld/campusnav/internal/core/ports"
)

// recordingHandler remembers the order in which fixes arrived per session and
// flags any overlap between two commands of the same session.
type recordingHandler struct {
	mu       sync.Mutex
	order    map[string][]float64
	inFlight map[string]bool
	overlap  bool
	delay    time.Duration
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{order: make(map[string][]float64), inFlight: make(map[string]bool)}
}

func (h *recordingHandler) Handle(_ context.Context, cmd ports.Command) ports.Result {
	h.mu.Lock()
	if h.inFlight[cmd.SessionID] {
		h.overlap = true
	}
	h.inFlight[cmd.SessionID] = true
	h.mu.Unlock()

	time.Sleep(h.delay)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.inFlight[cmd.SessionID] = false
	if cmd.Kind == ports.CommandRecalculate {
		return ports.Result{Err: domain.ErrNoDestination}
	}
	h.order[cmd.SessionID] = append(h.order[cmd.SessionID], cmd.Fix.Lat)
	return ports.Result{}
}

func TestDispatcher_PreservesPerSessionOrder(t *testing.T) {
	h := newRecordingHandler()
	d := NewDispatcher(4, h, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	sessions := []string{"alice", "bob", "carol"}
	for i := 0; i < 50; i++ {
		for _, s := range sessions {
			d.Enqueue(ports.Command{SessionID: s, Kind: ports.CommandFix, Fix: &domain.Fix{Lat: float64(i)}})
		}
	}
	// A synchronous command queues behind everything already sent for bob.
	for _, s := range sessions {
		if _, err := d.Do(ctx, ports.Command{SessionID: s, Kind: ports.CommandFix, Fix: &domain.Fix{Lat: 50}}); err != nil {
			t.Fatalf("Do: %v", err)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.overlap {
		t.Fatal("two commands of one session ran concurrently")
	}
	for _, s := range sessions {
		got := h.order[s]
		if len(got) != 51 {
			t.Fatalf("%s: expected 51 commands, got %d", s, len(got))
		}
		for i, v := range got {
			if v != float64(i) {
				t.Fatalf("%s: command %d out of order (got %v)", s, i, v)
			}
		}
	}
}

func TestDispatcher_DoReturnsHandlerResult(t *testing.T) {
	d := NewDispatcher(2, newRecordingHandler(), zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	res, err := d.Do(ctx, ports.Command{SessionID: "alice", Kind: ports.CommandRecalculate})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if !errors.Is(res.Err, domain.ErrNoDestination) {
		t.Fatalf("expected handler error in result, got %v", res.Err)
	}
}

func TestDispatcher_DoHonoursCallerContext(t *testing.T) {
	h := newRecordingHandler()
	h.delay = 200 * time.Millisecond
	d := NewDispatcher(1, h, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	callCtx, callCancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer callCancel()

	_, err := d.Do(callCtx, ports.Command{SessionID: "alice", Kind: ports.CommandFix, Fix: &domain.Fix{}})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestDispatcher_DoAfterStop(t *testing.T) {
	d := NewDispatcher(1, newRecordingHandler(), zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	cancel()
	<-d.Done()

	// Fill the buffer so the send cannot succeed either.
	for i := 0; i < channelBuffer; i++ {
		d.workers[0] <- ports.Command{}
	}
	_, err := d.Do(context.Background(), ports.Command{SessionID: "alice"})
	if !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}

func TestDispatcher_ShardIndexIsStable(t *testing.T) {
	d := NewDispatcher(0, newRecordingHandler(), zerolog.Nop())
	if len(d.workers) != defaultWorkers {
		t.Fatalf("expected %d workers, got %d", defaultWorkers, len(d.workers))
	}
	first := d.shardIndex("alice")
	for i := 0; i < 10; i++ {
		if d.shardIndex("alice") != first {
			t.Fatal("shard index must be deterministic")
		}
	}
}
