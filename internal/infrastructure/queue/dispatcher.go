package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"github.com/endlessworld/campusnav/internal/api/metrics"
	"github.com/endlessworld/campusnav/internal/core/ports"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// ErrStopped is returned by Do once the workers have exited.
var ErrStopped = errors.New("dispatcher stopped")

// Dispatcher routes session commands to a fixed set of workers using
// consistent hashing on the session id, guaranteeing per-session ordering.
type Dispatcher struct {
	workers []chan ports.Command
	handler ports.CommandHandler
	log     zerolog.Logger

	wg   conc.WaitGroup
	done chan struct{}
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, handler ports.CommandHandler, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.Command, numWorkers),
		handler: handler,
		log:     log,
		done:    make(chan struct{}),
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.Command, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Go(func() { d.runWorker(ctx, i, ch) })
	}
	go func() {
		d.wg.Wait()
		close(d.done)
	}()
}

// Done is closed once every worker has returned.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// Enqueue sends a command to the worker responsible for its session.
// The call is non-blocking up to channelBuffer capacity.
func (d *Dispatcher) Enqueue(cmd ports.Command) {
	idx := d.shardIndex(cmd.SessionID)
	d.workers[idx] <- cmd
	metrics.CommandQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
}

// Do enqueues cmd and waits for its result. It returns ctx.Err() if the
// caller gives up first and ErrStopped if the workers are gone; the command
// may still be applied later in the first case.
func (d *Dispatcher) Do(ctx context.Context, cmd ports.Command) (ports.Result, error) {
	reply := make(chan ports.Result, 1)
	cmd.Reply = reply

	idx := d.shardIndex(cmd.SessionID)
	select {
	case d.workers[idx] <- cmd:
	case <-ctx.Done():
		return ports.Result{}, ctx.Err()
	case <-d.done:
		return ports.Result{}, ErrStopped
	}

	select {
	case res := <-reply:
		return res, nil
	case <-ctx.Done():
		return ports.Result{}, ctx.Err()
	case <-d.done:
		return ports.Result{}, ErrStopped
	}
}

// shardIndex maps a session id deterministically to a worker index.
func (d *Dispatcher) shardIndex(sessionID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.Command) {
	depth := metrics.CommandQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-ch:
			if !ok {
				return
			}
			depth.Set(float64(len(ch)))

			res := d.handler.Handle(ctx, cmd)
			if cmd.Reply != nil {
				cmd.Reply <- res
				continue
			}
			if res.Err != nil {
				d.log.Error().Err(res.Err).
					Str("session", cmd.SessionID).
					Str("kind", string(cmd.Kind)).
					Int("worker_id", id).
					Msg("command processing failed")
			}
		}
	}
}
