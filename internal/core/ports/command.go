package ports

import (
	"context"

	"github.com/endlessworld/campusnav/internal/core/domain"
	"github.com/endlessworld/campusnav/internal/core/tracker"
)

// CommandKind names a mutation of one navigation session.
type CommandKind string

const (
	CommandFix           CommandKind = "fix"
	CommandPositionError CommandKind = "position_error"
	CommandSetRoute      CommandKind = "set_route"
	CommandClearRoute    CommandKind = "clear_route"
	CommandStartWatch    CommandKind = "start_watch"
	CommandRecalculate   CommandKind = "recalculate"
)

// Command is the unit of work routed to the session's worker. Only the field
// matching Kind is read.
type Command struct {
	SessionID     string
	Kind          CommandKind
	Fix           *domain.Fix
	PositionError domain.PositionErrorKind
	Route         *domain.Route

	// Reply is set by CommandQueue.Do. Fire-and-forget commands leave it nil.
	Reply chan<- Result
}

// Result is what a worker hands back for a synchronous command.
type Result struct {
	Display *tracker.Display
	// HasRoute reports whether a route was active when Display was computed.
	HasRoute      bool
	Recalculation *domain.DirectionsRequest
	Err           error
}

// CommandHandler applies a single command. Calls for the same session are
// never concurrent.
type CommandHandler interface {
	Handle(ctx context.Context, cmd Command) Result
}

// CommandQueue delivers commands to their session's worker in order.
type CommandQueue interface {
	// Enqueue hands cmd to its worker without waiting for the outcome.
	Enqueue(cmd Command)
	// Do enqueues cmd and blocks until the worker has applied it or ctx is done.
	Do(ctx context.Context, cmd Command) (Result, error)
}
