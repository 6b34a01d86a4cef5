package ports

import (
	"context"
	"time"

	"github.com/aretw0/nexus-bootstrap/pkg/domain"
)

// Executor runs external commands on behalf of the bootstrap stages.
type Executor interface {
	// Run executes cmd to completion and reports its outcome.
	// A non-zero exit is not an error; err is reserved for spawn failures and timeouts.
	Run(ctx context.Context, cmd domain.Command) (domain.CommandOutcome, error)

	// Start spawns cmd, feeds its Stdin payload and returns without waiting.
	// The child's output streams through to the bootstrapper's own.
	Start(ctx context.Context, cmd domain.Command) (Process, error)
}

// Process is a handle on a child started by Executor.Start.
type Process interface {
	// Pid returns the operating system process ID.
	Pid() int
	// Wait blocks until the child exits and returns its exit code.
	Wait() (int, error)
	// Done is closed once the child has exited.
	Done() <-chan struct{}
	// Terminate asks the child to stop, escalating to a kill after grace.
	Terminate(grace time.Duration) error
}

// PathLookup resolves an executable name on the search path.
type PathLookup func(name string) (string, error)

// OutcomeObserver is notified of every finished command.
type OutcomeObserver interface {
	ObserveOutcome(ctx context.Context, outcome domain.CommandOutcome)
}
