// ABOUTME: Serialization gate that admits one in-flight backend request per process
// ABOUTME: Supports a blocking wait and a cooperative polling wait
package gate

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

// DefaultPollInterval is how often a polling waiter retries the gate
const DefaultPollInterval = 10 * time.Millisecond

// Gate guards a single-consumer resource.
//
// Known limitation: waiters are not admitted in FIFO order. Polling waiters
// can overtake blocked ones, so under sustained contention a waiter may be
// delayed arbitrarily. Acceptable for one backend with low concurrency.
type Gate interface {
	// Acquire blocks until exclusive access is granted
	Acquire()
	// TryAcquire takes the gate if it is free and reports whether it did
	TryAcquire() bool
	// Release returns access; it must follow every successful acquisition
	Release()
}

// Semaphore is a Gate backed by a weight-1 semaphore
type Semaphore struct {
	sem *semaphore.Weighted
}

// NewSemaphore creates an open gate
func NewSemaphore() *Semaphore {
	return &Semaphore{sem: semaphore.NewWeighted(1)}
}

func (s *Semaphore) Acquire() {
	// Acquire only fails when its context is done; Background never is.
	_ = s.sem.Acquire(context.Background(), 1)
}

func (s *Semaphore) TryAcquire() bool {
	return s.sem.TryAcquire(1)
}

func (s *Semaphore) Release() {
	s.sem.Release(1)
}

// Nop is a Gate that never blocks. Useful in tests and for backends that accept concurrent requests.
type Nop struct{}

func (Nop) Acquire()         {}
func (Nop) TryAcquire() bool { return true }
func (Nop) Release()         {}

// Do runs fn while holding g, waiting in blocking mode. The gate is released on every exit path, including panics.
func Do(g Gate, fn func() error) error {
	g.Acquire()
	defer g.Release()
	return fn()
}

// DoPolling runs fn while holding g, waiting cooperatively: it retries TryAcquire
// every interval instead of parking, so a cancelled context abandons the wait.
func DoPolling(ctx context.Context, g Gate, interval time.Duration, fn func() error) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if err := waitPolling(ctx, g, interval); err != nil {
		return err
	}
	defer g.Release()
	return fn()
}

func waitPolling(ctx context.Context, g Gate, interval time.Duration) error {
	if g.TryAcquire() {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if g.TryAcquire() {
				return nil
			}
		}
	}
}

// Mode selects how callers wait for the gate
type Mode string

const (
	ModeBlocking Mode = "blocking"
	ModePolling  Mode = "polling"
)

// IsValid checks if the mode is known
func (m Mode) IsValid() bool {
	return m == ModeBlocking || m == ModePolling
}

// Runner binds a gate to a wait mode so call sites stay mode-agnostic
type Runner struct {
	Gate         Gate
	Mode         Mode
	PollInterval time.Duration
}

// Run executes fn under the gate using the configured wait mode
func (r Runner) Run(ctx context.Context, fn func() error) error {
	g := r.Gate
	if g == nil {
		g = Nop{}
	}
	if r.Mode == ModePolling {
		return DoPolling(ctx, g, r.PollInterval, fn)
	}
	return Do(g, fn)
}
