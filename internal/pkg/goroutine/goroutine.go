// Package goroutine provides a bounded background-task manager so best-effort
// work (audit emission, enrichment) cannot pile up unbounded goroutines.
package goroutine

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
)

// DefaultMaxPerCPU is used when NewManager receives a non-positive limit.
const DefaultMaxPerCPU = 100

// Manager runs functions in goroutines with a concurrency ceiling, collecting
// returned errors until Wait is called.
type Manager struct {
	mu     sync.Mutex
	errs   []error
	wg     sync.WaitGroup
	sema   chan struct{}
	state  sync.RWMutex
	closed bool
}

// NewManager creates a Manager allowing at most maxGoroutine concurrent tasks.
func NewManager(maxGoroutine int) *Manager {
	if maxGoroutine < 1 {
		maxGoroutine = runtime.NumCPU() * DefaultMaxPerCPU
	}

	return &Manager{sema: make(chan struct{}, maxGoroutine)}
}

// Go schedules fn if capacity is available. At the ceiling, or after Wait has
// been called, the task is skipped with a warning; callers of best-effort work
// must tolerate that.
func (g *Manager) Go(pCtx context.Context, fn func(ctx context.Context) error) {
	if g == nil {
		return
	}

	g.state.RLock()
	closed := g.closed
	if !closed {
		g.wg.Add(1)
	}
	g.state.RUnlock()

	if closed {
		slog.WarnContext(pCtx, "goroutine manager is closed, skipping task")
		return
	}

	select {
	case g.sema <- struct{}{}:
		go func() {
			defer func() {
				<-g.sema
				if rvr := recover(); rvr != nil {
					slog.ErrorContext(pCtx, "panic in background task", "because", rvr, "stack", string(debug.Stack()))
				}
				g.wg.Done()
			}()

			select {
			case <-pCtx.Done():
				slog.WarnContext(pCtx, "background task canceled", "because", pCtx.Err())
			default:
				if err := fn(pCtx); err != nil {
					g.mu.Lock()
					g.errs = append(g.errs, err)
					g.mu.Unlock()
				}
			}
		}()

	default:
		g.wg.Done()
		slog.WarnContext(pCtx, "goroutine ceiling reached, skipping task")
	}
}

// Wait blocks until all scheduled tasks finish and returns collected errors.
// After Wait, the manager refuses new tasks.
func (g *Manager) Wait() error {
	if g == nil {
		return nil
	}

	g.state.Lock()
	g.closed = true
	g.state.Unlock()

	g.wg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()
	return errors.Join(g.errs...)
}
