package scheduler

import (
	"context"
	"time"

	"github.com/oukeidos/dualpage/internal/config"
)

// Run dispatches the units in view every DispatchInterval and drains tree
// mutations every DrainInterval until ctx ends. Backend requests run in the
// background so that a slow request only delays its own units.
func (e *Engine) Run(ctx context.Context) error {
	dispatchEvery := e.cfg.DispatchInterval
	if dispatchEvery <= 0 {
		dispatchEvery = config.DefaultDispatchInterval
	}
	drainEvery := e.cfg.DrainInterval
	if drainEvery <= 0 {
		drainEvery = config.DefaultDrainInterval
	}
	dispatch := time.NewTicker(dispatchEvery)
	defer dispatch.Stop()
	drain := time.NewTicker(drainEvery)
	defer drain.Stop()
	defer e.inflight.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.kick:
			e.dispatchAsync(ctx)
		case <-dispatch.C:
			e.dispatchAsync(ctx)
		case <-drain.C:
			if _, err := e.DrainOnce(ctx); err != nil && ctx.Err() == nil {
				e.log.Warn("Mutation drain failed", "error", err)
			}
		}
	}
}

func (e *Engine) dispatchAsync(ctx context.Context) {
	b := e.collect()
	if b == nil {
		return
	}
	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		_ = e.deliver(ctx, b)
	}()
}

// Wait blocks until every request started by Run has finished.
func (e *Engine) Wait() {
	e.inflight.Wait()
}

// Close stops following visibility and tree mutations. The page is left as is.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopVis != nil {
		e.stopVis()
		e.stopVis = nil
	}
	e.disableObserverLocked()
}
