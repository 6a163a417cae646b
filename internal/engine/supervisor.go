package engine

import (
	"context"
	"log"
	"time"
)

// RunSupervisor periodically checks for a stalled turn until ctx is
// done. Timeout resolution is mechanical: advance and announce, no
// narration call, no extra-turn grant.
func (e *Engine) RunSupervisor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.CheckTimeout(ctx); err != nil {
				log.Printf("timeout check failed: %v", err)
			}
		}
	}
}

// CheckTimeout runs one supervisor pass under the same lock as every
// other unit of work.
func (e *Engine) CheckTimeout(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, err := e.load(ctx)
	if err != nil {
		return err
	}

	now := e.now()

	// A lone participant always holds the turn; keep their clock fresh
	// so the turn never looks stale.
	if len(state.Participants) <= 1 {
		state.TurnStartedAt = now.UTC()
		return e.persist(ctx, state)
	}

	if now.Sub(state.TurnStartedAt) < e.cfg.TurnTimeout {
		return nil
	}

	skipped, _ := state.CurrentParticipant()
	state.Advance(now)
	if err := e.persist(ctx, state); err != nil {
		return err
	}

	next, _ := state.CurrentParticipant()
	e.metrics.TurnTimeouts.Inc()
	e.notifier.TurnSkipped(skipped, next, state.Round)
	log.Printf("turn timed out: skipped %s, next %s (round %d)", skipped, next, state.Round)
	return nil
}
