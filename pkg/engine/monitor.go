package engine

import (
	"context"
	"errors"
	"time"

	"github.com/ezivnuska/pokertable/pkg/poker"
	"github.com/ezivnuska/pokertable/pkg/store"
)

// Tick runs one maintenance pass over every table: expired action timers,
// scheduled hand starts, stale connections, automated seats and post-hand
// cleanup. It is safe to run from multiple processes at once; every mutation
// goes through the exclusive-access protocol, so overlapping sweeps collapse
// into no-ops.
func (e *Engine) Tick(ctx context.Context) {
	codes, err := e.store.ListCodes()
	if err != nil {
		e.log.Errorf("maintenance sweep: listing games: %v", err)
		return
	}

	for _, code := range codes {
		if ctx.Err() != nil {
			return
		}
		e.tickGame(ctx, code)
	}
}

func (e *Engine) tickGame(ctx context.Context, code string) {
	g, err := e.GetGame(code)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			e.log.Errorf("maintenance sweep: reading game %s: %v", code, err)
		}
		return
	}

	// Finished hand: after the grace period, roll into the next hand (or
	// unlock for new joins).
	if g.Locked && g.Stage == poker.StageEnd {
		if e.now().Sub(g.UpdatedAt) >= e.cfg.NextHandDelay {
			if err := e.advanceFinishedHand(ctx, code); err != nil && !IsRuleError(err) {
				e.log.Errorf("maintenance sweep: advancing game %s: %v", code, err)
			}
		}
		return
	}

	// Scheduled start.
	if !g.Locked && g.LockTime != nil && !e.now().Before(*g.LockTime) {
		if _, err := e.Lock(ctx, code); err != nil {
			if IsRuleError(err) {
				// Can't start (not enough players); disarm the countdown.
				if _, cerr := e.ScheduleLock(ctx, code, time.Time{}); cerr != nil {
					e.log.Errorf("maintenance sweep: clearing lock time for %s: %v", code, cerr)
				}
			} else {
				e.log.Errorf("maintenance sweep: locking game %s: %v", code, err)
			}
		}
		return
	}

	if !g.Locked {
		return
	}

	// Expired timer resolves first so a timed-out human does not also get
	// swept as disconnected in the same pass.
	if g.ActionTimer != nil && g.ActionTimer.Expired(e.now(), e.cfg.TimerTolerance) {
		if _, err := e.ResolveExpiredTimer(ctx, code); err != nil && !IsRuleError(err) {
			e.log.Errorf("maintenance sweep: resolving timer for %s: %v", code, err)
		}
		return
	}

	if e.sweepDisconnected(ctx, code, g) {
		return
	}

	if acted, err := e.MaybeActAI(ctx, code); err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			e.log.Errorf("maintenance sweep: ai turn for %s: %v", code, err)
		}
	} else if acted {
		e.log.Debugf("maintenance sweep: ai acted in game %s", code)
	}
}

// sweepDisconnected folds the current actor when their heartbeat has gone
// stale and no timer is covering them, marking the seat away so it is dropped
// between hands. Seats not facing action are left alone. Returns true if a
// fold was applied.
func (e *Engine) sweepDisconnected(ctx context.Context, code string, snapshot *poker.Game) bool {
	cur := snapshot.CurrentPlayer()
	if cur == nil || cur.IsAI || !cur.Eligible() {
		return false
	}
	if e.now().Sub(cur.LastHeartbeat) < e.cfg.DisconnectAfter {
		return false
	}
	// A running timer gets to expire first; the disconnect sweep only
	// catches seats with no timer protecting them.
	if snapshot.ActionTimer != nil && !snapshot.ActionTimer.Expired(e.now(), e.cfg.TimerTolerance) {
		return false
	}

	disconnectedID := cur.ID
	sink := &eventSink{}
	g, err := e.withExclusiveAccess(ctx, code, func(g *poker.Game) error {
		idx := g.SeatOf(disconnectedID)
		if idx < 0 || idx != g.CurrentPlayerIndex {
			return errNoEffect
		}
		p := g.Players[idx]
		if p.Folded || e.now().Sub(p.LastHeartbeat) < e.cfg.DisconnectAfter {
			return errNoEffect
		}
		p.IsAway = true
		e.clearTimer(g, sink)
		e.log.Infof("game %s: folding disconnected player %s", code, p.Username)
		return e.applyFold(g, idx, sink)
	})
	if err != nil {
		if !IsRuleError(err) {
			e.log.Errorf("maintenance sweep: disconnect fold in %s: %v", code, err)
		}
		return false
	}

	e.flush(sink, g)
	return true
}

// advanceFinishedHand transitions a finished hand into the next one, or back
// to the waiting state when fewer than two funded players remain.
func (e *Engine) advanceFinishedHand(ctx context.Context, code string) error {
	sink := &eventSink{}
	g, err := e.withExclusiveAccess(ctx, code, func(g *poker.Game) error {
		if !g.Locked || g.Stage != poker.StageEnd {
			return errNoEffect
		}
		e.beginNextHand(g, sink)
		return nil
	})
	if err != nil {
		return err
	}

	// Delete a drained non-singleton table instead of letting it idle.
	if len(g.Players) == 0 && code != e.cfg.SingletonCode {
		if err := e.store.Delete(code); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		return nil
	}

	e.flush(sink, g)
	return nil
}
