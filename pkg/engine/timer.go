package engine

import (
	"context"
	"time"

	"github.com/ezivnuska/pokertable/pkg/poker"
)

// startTimer arms the persisted countdown for the current actor. The record's
// timestamps are the only truth: no in-process callback is scheduled, and any
// engine instance can later observe the expiry.
func (e *Engine) startTimer(g *poker.Game, sink *eventSink) {
	p := g.CurrentPlayer()
	if p == nil || e.cfg.TurnDuration <= 0 {
		return
	}
	g.ActionTimer = &poker.ActionTimer{
		StartTime:      e.now().UTC(),
		Duration:       e.cfg.TurnDuration,
		ActionType:     "turn",
		TargetPlayerID: p.ID,
	}
	sink.add(EventTimerStarted, TimerEventPayload{
		TargetPlayerID: p.ID,
		DurationMs:     e.cfg.TurnDuration.Milliseconds(),
	})
}

// clearTimer discards the countdown. Called inside the same transaction as
// the action that supersedes it.
func (e *Engine) clearTimer(g *poker.Game, sink *eventSink) {
	if g.ActionTimer == nil {
		return
	}
	target := g.ActionTimer.TargetPlayerID
	g.ActionTimer = nil
	sink.add(EventTimerCleared, TimerEventPayload{TargetPlayerID: target})
}

// ResolveExpiredTimer applies the timed-out player's default action: their
// pre-selected action if one is queued, otherwise check when free and call
// when chips are owed. An unexpired, paused or absent timer is left alone.
// Because the check and the resolution happen in one transaction, a timer is
// resolved at most once no matter how many sweepers observe the expiry.
func (e *Engine) ResolveExpiredTimer(ctx context.Context, code string) (*poker.Game, error) {
	sink := &eventSink{}
	g, err := e.withExclusiveAccess(ctx, code, func(g *poker.Game) error {
		t := g.ActionTimer
		if t == nil || !t.Expired(e.now(), e.cfg.TimerTolerance) {
			return errNoEffect
		}

		idx := g.SeatOf(t.TargetPlayerID)
		if idx < 0 || idx != g.CurrentPlayerIndex {
			// The record moved on; the stale timer is just discarded.
			e.clearTimer(g, sink)
			return nil
		}

		action := poker.Action{Kind: poker.Check}
		if t.PreSelectedAction != nil {
			action = *t.PreSelectedAction
		} else if g.OwedBy(idx) > 0 {
			action = poker.Action{Kind: poker.Call}
		}

		e.log.Debugf("game %s: timer expired for %s, applying %s", code, t.TargetPlayerID, action.Kind)
		if err := e.applyAction(g, idx, action, sink); err != nil {
			// A bad pre-selection must not wedge the table; fall back to
			// the safe default.
			if !IsRuleError(err) {
				return err
			}
			fallback := poker.Action{Kind: poker.Check}
			if g.OwedBy(idx) > 0 {
				fallback = poker.Action{Kind: poker.Call}
			}
			return e.applyAction(g, idx, fallback, sink)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.flush(sink, g)
	return g, nil
}

// PauseTimer freezes the countdown, recording the pause instant so the
// remaining time survives the pause.
func (e *Engine) PauseTimer(ctx context.Context, code string) (*poker.Game, error) {
	sink := &eventSink{}
	g, err := e.withExclusiveAccess(ctx, code, func(g *poker.Game) error {
		t := g.ActionTimer
		if t == nil || t.IsPaused {
			return errNoEffect
		}
		now := e.now().UTC()
		t.IsPaused = true
		t.PausedAt = &now
		sink.add(EventTimerPaused, TimerEventPayload{TargetPlayerID: t.TargetPlayerID})
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.flush(sink, g)
	return g, nil
}

// ResumeTimer unfreezes the countdown by shifting its start time forward by
// the paused duration, so the player keeps the time they had left.
func (e *Engine) ResumeTimer(ctx context.Context, code string) (*poker.Game, error) {
	sink := &eventSink{}
	g, err := e.withExclusiveAccess(ctx, code, func(g *poker.Game) error {
		t := g.ActionTimer
		if t == nil || !t.IsPaused || t.PausedAt == nil {
			return errNoEffect
		}
		t.StartTime = t.StartTime.Add(e.now().Sub(*t.PausedAt))
		t.IsPaused = false
		t.PausedAt = nil
		sink.add(EventTimerResumed, TimerEventPayload{TargetPlayerID: t.TargetPlayerID})
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.flush(sink, g)
	return g, nil
}

// SetPreSelectedAction queues the action to auto-apply when the player's
// timer expires. Passing a nil action clears the queue. Only the timer's
// target may queue an action.
func (e *Engine) SetPreSelectedAction(ctx context.Context, code, playerID string, action *poker.Action) (*poker.Game, error) {
	return e.withExclusiveAccess(ctx, code, func(g *poker.Game) error {
		t := g.ActionTimer
		if t == nil {
			return ruleErrorf("no action timer running")
		}
		if t.TargetPlayerID != playerID {
			return ruleErrorf("timer is not for player %s", playerID)
		}
		t.PreSelectedAction = action
		return nil
	})
}

// TimeRemaining reports how long the current actor has left, for display.
// Zero means no timer is running.
func (e *Engine) TimeRemaining(g *poker.Game) time.Duration {
	t := g.ActionTimer
	if t == nil {
		return 0
	}
	rem := t.Duration - t.Elapsed(e.now())
	if rem < 0 {
		return 0
	}
	return rem
}
