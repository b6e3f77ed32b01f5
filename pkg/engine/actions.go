package engine

import (
	"context"

	"github.com/ezivnuska/pokertable/pkg/poker"
)

// Act applies a betting decision for the given player. The action is
// validated against the live record inside the exclusive-access transaction,
// so stale clients lose cleanly: out-of-turn and malformed actions come back
// as RuleErrors without touching the record.
func (e *Engine) Act(ctx context.Context, code, playerID string, action poker.Action) (*poker.Game, error) {
	sink := &eventSink{}
	g, err := e.withExclusiveAccess(ctx, code, func(g *poker.Game) error {
		idx := g.SeatOf(playerID)
		if idx < 0 {
			return ruleErrorf("player not at table")
		}
		return e.applyAction(g, idx, action, sink)
	})
	if err != nil {
		return nil, err
	}

	e.flush(sink, g)
	return g, nil
}

// PlaceBet wagers amount on top of the player's current round contribution.
func (e *Engine) PlaceBet(ctx context.Context, code, playerID string, amount int64) (*poker.Game, error) {
	return e.Act(ctx, code, playerID, poker.Action{Kind: poker.BetTo, Amount: amount})
}

// Fold withdraws the player from the hand.
func (e *Engine) Fold(ctx context.Context, code, playerID string) (*poker.Game, error) {
	return e.Act(ctx, code, playerID, poker.Action{Kind: poker.Fold})
}

// Check passes the action without betting. Only legal when nothing is owed.
func (e *Engine) Check(ctx context.Context, code, playerID string) (*poker.Game, error) {
	return e.Act(ctx, code, playerID, poker.Action{Kind: poker.Check})
}

// Call matches the current highest contribution.
func (e *Engine) Call(ctx context.Context, code, playerID string) (*poker.Game, error) {
	return e.Act(ctx, code, playerID, poker.Action{Kind: poker.Call})
}

// applyAction is the single mutation path for all betting decisions: player
// actions, timer defaults and automated players all funnel through here inside
// an exclusive transaction.
func (e *Engine) applyAction(g *poker.Game, idx int, action poker.Action, sink *eventSink) error {
	if !g.Locked || g.Stage == poker.StageEnd {
		return ruleErrorf("no hand in progress")
	}
	if idx != g.CurrentPlayerIndex {
		return ruleErrorf("not %s's turn", g.Players[idx].Username)
	}
	p := g.Players[idx]
	if !p.Eligible() {
		return ruleErrorf("player %s cannot act", p.Username)
	}

	// Acting supersedes the countdown. Clearing it here, inside the same
	// transaction, is what makes a raced timer expiry a no-op.
	e.clearTimer(g, sink)

	owed := g.OwedBy(idx)

	switch action.Kind {
	case poker.Fold:
		return e.applyFold(g, idx, sink)

	case poker.Check:
		if owed != 0 {
			return ruleErrorf("cannot check: %d owed", owed)
		}
		g.ActedSinceRaise[idx] = true
		g.AppendHistory(poker.ActionHistoryEntry{Action: poker.ActionBet, PlayerID: p.ID})
		sink.add(EventBetPlaced, BetEventPayload{PlayerID: p.ID, Kind: string(poker.Check), Pot: g.PotTotal()})

	case poker.Call:
		if owed == 0 {
			return ruleErrorf("nothing to call")
		}
		paid := g.ApplyContribution(idx, owed)
		g.ActedSinceRaise[idx] = true
		g.AppendHistory(poker.ActionHistoryEntry{Action: poker.ActionBet, PlayerID: p.ID, Amount: paid})
		sink.add(EventBetPlaced, BetEventPayload{PlayerID: p.ID, Kind: string(poker.Call), Amount: paid, Pot: g.PotTotal(), AllIn: p.IsAllIn})

	case poker.BetTo, poker.Raise:
		if action.Amount <= 0 {
			return ruleErrorf("bet must be positive")
		}
		if action.Amount <= owed && action.Amount < p.ChipCount {
			return ruleErrorf("bet of %d does not exceed %d owed", action.Amount, owed)
		}
		paid := g.ApplyContribution(idx, action.Amount)
		// A contribution above the call amount is a raise: everyone else
		// must act again.
		if paid > owed {
			for i := range g.ActedSinceRaise {
				g.ActedSinceRaise[i] = false
			}
		}
		g.ActedSinceRaise[idx] = true
		g.AppendHistory(poker.ActionHistoryEntry{Action: poker.ActionBet, PlayerID: p.ID, Amount: paid})
		sink.add(EventBetPlaced, BetEventPayload{PlayerID: p.ID, Kind: string(action.Kind), Amount: paid, Pot: g.PotTotal(), AllIn: p.IsAllIn})

	case poker.AllIn:
		paid := g.ApplyContribution(idx, p.ChipCount)
		if paid > owed {
			for i := range g.ActedSinceRaise {
				g.ActedSinceRaise[i] = false
			}
		}
		g.ActedSinceRaise[idx] = true
		g.AppendHistory(poker.ActionHistoryEntry{Action: poker.ActionBet, PlayerID: p.ID, Amount: paid})
		sink.add(EventBetPlaced, BetEventPayload{PlayerID: p.ID, Kind: string(poker.AllIn), Amount: paid, Pot: g.PotTotal(), AllIn: true})

	default:
		return ruleErrorf("unknown action %q", action.Kind)
	}

	e.afterAction(g, idx, sink)
	return nil
}

// applyFold removes the player from the hand. If only one player remains, the
// hand ends immediately in their favor.
func (e *Engine) applyFold(g *poker.Game, idx int, sink *eventSink) error {
	p := g.Players[idx]
	if p.Folded {
		return ruleErrorf("player %s already folded", p.Username)
	}
	p.Folded = true
	g.ActedSinceRaise[idx] = true

	g.AppendHistory(poker.ActionHistoryEntry{Action: poker.ActionFoldEntry, PlayerID: p.ID})
	sink.add(EventPlayerFolded, PlayerEventPayload{PlayerID: p.ID})

	if g.NonFoldedCount() == 1 {
		for i, q := range g.Players {
			if !q.Folded {
				e.finishHand(g, poker.SettleFoldWin(g, i), sink)
				return nil
			}
		}
	}

	// A fold out of turn (a player leaving mid-hand) must not move the turn
	// pointer away from the actual actor.
	if idx == g.CurrentPlayerIndex {
		e.afterAction(g, idx, sink)
	} else if g.RoundComplete() {
		e.advanceStage(g, sink)
	}
	return nil
}

// afterAction advances the hand after a successful action: either the round
// is complete and the next street (or showdown) begins, or the turn passes to
// the next eligible player.
func (e *Engine) afterAction(g *poker.Game, idx int, sink *eventSink) {
	if g.Stage == poker.StageEnd {
		return
	}
	if g.RoundComplete() {
		e.advanceStage(g, sink)
		return
	}
	if next, ok := g.NextEligible(idx); ok {
		g.CurrentPlayerIndex = next
		e.startTimer(g, sink)
	}
}

// advanceStage deals the next street and opens its betting round. When every
// remaining player is all-in the round is trivially complete, so the loop runs
// the board out to showdown in one transaction.
func (e *Engine) advanceStage(g *poker.Game, sink *eventSink) {
	for g.Stage != poker.StageEnd && g.RoundComplete() {
		from := g.Stage

		var deal int
		switch g.Stage {
		case poker.StagePreflop:
			deal = 3
		case poker.StageFlop, poker.StageTurn:
			deal = 1
		case poker.StageRiver:
			e.showdown(g, sink)
			return
		}

		dealt := make([]poker.Card, 0, deal)
		for i := 0; i < deal; i++ {
			card, err := g.Deal()
			if err != nil {
				// An exhausted deck means a corrupt record; settle with
				// what is on the board rather than wedge the hand.
				e.log.Errorf("game %s: deck exhausted at %s", g.Code, g.Stage)
				e.showdown(g, sink)
				return
			}
			g.CommunityCards = append(g.CommunityCards, card)
			dealt = append(dealt, card)
		}

		g.Stage++
		g.ResetRound()
		to := g.Stage
		g.AppendHistory(poker.ActionHistoryEntry{Action: poker.ActionStageAdvanced, FromStage: &from, ToStage: &to})
		sink.add(EventRoundComplete, RoundCompletePayload{FromStage: from.String(), ToStage: to.String()})
		sink.add(EventCardsDealt, CardsDealtPayload{Stage: to.String(), Cards: dealt})

		// Post-flop action starts left of the button.
		next, ok := g.NextEligible(g.DealerButton)
		if !ok {
			// Everyone all-in or folded; keep running out the board.
			continue
		}
		g.CurrentPlayerIndex = next
	}

	if g.Stage != poker.StageEnd {
		e.startTimer(g, sink)
	}
}

// showdown settles all pots against the board and ends the hand.
func (e *Engine) showdown(g *poker.Game, sink *eventSink) {
	e.finishHand(g, poker.SettlePots(g), sink)
}

// finishHand records the result and moves the record to its terminal stage.
// The table stays locked until the next hand begins so late joins cannot race
// the payout.
func (e *Engine) finishHand(g *poker.Game, result *poker.WinnerResult, sink *eventSink) {
	pot := g.PotTotal()
	g.Winner = result
	g.Stage = poker.StageEnd
	g.ActionTimer = nil

	g.AppendHistory(poker.ActionHistoryEntry{Action: poker.ActionGameEnded, WinnerID: result.WinnerID})
	sink.add(EventGameEnded, GameEndedPayload{Winner: result, Pot: pot})
	e.log.Infof("game %s: hand won by %s (pot %d)", g.Code, result.WinnerName, pot)
}
