package engine

import (
	"context"
	"errors"
	"time"

	"github.com/ezivnuska/pokertable/pkg/poker"
	"github.com/ezivnuska/pokertable/pkg/store"
)

// Join seats a player at the table. The record is created on first access.
// Joining a locked table is rejected; re-joining an occupied seat just
// refreshes the heartbeat.
func (e *Engine) Join(ctx context.Context, code, playerID, username string, isAI bool) (*poker.Game, error) {
	if _, err := e.EnsureGame(code); err != nil {
		return nil, err
	}

	sink := &eventSink{}
	g, err := e.withExclusiveAccess(ctx, code, func(g *poker.Game) error {
		if p := g.PlayerByID(playerID); p != nil {
			p.LastHeartbeat = e.now().UTC()
			p.IsAway = false
			return nil
		}
		if g.Locked {
			return ruleErrorf("cannot join: hand in progress")
		}
		if e.cfg.MaxPlayers > 0 && len(g.Players) >= e.cfg.MaxPlayers {
			return ruleErrorf("cannot join: table is full")
		}

		g.Players = append(g.Players, &poker.Player{
			ID:            playerID,
			Username:      username,
			Hand:          []poker.Card{},
			ChipCount:     e.cfg.StartingChips,
			IsAI:          isAI,
			LastHeartbeat: e.now().UTC(),
		})
		g.PlayerBets = append(g.PlayerBets, 0)
		g.ActedSinceRaise = append(g.ActedSinceRaise, false)

		g.AppendHistory(poker.ActionHistoryEntry{Action: poker.ActionJoin, PlayerID: playerID})
		sink.add(EventPlayerJoined, PlayerEventPayload{PlayerID: playerID, Username: username})
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.flush(sink, g)
	return g, nil
}

// Leave removes a player. During a hand the seat is folded and marked away
// instead of removed, so seat indexes stay stable; the seat is dropped when
// the next hand begins. An empty non-singleton table is destroyed.
func (e *Engine) Leave(ctx context.Context, code, playerID string) (*poker.Game, error) {
	sink := &eventSink{}
	g, err := e.withExclusiveAccess(ctx, code, func(g *poker.Game) error {
		idx := g.SeatOf(playerID)
		if idx < 0 {
			return errNoEffect
		}

		if g.Locked && g.Stage != poker.StageEnd {
			p := g.Players[idx]
			p.IsAway = true
			if !p.Folded {
				if err := e.applyFold(g, idx, sink); err != nil {
					return err
				}
			}
			g.AppendHistory(poker.ActionHistoryEntry{Action: poker.ActionLeave, PlayerID: playerID})
			sink.add(EventPlayerLeft, PlayerEventPayload{PlayerID: playerID})
			return nil
		}

		g.Players = append(g.Players[:idx], g.Players[idx+1:]...)
		g.PlayerBets = append(g.PlayerBets[:idx], g.PlayerBets[idx+1:]...)
		g.ActedSinceRaise = append(g.ActedSinceRaise[:idx], g.ActedSinceRaise[idx+1:]...)
		if g.CurrentPlayerIndex >= len(g.Players) {
			g.CurrentPlayerIndex = 0
		}
		if g.DealerButton >= len(g.Players) {
			g.DealerButton = 0
		}

		g.AppendHistory(poker.ActionHistoryEntry{Action: poker.ActionLeave, PlayerID: playerID})
		sink.add(EventPlayerLeft, PlayerEventPayload{PlayerID: playerID})
		return nil
	})
	if err != nil {
		return nil, err
	}

	// A non-singleton table with nobody seated is destroyed.
	if len(g.Players) == 0 && code != e.cfg.SingletonCode {
		if err := e.store.Delete(code); err != nil && !errors.Is(err, store.ErrNotFound) {
			e.log.Errorf("failed to delete empty game %s: %v", code, err)
		}
		return g, nil
	}

	e.flush(sink, g)
	return g, nil
}

// Heartbeat records player liveness. Stale heartbeats make the connection
// monitor fold the player mid-hand.
func (e *Engine) Heartbeat(ctx context.Context, code, playerID string) error {
	_, err := e.withExclusiveAccess(ctx, code, func(g *poker.Game) error {
		p := g.PlayerByID(playerID)
		if p == nil {
			return &RuleError{Reason: "player not at table"}
		}
		p.LastHeartbeat = e.now().UTC()
		p.IsAway = false
		return nil
	})
	return err
}

// ScheduleLock arms a countdown that auto-starts the hand once it elapses
// (resolved by the periodic sweep). A zero time clears the countdown.
func (e *Engine) ScheduleLock(ctx context.Context, code string, at time.Time) (*poker.Game, error) {
	return e.withExclusiveAccess(ctx, code, func(g *poker.Game) error {
		if g.Locked {
			return errNoEffect
		}
		if at.IsZero() {
			g.LockTime = nil
			return nil
		}
		t := at.UTC()
		g.LockTime = &t
		return nil
	})
}

// Lock starts a hand: validates the table, posts blinds, deals hole cards and
// opens the pre-flop betting round. Locking an already-locked table is
// idempotent and succeeds without side effects.
func (e *Engine) Lock(ctx context.Context, code string) (*poker.Game, error) {
	sink := &eventSink{}
	g, err := e.withExclusiveAccess(ctx, code, func(g *poker.Game) error {
		if g.Locked {
			// Desired end-state already holds.
			return errNoEffect
		}
		return e.startHand(g, sink)
	})
	if err != nil {
		return nil, err
	}

	e.flush(sink, g)
	return g, nil
}

// startHand performs the hand setup inside an exclusive transaction.
func (e *Engine) startHand(g *poker.Game, sink *eventSink) error {
	n := len(g.Players)
	if n < 2 {
		return ruleErrorf("need at least 2 players to start a hand")
	}

	// Blind positions. Heads-up: the button posts the small blind and acts
	// first pre-flop.
	var sbPos, bbPos, firstActor int
	if n == 2 {
		sbPos = g.DealerButton
		bbPos = (g.DealerButton + 1) % n
		firstActor = g.DealerButton
	} else {
		sbPos = (g.DealerButton + 1) % n
		bbPos = (g.DealerButton + 2) % n
		firstActor = (g.DealerButton + 3) % n
	}

	if g.Players[sbPos].ChipCount < e.cfg.SmallBlind {
		return ruleErrorf("player %s cannot cover the small blind", g.Players[sbPos].Username)
	}
	if g.Players[bbPos].ChipCount < e.cfg.BigBlind {
		return ruleErrorf("player %s cannot cover the big blind", g.Players[bbPos].Username)
	}

	g.Locked = true
	g.LockTime = nil
	g.Stage = poker.StagePreflop
	g.Winner = nil
	g.CommunityCards = []poker.Card{}
	g.Pots = []poker.Bet{}
	g.ResetRound()
	for _, p := range g.Players {
		p.Hand = []poker.Card{}
		p.Folded = false
		p.IsAllIn = false
	}

	g.AppendHistory(poker.ActionHistoryEntry{Action: poker.ActionGameStarted})

	// Post blinds. Short stacks go all-in for what they have, matching the
	// contribution cap used for ordinary bets.
	g.ApplyContribution(sbPos, e.cfg.SmallBlind)
	g.ApplyContribution(bbPos, e.cfg.BigBlind)

	// Two hole cards each, dealt one at a time around the table.
	for round := 0; round < 2; round++ {
		for _, p := range g.Players {
			card, err := g.Deal()
			if err != nil {
				return err
			}
			p.Hand = append(p.Hand, card)
		}
	}
	g.AppendHistory(poker.ActionHistoryEntry{Action: poker.ActionCardsDealt})

	g.CurrentPlayerIndex = firstActor
	if !g.Players[firstActor].Eligible() {
		if next, ok := g.NextEligible(firstActor); ok {
			g.CurrentPlayerIndex = next
		}
	}

	sink.add(EventGameLocked, PlayerEventPayload{PlayerID: g.Players[g.DealerButton].ID})
	sink.add(EventCardsDealt, CardsDealtPayload{Stage: g.Stage.String()})

	// Posting the blinds can put every stack in the middle; there is then
	// nobody left to act and the board runs straight out to showdown.
	if g.RoundComplete() {
		e.advanceStage(g, sink)
		return nil
	}
	e.startTimer(g, sink)
	return nil
}

// Reset restores a table to its initial waiting state: no players, a fresh
// shuffled deck and an empty action history. The singleton table is reset in
// place, never deleted.
func (e *Engine) Reset(ctx context.Context, code string) (*poker.Game, error) {
	deck := e.shuffledDeck()
	sink := &eventSink{}
	g, err := e.withExclusiveAccess(ctx, code, func(g *poker.Game) error {
		fresh := poker.NewGame(code, deck)
		// The overwrite must not touch the concurrency columns: the save
		// still has to match the version the record was loaded at.
		fresh.Version = g.Version
		fresh.Processing = g.Processing
		*g = *fresh
		sink.add(EventGameReset, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.flush(sink, g)
	return g, nil
}

// beginNextHand clears per-hand state after a finished hand: away and busted
// seats are dropped, the button advances and the table unlocks for new joins.
// The accumulated action history is kept.
func (e *Engine) beginNextHand(g *poker.Game, sink *eventSink) {
	kept := make([]*poker.Player, 0, len(g.Players))
	for _, p := range g.Players {
		if p.IsAway || p.ChipCount == 0 {
			continue
		}
		p.Hand = []poker.Card{}
		p.Folded = false
		p.IsAllIn = false
		kept = append(kept, p)
	}
	g.Players = kept

	g.Deck = e.shuffledDeck()
	g.CommunityCards = []poker.Card{}
	g.Pots = []poker.Bet{}
	g.PlayerBets = make([]int64, len(g.Players))
	g.ActedSinceRaise = make([]bool, len(g.Players))
	g.Winner = nil
	g.ActionTimer = nil
	g.Stage = poker.StagePreflop
	g.Locked = false
	g.CurrentPlayerIndex = 0
	if len(g.Players) > 0 {
		g.DealerButton = (g.DealerButton + 1) % len(g.Players)
	} else {
		g.DealerButton = 0
	}

	sink.add(EventGameReset, nil)
}
