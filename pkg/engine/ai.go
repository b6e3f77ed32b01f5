package engine

import (
	"context"
	"time"

	"github.com/ezivnuska/pokertable/pkg/poker"
)

// PolicyInput is the information a decision policy sees: exactly what a human
// player at the table would know, plus an aggression dial.
type PolicyInput struct {
	Hand           []poker.Card
	CommunityCards []poker.Card
	Stage          poker.Stage
	Owed           int64
	PotSize        int64
	ChipCount      int64
	BigBlind       int64
	Aggression     float64 // 0..1
}

// DecisionPolicy chooses an action for an automated player.
type DecisionPolicy func(in PolicyInput) poker.Action

// DefaultPolicy is a simple strength-based heuristic: rank the hole cards
// against the board, check or make small bets with strength, call cheap
// prices, and fold to pressure with nothing.
func DefaultPolicy(in PolicyInput) poker.Action {
	strength := handStrength(in)

	if in.Owed == 0 {
		if strength >= 0.6 && in.ChipCount > 0 {
			bet := in.BigBlind * 2
			if bet > in.ChipCount {
				bet = in.ChipCount
			}
			return poker.Action{Kind: poker.BetTo, Amount: bet}
		}
		return poker.Action{Kind: poker.Check}
	}

	// Price of continuing relative to the pot.
	price := float64(in.Owed) / float64(in.PotSize+in.Owed)
	if strength >= 0.8 && in.Owed < in.ChipCount {
		raise := in.Owed + in.BigBlind*2
		if raise > in.ChipCount {
			raise = in.ChipCount
		}
		return poker.Action{Kind: poker.Raise, Amount: raise}
	}
	if strength+in.Aggression*0.2 >= price {
		return poker.Action{Kind: poker.Call}
	}
	return poker.Action{Kind: poker.Fold}
}

// handStrength maps the current holding to [0,1]. Pre-flop it scores the hole
// cards; post-flop it scores the evaluated hand class.
func handStrength(in PolicyInput) float64 {
	if len(in.Hand) < 2 {
		return 0
	}

	if len(in.CommunityCards) == 0 {
		a, b := in.Hand[0], in.Hand[1]
		av, bv := cardStrength(a.GetValue()), cardStrength(b.GetValue())
		s := float64(av+bv) / 28.0
		if a.GetValue() == b.GetValue() {
			s += 0.3
		}
		if a.GetSuit() == b.GetSuit() {
			s += 0.05
		}
		if s > 1 {
			s = 1
		}
		return s
	}

	hv := poker.EvaluateHand(in.Hand, in.CommunityCards)
	// Rank classes run from high card (weak) to straight flush (strong).
	return float64(hv.Rank) / 8.0
}

func cardStrength(v string) int {
	switch v {
	case "A":
		return 14
	case "K":
		return 13
	case "Q":
		return 12
	case "J":
		return 11
	case "10":
		return 10
	case "9":
		return 9
	case "8":
		return 8
	case "7":
		return 7
	case "6":
		return 6
	case "5":
		return 5
	case "4":
		return 4
	case "3":
		return 3
	case "2":
		return 2
	default:
		return 0
	}
}

// MaybeActAI acts for the current player if it is an automated seat. It peeks
// at the record without exclusive access, sleeps the configured think delay
// outside any critical section, then revalidates everything inside the
// transaction before acting. Returns true if an action was applied.
func (e *Engine) MaybeActAI(ctx context.Context, code string) (bool, error) {
	g, err := e.GetGame(code)
	if err != nil {
		return false, err
	}
	if !g.Locked || g.Stage == poker.StageEnd {
		return false, nil
	}
	p := g.CurrentPlayer()
	if p == nil || !p.IsAI || !p.Eligible() {
		return false, nil
	}
	aiID := p.ID

	if e.cfg.ThinkDelay > 0 {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(e.cfg.ThinkDelay):
		}
	}

	acted := false
	sink := &eventSink{}
	g, err = e.withExclusiveAccess(ctx, code, func(g *poker.Game) error {
		// The table may have moved on during the think delay.
		if !g.Locked || g.Stage == poker.StageEnd {
			return errNoEffect
		}
		idx := g.CurrentPlayerIndex
		p := g.CurrentPlayer()
		if p == nil || p.ID != aiID || !p.IsAI || !p.Eligible() {
			return errNoEffect
		}

		action := e.policy(PolicyInput{
			Hand:           p.Hand,
			CommunityCards: g.CommunityCards,
			Stage:          g.Stage,
			Owed:           g.OwedBy(idx),
			PotSize:        g.PotTotal(),
			ChipCount:      p.ChipCount,
			BigBlind:       e.cfg.BigBlind,
			Aggression:     0.5,
		})

		e.log.Debugf("game %s: ai %s plays %s %d", code, p.Username, action.Kind, action.Amount)
		if err := e.applyAction(g, idx, action, sink); err != nil {
			if !IsRuleError(err) {
				return err
			}
			// Policies can propose illegal actions; retreat to the default.
			fallback := poker.Action{Kind: poker.Check}
			if g.OwedBy(idx) > 0 {
				fallback = poker.Action{Kind: poker.Call}
			}
			if err := e.applyAction(g, idx, fallback, sink); err != nil {
				return err
			}
		}
		acted = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if acted {
		e.flush(sink, g)
	}
	return acted, nil
}
