package poker

// ActionKind is the closed set of betting decisions a player can make.
type ActionKind string

const (
	Fold  ActionKind = "fold"
	Check ActionKind = "check"
	Call  ActionKind = "call"
	BetTo ActionKind = "bet"
	Raise ActionKind = "raise"
	AllIn ActionKind = "all-in"
)

// Action is a tagged betting decision. Amount is only meaningful for bet and
// raise; the other kinds derive their amount from the table state.
type Action struct {
	Kind   ActionKind `json:"kind"`
	Amount int64      `json:"amount,omitempty"`
}

// MaxRoundBet returns the highest per-player contribution in the current
// betting round.
func (g *Game) MaxRoundBet() int64 {
	var max int64
	for _, b := range g.PlayerBets {
		if b > max {
			max = b
		}
	}
	return max
}

// CalculateCurrentBet returns how much the given seat owes to stay in:
// the round's highest contribution minus what the seat already put in.
func CalculateCurrentBet(playerBets []int64, actorIndex int) int64 {
	var max int64
	for _, b := range playerBets {
		if b > max {
			max = b
		}
	}
	if actorIndex < 0 || actorIndex >= len(playerBets) {
		return max
	}
	return max - playerBets[actorIndex]
}

// OwedBy returns how much the given seat owes in the current round.
func (g *Game) OwedBy(idx int) int64 {
	return CalculateCurrentBet(g.PlayerBets, idx)
}

// RoundComplete reports whether the current betting round is finished: every
// non-folded player has either matched the highest contribution or is all-in,
// and every player still able to act has acted since the last raise.
func (g *Game) RoundComplete() bool {
	max := g.MaxRoundBet()
	for i, p := range g.Players {
		if p.Folded {
			continue
		}
		if p.IsAllIn {
			continue
		}
		if g.PlayerBets[i] != max {
			return false
		}
		if !g.ActedSinceRaise[i] {
			return false
		}
	}
	return true
}

// ApplyContribution moves chips from the seat into the pot ledger, capping at
// the player's stack and marking all-in when the cap is hit. It returns the
// amount actually contributed.
func (g *Game) ApplyContribution(idx int, amount int64) int64 {
	p := g.Players[idx]
	if amount >= p.ChipCount {
		amount = p.ChipCount
		p.IsAllIn = true
	}
	p.ChipCount -= amount
	g.PlayerBets[idx] += amount
	g.Pots = append(g.Pots, Bet{PlayerID: p.ID, Amount: amount})
	return amount
}
