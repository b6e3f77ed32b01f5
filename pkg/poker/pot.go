package poker

import "sort"

// Pot is one settled pot: the main pot or a side pot created by an all-in.
// Eligibility is a seat-aligned mask of players who can win it.
type Pot struct {
	Amount      int64
	Eligibility []bool
}

// BuildPots decomposes the hand's total contributions into a main pot and
// side pots. Pot boundaries are the distinct all-in contribution totals: each
// threshold caps one pot, and everything above the highest all-in forms a
// final uncapped pot. A player is eligible for a pot only if they are not
// folded and contributed at least its level.
func BuildPots(totals []int64, players []*Player) []Pot {
	n := len(players)

	var maxTotal int64
	seen := map[int64]bool{}
	for i := 0; i < n; i++ {
		if totals[i] > maxTotal {
			maxTotal = totals[i]
		}
		if players[i] != nil && players[i].IsAllIn && totals[i] > 0 {
			seen[totals[i]] = true
		}
	}
	if maxTotal == 0 {
		return []Pot{{Eligibility: make([]bool, n)}}
	}
	seen[maxTotal] = true

	levels := make([]int64, 0, len(seen))
	for b := range seen {
		levels = append(levels, b)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	pots := make([]Pot, 0, len(levels))
	prev := int64(0)
	for _, lvl := range levels {
		p := Pot{Eligibility: make([]bool, n)}
		for i := 0; i < n; i++ {
			if players[i] != nil && !players[i].Folded && totals[i] >= lvl {
				p.Eligibility[i] = true
			}
		}
		// Each contributor pays min(totals[i], lvl) - prev into this pot.
		for i := 0; i < n; i++ {
			tb := totals[i]
			if tb > prev {
				c := tb
				if c > lvl {
					c = lvl
				}
				c -= prev
				if c > 0 {
					p.Amount += c
				}
			}
		}
		pots = append(pots, p)
		prev = lvl
	}

	return pots
}

// SettlePots evaluates each pot against only its eligible players' best hands
// and pays the winners. Uncontested pots (one live eligible player) are paid
// without a showdown comparison. The returned result describes the main pot
// outcome plus the full payout map.
func SettlePots(g *Game) *WinnerResult {
	totals := g.TotalsBySeat()
	pots := BuildPots(totals, g.Players)

	result := &WinnerResult{Payouts: make(map[string]int64)}

	for pi, pot := range pots {
		var alive []int
		for idx, elig := range pot.Eligibility {
			if elig && g.Players[idx] != nil && !g.Players[idx].Folded {
				alive = append(alive, idx)
			}
		}
		if len(alive) == 0 {
			continue
		}

		var winners []int
		if len(alive) == 1 {
			winners = alive
			if pi == 0 {
				result.WinnerID = g.Players[alive[0]].ID
				result.WinnerName = g.Players[alive[0]].Username
			}
		} else {
			var best *HandValue
			for _, idx := range alive {
				hv := EvaluateHand(g.Players[idx].Hand, g.CommunityCards)
				switch {
				case best == nil || CompareHands(hv, *best) > 0:
					b := hv
					best = &b
					winners = []int{idx}
				case CompareHands(hv, *best) == 0:
					winners = append(winners, idx)
				}
			}
			if pi == 0 && len(winners) > 0 {
				result.WinnerID = g.Players[winners[0]].ID
				result.WinnerName = g.Players[winners[0]].Username
				if best != nil {
					result.HandRank = best.HandDescription
				}
				if len(winners) > 1 {
					result.IsTie = true
					for _, w := range winners {
						result.TiedPlayers = append(result.TiedPlayers, g.Players[w].ID)
					}
				}
			}
		}

		// Ties split the pot; any remainder goes to the first winner.
		share := pot.Amount / int64(len(winners))
		rem := pot.Amount % int64(len(winners))
		for i, idx := range winners {
			add := share
			if i == 0 {
				add += rem
			}
			g.Players[idx].ChipCount += add
			result.Payouts[g.Players[idx].ID] += add
		}
	}

	return result
}

// SettleFoldWin pays the whole pot to the single remaining player. No hand
// comparison is needed.
func SettleFoldWin(g *Game, winnerIdx int) *WinnerResult {
	winner := g.Players[winnerIdx]
	total := g.PotTotal()
	winner.ChipCount += total
	return &WinnerResult{
		WinnerID:   winner.ID,
		WinnerName: winner.Username,
		Payouts:    map[string]int64{winner.ID: total},
	}
}
