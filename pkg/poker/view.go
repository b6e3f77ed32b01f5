package poker

// PublicView returns a broadcast-safe copy of the record: the undealt deck is
// hidden, and hole cards are hidden unless the hand is over and the player is
// still in it.
func (g *Game) PublicView() *Game {
	view := *g
	view.Deck = nil

	view.Players = make([]*Player, len(g.Players))
	for i, p := range g.Players {
		cp := *p
		if !(g.Stage == StageEnd && !p.Folded) {
			cp.Hand = nil
		}
		view.Players[i] = &cp
	}
	return &view
}
