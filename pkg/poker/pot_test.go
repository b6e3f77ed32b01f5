package poker

import "testing"

func card(suit Suit, value Value) Card {
	return NewCardFromSuitValue(suit, value)
}

func TestBuildPotsSingleLevel(t *testing.T) {
	g := testGame(100, 100, 100)
	pots := BuildPots([]int64{20, 20, 20}, g.Players)

	if len(pots) != 1 {
		t.Fatalf("got %d pots, want 1", len(pots))
	}
	if pots[0].Amount != 60 {
		t.Errorf("pot amount = %d, want 60", pots[0].Amount)
	}
	for i, elig := range pots[0].Eligibility {
		if !elig {
			t.Errorf("seat %d should be eligible", i)
		}
	}
}

func TestBuildPotsSidePot(t *testing.T) {
	g := testGame(0, 100, 100)
	g.Players[0].IsAllIn = true

	// Seat 0 is all-in for 10; seats 1 and 2 continued to 50.
	pots := BuildPots([]int64{10, 50, 50}, g.Players)

	if len(pots) != 2 {
		t.Fatalf("got %d pots, want 2", len(pots))
	}

	// Main pot: 10 from everyone.
	if pots[0].Amount != 30 {
		t.Errorf("main pot = %d, want 30", pots[0].Amount)
	}
	for i := 0; i < 3; i++ {
		if !pots[0].Eligibility[i] {
			t.Errorf("seat %d should be eligible for the main pot", i)
		}
	}

	// Side pot: the 40 on top from seats 1 and 2.
	if pots[1].Amount != 80 {
		t.Errorf("side pot = %d, want 80", pots[1].Amount)
	}
	if pots[1].Eligibility[0] {
		t.Error("short all-in seat must not be eligible for the side pot")
	}
	if !pots[1].Eligibility[1] || !pots[1].Eligibility[2] {
		t.Error("full contributors should be eligible for the side pot")
	}
}

func TestBuildPotsFoldedChipsStayInPot(t *testing.T) {
	g := testGame(100, 100, 100)
	g.Players[2].Folded = true

	pots := BuildPots([]int64{20, 20, 20}, g.Players)

	if len(pots) != 1 {
		t.Fatalf("got %d pots, want 1", len(pots))
	}
	// The folded player's chips stay in, but they cannot win them.
	if pots[0].Amount != 60 {
		t.Errorf("pot amount = %d, want 60", pots[0].Amount)
	}
	if pots[0].Eligibility[2] {
		t.Error("folded player must not be eligible")
	}
}

func TestBuildPotsNoAllInMakesSinglePot(t *testing.T) {
	g := testGame(100, 100, 100)
	g.Players[2].Folded = true

	// Uneven totals without an all-in (a seat folded short) must not open
	// side pots; only all-in thresholds cap a pot.
	pots := BuildPots([]int64{20, 20, 10}, g.Players)

	if len(pots) != 1 {
		t.Fatalf("got %d pots, want 1", len(pots))
	}
	if pots[0].Amount != 50 {
		t.Errorf("pot amount = %d, want 50", pots[0].Amount)
	}
	if !pots[0].Eligibility[0] || !pots[0].Eligibility[1] {
		t.Error("live full contributors should be eligible")
	}
	if pots[0].Eligibility[2] {
		t.Error("folded seat must not be eligible")
	}
}

func TestSettlePotsShowdown(t *testing.T) {
	g := testGame(0, 0)
	g.CommunityCards = []Card{
		card(Clubs, Two), card(Diamonds, Seven), card(Hearts, Nine),
		card(Diamonds, Jack), card(Spades, Three),
	}
	g.Players[0].Hand = []Card{card(Spades, Ace), card(Hearts, Ace)}
	g.Players[1].Hand = []Card{card(Spades, King), card(Hearts, Queen)}
	g.Pots = []Bet{
		{PlayerID: g.Players[0].ID, Amount: 50},
		{PlayerID: g.Players[1].ID, Amount: 50},
	}

	result := SettlePots(g)

	if result.WinnerID != g.Players[0].ID {
		t.Fatalf("winner = %s, want %s", result.WinnerID, g.Players[0].ID)
	}
	if result.IsTie {
		t.Error("pair of aces over king high should not tie")
	}
	if g.Players[0].ChipCount != 100 {
		t.Errorf("winner chips = %d, want 100", g.Players[0].ChipCount)
	}
	if g.Players[1].ChipCount != 0 {
		t.Errorf("loser chips = %d, want 0", g.Players[1].ChipCount)
	}
	if result.Payouts[g.Players[0].ID] != 100 {
		t.Errorf("payout = %d, want 100", result.Payouts[g.Players[0].ID])
	}
}

func TestSettlePotsTieSplits(t *testing.T) {
	g := testGame(0, 0, 0)
	// The board plays for both live hands: broadway straight on the board.
	g.CommunityCards = []Card{
		card(Spades, Ace), card(Hearts, King), card(Diamonds, Queen),
		card(Clubs, Jack), card(Spades, Ten),
	}
	g.Players[0].Hand = []Card{card(Hearts, Two), card(Diamonds, Three)}
	g.Players[1].Hand = []Card{card(Clubs, Four), card(Diamonds, Five)}
	g.Players[2].Folded = true
	// The folded seat's chips make the pot odd.
	g.Pots = []Bet{
		{PlayerID: g.Players[0].ID, Amount: 33},
		{PlayerID: g.Players[1].ID, Amount: 33},
		{PlayerID: g.Players[2].ID, Amount: 33},
	}

	result := SettlePots(g)

	if !result.IsTie {
		t.Fatal("board-plays hand should tie")
	}
	if len(result.TiedPlayers) != 2 {
		t.Errorf("tied players = %d, want 2", len(result.TiedPlayers))
	}
	// 99 split two ways: the odd chip goes to the first winner.
	if g.Players[0].ChipCount != 50 || g.Players[1].ChipCount != 49 {
		t.Errorf("split = %d/%d, want 50/49", g.Players[0].ChipCount, g.Players[1].ChipCount)
	}
	if g.Players[2].ChipCount != 0 {
		t.Errorf("folded seat got %d, want 0", g.Players[2].ChipCount)
	}
}

func TestSettlePotsShortAllInWinsOnlyMainPot(t *testing.T) {
	g := testGame(0, 0, 0)
	g.CommunityCards = []Card{
		card(Clubs, Two), card(Diamonds, Seven), card(Hearts, Nine),
		card(Diamonds, Jack), card(Spades, Three),
	}
	// Seat 0: short all-in with the best hand.
	g.Players[0].Hand = []Card{card(Spades, Ace), card(Hearts, Ace)}
	g.Players[0].IsAllIn = true
	// Seat 1 beats seat 2 for the side pot.
	g.Players[1].Hand = []Card{card(Spades, King), card(Hearts, King)}
	g.Players[2].Hand = []Card{card(Spades, Queen), card(Hearts, Four)}
	g.Pots = []Bet{
		{PlayerID: g.Players[0].ID, Amount: 10},
		{PlayerID: g.Players[1].ID, Amount: 50},
		{PlayerID: g.Players[2].ID, Amount: 50},
	}

	result := SettlePots(g)

	// Main pot (30) to the aces, side pot (80) to the kings.
	if g.Players[0].ChipCount != 30 {
		t.Errorf("short stack won %d, want 30", g.Players[0].ChipCount)
	}
	if g.Players[1].ChipCount != 80 {
		t.Errorf("side pot winner got %d, want 80", g.Players[1].ChipCount)
	}
	if g.Players[2].ChipCount != 0 {
		t.Errorf("loser got %d, want 0", g.Players[2].ChipCount)
	}
	if result.WinnerID != g.Players[0].ID {
		t.Errorf("main pot winner = %s, want %s", result.WinnerID, g.Players[0].ID)
	}
}

func TestSettleFoldWin(t *testing.T) {
	g := testGame(90, 0)
	g.Players[1].Folded = true
	g.Pots = []Bet{
		{PlayerID: g.Players[0].ID, Amount: 10},
		{PlayerID: g.Players[1].ID, Amount: 10},
	}

	result := SettleFoldWin(g, 0)

	if g.Players[0].ChipCount != 110 {
		t.Errorf("winner chips = %d, want 110", g.Players[0].ChipCount)
	}
	if result.WinnerID != g.Players[0].ID {
		t.Errorf("winner = %s, want %s", result.WinnerID, g.Players[0].ID)
	}
	if result.Payouts[g.Players[0].ID] != 20 {
		t.Errorf("payout = %d, want 20", result.Payouts[g.Players[0].ID])
	}
}
