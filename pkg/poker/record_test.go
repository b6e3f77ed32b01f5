package poker

import (
	"testing"
	"time"
)

func TestActionTimerExpiry(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	timer := &ActionTimer{StartTime: start, Duration: 30 * time.Second}

	if timer.Expired(start.Add(10*time.Second), 0) {
		t.Error("timer should not expire after 10s of 30s")
	}
	if !timer.Expired(start.Add(30*time.Second), 0) {
		t.Error("timer should expire at its duration")
	}
	// Tolerance makes the timer fire slightly early.
	if !timer.Expired(start.Add(29800*time.Millisecond), 250*time.Millisecond) {
		t.Error("timer should expire inside the tolerance window")
	}
}

func TestActionTimerPauseFreezesElapsed(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	pausedAt := start.Add(10 * time.Second)
	timer := &ActionTimer{
		StartTime: start,
		Duration:  30 * time.Second,
		IsPaused:  true,
		PausedAt:  &pausedAt,
	}

	// However far the clock moves, a paused timer reports the elapsed time
	// at the pause and never expires.
	later := start.Add(time.Hour)
	if got := timer.Elapsed(later); got != 10*time.Second {
		t.Errorf("elapsed = %v, want 10s", got)
	}
	if timer.Expired(later, 0) {
		t.Error("paused timer must not expire")
	}
}

func TestDealDrawsFromTop(t *testing.T) {
	deck := []Card{
		NewCardFromSuitValue(Spades, Ace),
		NewCardFromSuitValue(Hearts, King),
	}
	g := NewGame("t", deck)

	card, err := g.Deal()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if card.String() != "A♠" {
		t.Errorf("dealt %s, want A♠", card)
	}
	if len(g.Deck) != 1 {
		t.Errorf("deck size = %d, want 1", len(g.Deck))
	}

	if _, err := g.Deal(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := g.Deal(); err == nil {
		t.Error("dealing from an empty deck should error")
	}
}

func TestPublicViewHidesPrivateState(t *testing.T) {
	g := NewGame("t", NewShuffledCards(testRNG()))
	g.Players = append(g.Players,
		&Player{ID: "a", Hand: []Card{NewCardFromSuitValue(Spades, Ace)}},
		&Player{ID: "b", Hand: []Card{NewCardFromSuitValue(Hearts, King)}, Folded: true},
	)

	view := g.PublicView()
	if view.Deck != nil {
		t.Error("view must not carry the deck")
	}
	for _, p := range view.Players {
		if p.Hand != nil {
			t.Errorf("player %s hand visible before showdown", p.ID)
		}
	}

	// At showdown the live hands are revealed, folded ones stay hidden.
	g.Stage = StageEnd
	view = g.PublicView()
	if view.Players[0].Hand == nil {
		t.Error("live hand should be revealed at showdown")
	}
	if view.Players[1].Hand != nil {
		t.Error("folded hand must stay hidden")
	}

	// The view is a copy; mutating it leaves the record alone.
	view.Players[0].ChipCount = 999
	if g.Players[0].ChipCount == 999 {
		t.Error("view mutation leaked into the record")
	}
}
