package poker

import (
	"fmt"
	"time"
)

// Stage represents the betting phase of a hand.
type Stage int

const (
	StagePreflop Stage = iota
	StageFlop
	StageTurn
	StageRiver
	StageEnd
)

// String returns a string representation of the stage
func (s Stage) String() string {
	switch s {
	case StagePreflop:
		return "preflop"
	case StageFlop:
		return "flop"
	case StageTurn:
		return "turn"
	case StageRiver:
		return "river"
	case StageEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Player represents a seat at the table. Seat order is join order and defines
// turn order for the whole hand.
type Player struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Hand          []Card    `json:"hand"`
	ChipCount     int64     `json:"chipCount"`
	IsAI          bool      `json:"isAI"`
	Folded        bool      `json:"folded"`
	IsAllIn       bool      `json:"isAllIn"`
	LastHeartbeat time.Time `json:"lastHeartbeat"`
	IsAway        bool      `json:"isAway"`
}

// Eligible reports whether the player can still act this hand.
func (p *Player) Eligible() bool {
	return !p.Folded && !p.IsAllIn
}

// Bet is a single chip contribution to the pot ledger.
type Bet struct {
	PlayerID string `json:"playerId"`
	Amount   int64  `json:"amount"`
}

// WinnerResult records the outcome of a hand.
type WinnerResult struct {
	WinnerID     string           `json:"winnerId"`
	WinnerName   string           `json:"winnerName"`
	HandRank     string           `json:"handRank"`
	IsTie        bool             `json:"isTie"`
	TiedPlayers  []string         `json:"tiedPlayers,omitempty"`
	Payouts      map[string]int64 `json:"payouts,omitempty"`
}

// ActionTimer is the persisted countdown for the acting player. Truth is the
// timestamp comparison, not any in-process callback.
type ActionTimer struct {
	StartTime         time.Time     `json:"startTime"`
	Duration          time.Duration `json:"duration"`
	ActionType        string        `json:"actionType"`
	TargetPlayerID    string        `json:"targetPlayerId"`
	IsPaused          bool          `json:"isPaused"`
	PausedAt          *time.Time    `json:"pausedAt,omitempty"`
	PreSelectedAction *Action       `json:"preSelectedAction,omitempty"`
}

// Elapsed returns how long the timer has been running at the given instant,
// excluding any currently open pause window.
func (t *ActionTimer) Elapsed(now time.Time) time.Duration {
	if t.IsPaused && t.PausedAt != nil {
		return t.PausedAt.Sub(t.StartTime)
	}
	return now.Sub(t.StartTime)
}

// Expired reports whether the timer has run out, within the given tolerance.
func (t *ActionTimer) Expired(now time.Time, tolerance time.Duration) bool {
	if t.IsPaused {
		return false
	}
	return t.Elapsed(now) >= t.Duration-tolerance
}

// Game is the single authoritative record for one table. It is persisted as a
// document; Version and Processing mirror the store's concurrency columns.
type Game struct {
	Code               string               `json:"code"`
	Players            []*Player            `json:"players"`
	Deck               []Card               `json:"deck"`
	CommunityCards     []Card               `json:"communityCards"`
	Pots               []Bet                `json:"pots"`
	Stage              Stage                `json:"stage"`
	Locked             bool                 `json:"locked"`
	LockTime           *time.Time           `json:"lockTime,omitempty"`
	Processing         bool                 `json:"-"`
	Version            int64                `json:"-"`
	CurrentPlayerIndex int                  `json:"currentPlayerIndex"`
	PlayerBets         []int64              `json:"playerBets"`
	ActedSinceRaise    []bool               `json:"actedSinceRaise"`
	DealerButton       int                  `json:"dealerButton"`
	ActionHistory      []ActionHistoryEntry `json:"actionHistory"`
	Winner             *WinnerResult        `json:"winner,omitempty"`
	ActionTimer        *ActionTimer         `json:"actionTimer,omitempty"`
	UpdatedAt          time.Time            `json:"updatedAt"`
}

// NewGame creates an unlocked, empty table record using the given shuffled
// deck.
func NewGame(code string, deck []Card) *Game {
	return &Game{
		Code:               code,
		Players:            []*Player{},
		Deck:               deck,
		CommunityCards:     []Card{},
		Pots:               []Bet{},
		Stage:              StagePreflop,
		CurrentPlayerIndex: 0,
		PlayerBets:         []int64{},
		ActedSinceRaise:    []bool{},
		ActionHistory:      []ActionHistoryEntry{},
	}
}

// SeatOf returns the seat index of the given player, or -1.
func (g *Game) SeatOf(playerID string) int {
	for i, p := range g.Players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

// PlayerByID returns the player with the given id, or nil.
func (g *Game) PlayerByID(playerID string) *Player {
	idx := g.SeatOf(playerID)
	if idx < 0 {
		return nil
	}
	return g.Players[idx]
}

// CurrentPlayer returns the player whose turn it is, or nil when the index is
// out of range (no hand in progress).
func (g *Game) CurrentPlayer() *Player {
	if g.CurrentPlayerIndex < 0 || g.CurrentPlayerIndex >= len(g.Players) {
		return nil
	}
	return g.Players[g.CurrentPlayerIndex]
}

// NonFoldedCount returns the number of players still in the hand.
func (g *Game) NonFoldedCount() int {
	n := 0
	for _, p := range g.Players {
		if !p.Folded {
			n++
		}
	}
	return n
}

// NextEligible returns the first seat after the given one (wrapping) whose
// player is neither folded nor all-in.
func (g *Game) NextEligible(after int) (int, bool) {
	n := len(g.Players)
	if n == 0 {
		return -1, false
	}
	for i := 1; i <= n; i++ {
		idx := (after + i) % n
		if g.Players[idx].Eligible() {
			return idx, true
		}
	}
	return -1, false
}

// PotTotal returns the total chips contributed this hand.
func (g *Game) PotTotal() int64 {
	var total int64
	for _, b := range g.Pots {
		total += b.Amount
	}
	return total
}

// TotalsBySeat sums the hand-long contribution ledger per seat.
func (g *Game) TotalsBySeat() []int64 {
	totals := make([]int64, len(g.Players))
	for _, b := range g.Pots {
		idx := g.SeatOf(b.PlayerID)
		if idx >= 0 {
			totals[idx] += b.Amount
		}
	}
	return totals
}

// Deal removes and returns the top card from the record's deck.
func (g *Game) Deal() (Card, error) {
	if len(g.Deck) == 0 {
		return Card{}, fmt.Errorf("deck is empty")
	}
	card := g.Deck[0]
	g.Deck = g.Deck[1:]
	return card, nil
}

// ResetRound zeroes the per-round bet tracking at the start of a new street.
func (g *Game) ResetRound() {
	for i := range g.PlayerBets {
		g.PlayerBets[i] = 0
	}
	for i := range g.ActedSinceRaise {
		g.ActedSinceRaise[i] = false
	}
}
