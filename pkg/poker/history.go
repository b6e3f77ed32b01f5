package poker

import (
	"time"

	"github.com/google/uuid"
)

// ActionType identifies what happened in a history entry.
type ActionType string

const (
	ActionJoin          ActionType = "join"
	ActionLeave         ActionType = "leave"
	ActionBet           ActionType = "bet"
	ActionFoldEntry     ActionType = "fold"
	ActionCardsDealt    ActionType = "cards_dealt"
	ActionStageAdvanced ActionType = "stage_advanced"
	ActionGameStarted   ActionType = "game_started"
	ActionGameEnded     ActionType = "game_ended"
)

// ActionHistoryEntry is one immutable record of a state transition. Entries
// are append-only and ordered by insertion.
type ActionHistoryEntry struct {
	ID        string     `json:"id"`
	Timestamp time.Time  `json:"timestamp"`
	Stage     Stage      `json:"stage"`
	Action    ActionType `json:"action"`
	PlayerID  string     `json:"playerId,omitempty"`
	Amount    int64      `json:"amount,omitempty"`
	FromStage *Stage     `json:"fromStage,omitempty"`
	ToStage   *Stage     `json:"toStage,omitempty"`
	WinnerID  string     `json:"winnerId,omitempty"`
}

// AppendHistory stamps and appends an entry to the record's action history.
func (g *Game) AppendHistory(entry ActionHistoryEntry) {
	entry.ID = uuid.NewString()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	entry.Stage = g.Stage
	g.ActionHistory = append(g.ActionHistory, entry)
}
