package engine

import (
	"github.com/ezivnuska/pokertable/pkg/poker"
)

// EventType identifies an outbound notification.
type EventType string

const (
	EventGameState     EventType = "game_state"
	EventPlayerJoined  EventType = "player_joined"
	EventPlayerLeft    EventType = "player_left"
	EventGameLocked    EventType = "game_locked"
	EventBetPlaced     EventType = "bet_placed"
	EventPlayerFolded  EventType = "player_folded"
	EventCardsDealt    EventType = "cards_dealt"
	EventRoundComplete EventType = "round_complete"
	EventTimerStarted  EventType = "timer_started"
	EventTimerPaused   EventType = "timer_paused"
	EventTimerResumed  EventType = "timer_resumed"
	EventTimerCleared  EventType = "timer_cleared"
	EventGameEnded     EventType = "game_ended"
	EventGameReset     EventType = "game_reset"
)

// Notifier is the outbound boundary. Delivery is entirely external; the
// engine only decides what happened. Publish must not block game progress.
type Notifier interface {
	Publish(event EventType, tableCode string, payload interface{})
}

// NopNotifier discards all events.
type NopNotifier struct{}

// Publish implements Notifier.
func (NopNotifier) Publish(EventType, string, interface{}) {}

// PlayerEventPayload describes a join/leave/fold/turn event.
type PlayerEventPayload struct {
	PlayerID string `json:"playerId"`
	Username string `json:"username,omitempty"`
}

// BetEventPayload describes a chip contribution.
type BetEventPayload struct {
	PlayerID string `json:"playerId"`
	Kind     string `json:"kind"`
	Amount   int64  `json:"amount"`
	Pot      int64  `json:"pot"`
	AllIn    bool   `json:"allIn,omitempty"`
}

// CardsDealtPayload describes newly revealed community cards.
type CardsDealtPayload struct {
	Stage string       `json:"stage"`
	Cards []poker.Card `json:"cards,omitempty"`
}

// RoundCompletePayload describes a stage transition.
type RoundCompletePayload struct {
	FromStage string `json:"fromStage"`
	ToStage   string `json:"toStage"`
}

// TimerEventPayload describes an action-timer change.
type TimerEventPayload struct {
	TargetPlayerID string `json:"targetPlayerId"`
	DurationMs     int64  `json:"durationMs,omitempty"`
}

// GameEndedPayload describes the hand result.
type GameEndedPayload struct {
	Winner *poker.WinnerResult `json:"winner,omitempty"`
	Pot    int64               `json:"pot"`
}

// pendingEvent is collected inside a critical section and published only
// after the transaction commits.
type pendingEvent struct {
	typ     EventType
	payload interface{}
}

// eventSink accumulates events during one exclusive-access transaction.
type eventSink struct {
	events []pendingEvent
}

func (s *eventSink) add(typ EventType, payload interface{}) {
	s.events = append(s.events, pendingEvent{typ: typ, payload: payload})
}

// flush publishes the collected events plus a trailing state snapshot. A
// no-op transaction (empty sink) publishes nothing.
func (e *Engine) flush(sink *eventSink, g *poker.Game) {
	if e.notifier == nil || len(sink.events) == 0 {
		return
	}
	for _, ev := range sink.events {
		e.notifier.Publish(ev.typ, g.Code, ev.payload)
	}
	e.notifier.Publish(EventGameState, g.Code, g.PublicView())
}
