package roulette

// EventKind identifies a session event.
type EventKind string

const (
	EventPlayerJoined   EventKind = "player_joined"
	EventPlayerLeft     EventKind = "player_left"
	EventDisconnected   EventKind = "player_disconnected"
	EventCountdownTick  EventKind = "countdown_tick"
	EventSessionStarted EventKind = "session_started"
	EventTurnStarted    EventKind = "turn_started"
	EventTurnWarning    EventKind = "turn_warning"
	EventAutoTrigger    EventKind = "auto_trigger"
	EventPlayerDied     EventKind = "player_died"
	EventPlayerSurvived EventKind = "player_survived"
	EventWinner         EventKind = "winner"
	EventPotRefunded    EventKind = "pot_refunded"
	EventSessionEnded   EventKind = "session_ended"
	EventForceEnded     EventKind = "force_ended"
)

// SessionEvent is a typed event published by a session for the coordinating
// layer (logging, HUD fan-out, sound cues).
type SessionEvent struct {
	Kind      EventKind
	SessionID string
	Payload   map[string]interface{}
}

// eventManager publishes session events to an optional channel without ever
// blocking the turn cycle.
type eventManager struct {
	ch chan<- SessionEvent
}

func (em *eventManager) setChannel(ch chan<- SessionEvent) {
	em.ch = ch
}

func (em *eventManager) publish(kind EventKind, sessionID string, payload map[string]interface{}) {
	if em.ch == nil {
		return
	}
	select {
	case em.ch <- SessionEvent{Kind: kind, SessionID: sessionID, Payload: payload}:
	default:
		// Channel full or nobody listening; the event is dropped rather
		// than stalling the session.
	}
}

// SetEventChannel routes the session's events to ch. Pass nil to detach.
func (s *Session) SetEventChannel(ch chan<- SessionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventManager.setChannel(ch)
}
