package roulette

import (
	"time"
)

// Participant is a member of a session.
type Participant struct {
	ID       string
	Name     string
	TurnSeat int            // join order, used before the turn order is shuffled
	Alive    bool
	Origin   PlacementToken // pre-session position, owned by scene placement
	JoinedAt time.Time

	returned bool // origin already restored by scene placement
}

// NewParticipant creates a participant record for a joining player.
func NewParticipant(id, name string, seat int, origin PlacementToken) *Participant {
	return &Participant{
		ID:       id,
		Name:     name,
		TurnSeat: seat,
		Alive:    true,
		Origin:   origin,
		JoinedAt: time.Now(),
	}
}

// ParticipantInfo is the copyable view of a participant exposed in
// snapshots.
type ParticipantInfo struct {
	ID       string
	Name     string
	TurnSeat int
	Alive    bool
}
