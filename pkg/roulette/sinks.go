package roulette

// The session engine never renders, teleports, or moves value itself; it
// calls out through the narrow interfaces below. Implementations live with
// whoever owns the coordinating process.

// PlacementToken is an opaque reference to a participant's pre-session
// position. The engine only stores and hands it back; scene placement owns
// its meaning.
type PlacementToken string

// Banker is the currency/item service used to move wagered value. Every
// call may fail; the pot ledger records a contribution only after
// TryWithdraw reports success.
type Banker interface {
	// TryWithdraw takes the wager from the participant, or returns
	// ErrInsufficientFunds/ErrInsufficientItems without mutating anything.
	TryWithdraw(participantID string, wager Wager) error
	// Deposit credits the participant with a money amount.
	Deposit(participantID string, amount int64) error
	// DropOrGive delivers item stacks to the participant, falling back to a
	// terminal drop location when their inventory is unreachable.
	DropOrGive(participantID string, items []ItemStack) error
}

// PresentationSink receives localized join/leave/turn/outcome notifications
// for a set of participants.
type PresentationSink interface {
	Notify(participantIDs []string, kind EventKind, payload map[string]interface{})
}

// ScenePlacement seats participants at session start and returns them to
// their captured origins afterwards. The engine only signals when placement
// should occur; it never computes coordinates.
type ScenePlacement interface {
	CaptureOrigin(participantID string) PlacementToken
	SeatAll(snapshot SessionSnapshot)
	ReturnToOrigin(participantID string, origin PlacementToken)
}

// HUDSink presents the live session scoreboard.
type HUDSink interface {
	Refresh(snapshot SessionSnapshot)
	Remove(participantID string)
}

// No-op collaborator implementations, used wherever a config leaves a sink
// unset.

type NoopPresentation struct{}

func (NoopPresentation) Notify([]string, EventKind, map[string]interface{}) {}

type NoopPlacement struct{}

func (NoopPlacement) CaptureOrigin(string) PlacementToken   { return "" }
func (NoopPlacement) SeatAll(SessionSnapshot)               {}
func (NoopPlacement) ReturnToOrigin(string, PlacementToken) {}

type NoopHUD struct{}

func (NoopHUD) Refresh(SessionSnapshot) {}
func (NoopHUD) Remove(string)           {}
