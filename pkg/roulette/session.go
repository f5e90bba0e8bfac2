package roulette

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/decred/slog"

	"github.com/sixchambers/roulette/pkg/scheduler"
	"github.com/sixchambers/roulette/pkg/statemachine"
)

// State is a session lifecycle state.
type State string

const (
	StateForming   State = "FORMING"
	StateCountdown State = "COUNTDOWN"
	StateActive    State = "ACTIVE"
	StateConcluded State = "CONCLUDED"
)

// Outcome is the result of a trigger pull.
type Outcome int

const (
	OutcomeMiss Outcome = iota
	OutcomeHit
)

func (o Outcome) String() string {
	if o == OutcomeHit {
		return "HIT"
	}
	return "MISS"
}

// DefaultModes maps chamber-load mode names to bullet counts. Modes are
// plain configuration data; a custom table can be supplied via
// SessionConfig.Modes.
var DefaultModes = map[string]int{
	"classic":  1,
	"hardcore": 2,
	"insane":   3,
}

// SessionStateFn is a session state function.
type SessionStateFn = statemachine.StateFn[Session]

// SessionConfig holds configuration for a new session.
type SessionConfig struct {
	ID   string
	Log  slog.Logger
	Mode string

	// Modes maps mode name to bullet count. Defaults to DefaultModes.
	Modes map[string]int

	MinPlayers int
	MaxPlayers int

	Wager    Wager   // taken from every participant on join
	HouseCut float64 // fraction of the money pot kept on settlement

	StartCountdown   time.Duration // countdown length after a start request
	TurnTime         time.Duration // per-turn clock; zero disables the clock
	TurnAdvanceDelay time.Duration // pause between a resolved pull and the next turn

	// ReshuffleAfterShot re-randomizes the cylinder after every hit instead
	// of continuing the same traversal. Off by default: working through a
	// frozen arrangement is the classic increasing-risk mechanic.
	ReshuffleAfterShot bool

	// RefundOnCancel returns wagers when the session is force-terminated.
	RefundOnCancel bool

	Seed int64 // optional, for deterministic sessions

	Banker       Banker
	Presentation PresentationSink
	Placement    ScenePlacement
	HUD          HUDSink
	Sched        scheduler.Scheduler
}

// Session is one run of the game from formation to conclusion. It owns the
// revolver, the pot ledger, the turn order and the state machine, and is
// safe for concurrent use: a coarse lock serializes every mutation, so a
// pull or timeout is processed to completion before the next action is
// accepted.
type Session struct {
	log     slog.Logger
	cfg     SessionConfig
	id      string
	bullets int
	rng     *rand.Rand

	revolver *Revolver
	pot      *PotLedger

	participants map[string]*Participant
	turnOrder    []string
	turnIndex    int
	currentTurn  string // empty between turns and outside Active

	turnTimeLeft  int // seconds
	countdownLeft int // seconds

	countdownToken scheduler.CancelToken
	turnTimerToken scheduler.CancelToken
	turnDelayToken scheduler.CancelToken
	turnEpoch      int // invalidates timer callbacks from earlier turns

	stateMachine *statemachine.Machine[Session]
	eventManager *eventManager

	banker    Banker
	pres      PresentationSink
	placement ScenePlacement
	hud       HUDSink
	sched     scheduler.Scheduler

	// concludeHook runs after the session lock is released once the session
	// reaches CONCLUDED; the registry uses it to purge its mappings.
	concludeHook func(sessionID string, participantIDs []string)
	pendingHook  func()

	createdAt  time.Time
	lastAction time.Time

	mu sync.RWMutex
}

// NewSession creates a session in the FORMING state.
func NewSession(cfg SessionConfig) *Session {
	if cfg.Log == nil {
		cfg.Log = slog.Disabled
	}
	if cfg.Modes == nil {
		cfg.Modes = DefaultModes
	}
	if cfg.MinPlayers < 2 {
		cfg.MinPlayers = 2
	}
	if cfg.MaxPlayers == 0 {
		cfg.MaxPlayers = ChamberCount
	}

	bullets, ok := cfg.Modes[cfg.Mode]
	if !ok {
		bullets = 1
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := &Session{
		log:          cfg.Log,
		cfg:          cfg,
		id:           cfg.ID,
		bullets:      bullets,
		rng:          rand.New(rand.NewSource(seed)),
		participants: make(map[string]*Participant),
		eventManager: &eventManager{},
		banker:       cfg.Banker,
		pres:         cfg.Presentation,
		placement:    cfg.Placement,
		hud:          cfg.HUD,
		sched:        cfg.Sched,
		createdAt:    time.Now(),
		lastAction:   time.Now(),
	}
	if s.pres == nil {
		s.pres = NoopPresentation{}
	}
	if s.placement == nil {
		s.placement = NoopPlacement{}
	}
	if s.hud == nil {
		s.hud = NoopHUD{}
	}
	if s.sched == nil {
		s.sched = scheduler.NewWall()
	}

	// The ledger is guarded by the session lock, like everything else here.
	s.pot = NewPotLedger(cfg.ID, cfg.HouseCut, s.banker, cfg.Log)

	s.stateMachine = statemachine.New(s, sessionStateForming)
	return s
}

// State functions. Transitions are driven by explicit calls and timers, so
// each state simply persists until the session dispatches the next one.

func sessionStateForming(*Session) SessionStateFn   { return sessionStateForming }
func sessionStateCountdown(*Session) SessionStateFn { return sessionStateCountdown }
func sessionStateActive(*Session) SessionStateFn    { return sessionStateActive }
func sessionStateConcluded(*Session) SessionStateFn { return nil }

// stateLocked resolves the state machine's current function to a State.
func (s *Session) stateLocked() State {
	current := s.stateMachine.Current()
	if current == nil {
		return StateConcluded
	}
	switch fmt.Sprintf("%p", current) {
	case fmt.Sprintf("%p", sessionStateForming):
		return StateForming
	case fmt.Sprintf("%p", sessionStateCountdown):
		return StateCountdown
	case fmt.Sprintf("%p", sessionStateActive):
		return StateActive
	default:
		return StateConcluded
	}
}

// ID returns the session id, stable for the session's entire life.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

// Mode returns the chamber-load mode name.
func (s *Session) Mode() string {
	return s.cfg.Mode
}

// CurrentTurn returns the id of the participant whose action is awaited, or
// empty when no turn is open.
func (s *Session) CurrentTurn() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentTurn
}

// AliveCount returns the number of participants still in the turn order.
func (s *Session) AliveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turnOrder)
}

// ParticipantCount returns the number of joined participants.
func (s *Session) ParticipantCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.participants)
}

// BulletsRemaining returns the live rounds left in the revolver. Before the
// revolver is loaded it returns the configured bullet count.
func (s *Session) BulletsRemaining() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.revolver == nil {
		return s.bullets
	}
	return s.revolver.Remaining()
}

// PotValue returns the total recorded value of the pot.
func (s *Session) PotValue() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pot.Total()
}

// TurnTimeRemaining returns the seconds left on the current turn clock.
func (s *Session) TurnTimeRemaining() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.turnTimeLeft
}

// SetConcludeHook registers fn to run once when the session concludes. The
// hook runs outside the session lock.
func (s *Session) SetConcludeHook(fn func(sessionID string, participantIDs []string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.concludeHook = fn
}

// SessionSnapshot is a point-in-time copy of session state for safe
// concurrent access by HUDs and query callers.
type SessionSnapshot struct {
	ID                 string
	State              State
	Mode               string
	Participants       []ParticipantInfo
	TurnOrder          []string
	CurrentTurn        string
	TurnTimeRemaining  int
	CountdownRemaining int
	BulletsRemaining   int
	PotValue           int64
}

// Snapshot returns an atomic snapshot of the session.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() SessionSnapshot {
	infos := make([]ParticipantInfo, 0, len(s.participants))
	for _, p := range s.participants {
		infos = append(infos, ParticipantInfo{
			ID:       p.ID,
			Name:     p.Name,
			TurnSeat: p.TurnSeat,
			Alive:    p.Alive,
		})
	}

	order := make([]string, len(s.turnOrder))
	copy(order, s.turnOrder)

	bullets := s.bullets
	if s.revolver != nil {
		bullets = s.revolver.Remaining()
	}

	return SessionSnapshot{
		ID:                 s.id,
		State:              s.stateLocked(),
		Mode:               s.cfg.Mode,
		Participants:       infos,
		TurnOrder:          order,
		CurrentTurn:        s.currentTurn,
		TurnTimeRemaining:  s.turnTimeLeft,
		CountdownRemaining: s.countdownLeft,
		BulletsRemaining:   bullets,
		PotValue:           s.pot.Total(),
	}
}

// AddParticipant joins a player to the session, taking their wager first.
// Joins are accepted only while FORMING; a failed wager leaves the session
// untouched.
func (s *Session) AddParticipant(id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stateLocked() != StateForming {
		return ErrSessionStarted
	}
	if _, exists := s.participants[id]; exists {
		return ErrAlreadyJoined
	}
	if len(s.participants) >= s.cfg.MaxPlayers {
		return ErrSessionFull
	}

	// Take the wager before admitting the player.
	if err := s.pot.Contribute(id, s.cfg.Wager); err != nil {
		return err
	}

	origin := s.placement.CaptureOrigin(id)
	p := NewParticipant(id, name, len(s.participants), origin)
	s.participants[id] = p
	s.turnOrder = append(s.turnOrder, id)
	s.lastAction = time.Now()

	payload := map[string]interface{}{
		"player":  name,
		"players": len(s.participants),
		"max":     s.cfg.MaxPlayers,
	}
	s.pres.Notify(s.allIDsLocked(), EventPlayerJoined, payload)
	s.eventManager.publish(EventPlayerJoined, s.id, payload)
	s.hud.Refresh(s.snapshotLocked())

	s.log.Infof("session %s: %s joined (%d/%d)", s.id, id, len(s.participants), s.cfg.MaxPlayers)
	return nil
}

// RemoveParticipant removes a player. A voluntary leave is rejected during
// the player's own turn; a forced removal (disconnect) is always honored
// and counts as an elimination-equivalent departure, without a death
// outcome.
func (s *Session) RemoveParticipant(id string, forced bool) error {
	s.mu.Lock()
	err := s.removeLocked(id, forced)
	hook := s.takePendingHook()
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return err
}

func (s *Session) removeLocked(id string, forced bool) error {
	p, exists := s.participants[id]
	if !exists {
		return ErrNotInSession
	}

	state := s.stateLocked()
	wasTurn := s.currentTurn == id

	if state == StateActive && wasTurn && !forced {
		return ErrLeaveDuringTurn
	}

	delete(s.participants, id)
	s.dropFromTurnOrderLocked(id)
	s.returnParticipantLocked(p)
	s.hud.Remove(id)
	s.lastAction = time.Now()

	kind := EventPlayerLeft
	if forced {
		kind = EventDisconnected
	}
	payload := map[string]interface{}{
		"player":  p.Name,
		"players": len(s.participants),
		"max":     s.cfg.MaxPlayers,
	}
	s.pres.Notify(s.allIDsLocked(), kind, payload)
	s.eventManager.publish(kind, s.id, payload)

	s.log.Infof("session %s: %s left (forced=%v)", s.id, id, forced)

	if state != StateActive {
		return nil
	}

	// Departure mid-game: re-run the winner check; if the game goes on and
	// it was the leaver's turn, the next participant acts immediately.
	if s.checkWinnerLocked() {
		return nil
	}
	if wasTurn {
		s.cancelTurnTimersLocked()
		s.turnIndex = s.turnIndex % len(s.turnOrder)
		s.startTurnLocked()
	} else {
		s.hud.Refresh(s.snapshotLocked())
	}
	return nil
}

// Start requests the countdown. It fails without side effects unless the
// session is FORMING with at least the configured minimum of participants.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stateLocked() != StateForming {
		return ErrSessionStarted
	}
	if len(s.participants) < s.cfg.MinPlayers {
		return ErrNotEnoughPlayers
	}

	s.stateMachine.Dispatch(sessionStateCountdown)

	// Load the cylinder up front; it stays frozen through the countdown.
	s.revolver = NewRevolver(s.bullets, s.rng)

	s.placement.SeatAll(s.snapshotLocked())

	countdown := int(s.cfg.StartCountdown / time.Second)
	if countdown <= 0 {
		s.beginLocked()
		return nil
	}

	s.countdownLeft = countdown
	s.notifyCountdownLocked()
	s.countdownToken = s.sched.Every(time.Second, s.countdownTick)

	s.log.Infof("session %s: countdown started (%ds, %d bullets)", s.id, countdown, s.bullets)
	return nil
}

func (s *Session) countdownTick() {
	s.mu.Lock()
	if s.stateLocked() != StateCountdown {
		s.cancelCountdownLocked()
		s.mu.Unlock()
		return
	}

	s.countdownLeft--
	if s.countdownLeft > 0 {
		s.notifyCountdownLocked()
		s.mu.Unlock()
		return
	}

	s.cancelCountdownLocked()
	s.beginLocked()
	hook := s.takePendingHook()
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
}

func (s *Session) notifyCountdownLocked() {
	payload := map[string]interface{}{"time": s.countdownLeft}
	s.pres.Notify(s.allIDsLocked(), EventCountdownTick, payload)
	s.eventManager.publish(EventCountdownTick, s.id, payload)
	s.hud.Refresh(s.snapshotLocked())
}

// beginLocked transitions COUNTDOWN -> ACTIVE: shuffles the turn order and
// opens the first turn.
func (s *Session) beginLocked() {
	s.stateMachine.Dispatch(sessionStateActive)
	s.countdownLeft = 0

	s.rng.Shuffle(len(s.turnOrder), func(i, j int) {
		s.turnOrder[i], s.turnOrder[j] = s.turnOrder[j], s.turnOrder[i]
	})
	s.turnIndex = 0

	payload := map[string]interface{}{"players": len(s.turnOrder)}
	s.pres.Notify(s.allIDsLocked(), EventSessionStarted, payload)
	s.eventManager.publish(EventSessionStarted, s.id, payload)

	s.log.Infof("session %s: active with %d participants", s.id, len(s.turnOrder))
	s.startTurnLocked()
}

// startTurnLocked opens the turn for the participant at turnIndex and arms
// the turn clock.
func (s *Session) startTurnLocked() {
	if len(s.turnOrder) == 0 {
		// Should not occur under correct bookkeeping; treat as a logic
		// fault and wind the session down with a refund.
		s.log.Errorf("session %s: empty turn order while active", s.id)
		s.refundLocked()
		s.concludeLocked()
		return
	}

	if s.turnIndex >= len(s.turnOrder) {
		s.turnIndex = 0
	}
	s.currentTurn = s.turnOrder[s.turnIndex]
	s.turnEpoch++

	p := s.participants[s.currentTurn]
	payload := map[string]interface{}{
		"turn":    p.Name,
		"bullets": s.revolver.Remaining(),
	}
	s.pres.Notify(s.allIDsLocked(), EventTurnStarted, payload)
	s.eventManager.publish(EventTurnStarted, s.id, payload)
	s.hud.Refresh(s.snapshotLocked())

	if s.cfg.TurnTime <= 0 {
		s.turnTimeLeft = 0
		return
	}

	s.turnTimeLeft = int(s.cfg.TurnTime / time.Second)
	epoch := s.turnEpoch
	s.turnTimerToken = s.sched.Every(time.Second, func() { s.turnTick(epoch) })
}

// turnTick is the per-second turn clock callback. It warns the current
// participant over the last five seconds and pulls the trigger on their
// behalf when the clock reaches zero.
func (s *Session) turnTick(epoch int) {
	s.mu.Lock()
	if s.stateLocked() != StateActive || epoch != s.turnEpoch || s.currentTurn == "" {
		// Stale callback from a turn that already resolved.
		s.mu.Unlock()
		return
	}

	s.turnTimeLeft--
	s.hud.Refresh(s.snapshotLocked())

	if s.turnTimeLeft > 0 {
		if s.turnTimeLeft <= 5 {
			payload := map[string]interface{}{"time": s.turnTimeLeft}
			s.pres.Notify([]string{s.currentTurn}, EventTurnWarning, payload)
			s.eventManager.publish(EventTurnWarning, s.id, payload)
		}
		s.mu.Unlock()
		return
	}

	// Time's up: forced trigger on the participant's behalf.
	p := s.participants[s.currentTurn]
	payload := map[string]interface{}{"player": p.Name}
	s.pres.Notify(s.allIDsLocked(), EventAutoTrigger, payload)
	s.eventManager.publish(EventAutoTrigger, s.id, payload)

	_, _ = s.pullLocked(s.currentTurn)
	hook := s.takePendingHook()
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
}

// PullTrigger fires the revolver for the given participant. It is rejected
// unless the session is ACTIVE and it is that participant's turn.
func (s *Session) PullTrigger(id string) (Outcome, error) {
	s.mu.Lock()
	out, err := s.pullLocked(id)
	hook := s.takePendingHook()
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return out, err
}

func (s *Session) pullLocked(id string) (Outcome, error) {
	if s.stateLocked() != StateActive {
		return OutcomeMiss, ErrSessionNotActive
	}
	if id != s.currentTurn {
		return OutcomeMiss, ErrNotYourTurn
	}

	s.cancelTurnTimersLocked()
	s.lastAction = time.Now()

	if s.revolver.Fire() {
		s.handleHitLocked(id)
		return OutcomeHit, nil
	}
	s.handleMissLocked(id)
	return OutcomeMiss, nil
}

func (s *Session) handleHitLocked(id string) {
	p := s.participants[id]
	payload := map[string]interface{}{"player": p.Name}
	s.pres.Notify(s.allIDsLocked(), EventPlayerDied, payload)
	s.eventManager.publish(EventPlayerDied, s.id, payload)

	s.eliminateLocked(id)

	if s.cfg.ReshuffleAfterShot && s.revolver.HasLiveRounds() {
		s.revolver.Shuffle()
	}

	if s.checkWinnerLocked() {
		return
	}

	// A spent cylinder with more than one survivor would click forever;
	// reload it so the game still converges on a single winner.
	if !s.revolver.HasLiveRounds() {
		s.revolver.Shuffle()
		s.log.Infof("session %s: cylinder spent, reloaded %d rounds", s.id, s.revolver.Loaded())
	}

	// The next participant shifted into the eliminated player's slot, so
	// the index already points at them.
	s.scheduleNextTurnLocked(false)
}

func (s *Session) handleMissLocked(id string) {
	p := s.participants[id]
	payload := map[string]interface{}{"player": p.Name}
	s.pres.Notify(s.allIDsLocked(), EventPlayerSurvived, payload)
	s.eventManager.publish(EventPlayerSurvived, s.id, payload)

	s.scheduleNextTurnLocked(true)
}

// eliminateLocked flags the participant dead and removes them from the turn
// order. The record stays in the session until conclusion.
func (s *Session) eliminateLocked(id string) {
	p := s.participants[id]
	p.Alive = false
	s.dropFromTurnOrderLocked(id)
	s.returnParticipantLocked(p)
	s.hud.Remove(id)
	s.log.Infof("session %s: %s eliminated, %d remain", s.id, id, len(s.turnOrder))
}

// dropFromTurnOrderLocked removes id from the turn order, keeping turnIndex
// pointed at the participant who acts next.
func (s *Session) dropFromTurnOrderLocked(id string) {
	for i, pid := range s.turnOrder {
		if pid != id {
			continue
		}
		s.turnOrder = append(s.turnOrder[:i], s.turnOrder[i+1:]...)
		if i < s.turnIndex {
			s.turnIndex--
		}
		if s.turnIndex >= len(s.turnOrder) {
			s.turnIndex = 0
		}
		return
	}
}

// scheduleNextTurnLocked closes the current turn and opens the next one
// after the configured delay. advance moves the index past the participant
// who just acted; eliminations skip it because removal already shifted the
// next participant into place.
func (s *Session) scheduleNextTurnLocked(advance bool) {
	if len(s.turnOrder) == 0 {
		s.log.Errorf("session %s: empty turn order after pull", s.id)
		s.refundLocked()
		s.concludeLocked()
		return
	}

	if advance {
		s.turnIndex = (s.turnIndex + 1) % len(s.turnOrder)
	} else {
		s.turnIndex = s.turnIndex % len(s.turnOrder)
	}

	// No turn is open during the pause; pulls are rejected until the next
	// turn starts.
	s.currentTurn = ""
	s.turnEpoch++
	s.turnTimeLeft = 0

	if s.cfg.TurnAdvanceDelay <= 0 {
		s.startTurnLocked()
		return
	}

	epoch := s.turnEpoch
	s.turnDelayToken = s.sched.After(s.cfg.TurnAdvanceDelay, func() {
		s.mu.Lock()
		if s.stateLocked() == StateActive && epoch == s.turnEpoch {
			s.startTurnLocked()
		}
		hook := s.takePendingHook()
		s.mu.Unlock()

		if hook != nil {
			hook()
		}
	})
}

// checkWinnerLocked concludes the session when at most one participant
// remains. A single survivor collects the pot; zero survivors refunds it.
func (s *Session) checkWinnerLocked() bool {
	if len(s.turnOrder) > 1 {
		return false
	}

	if len(s.turnOrder) == 1 {
		winnerID := s.turnOrder[0]
		winner := s.participants[winnerID]

		payout, _ := s.pot.Settle(winnerID)
		payload := map[string]interface{}{
			"winner": winner.Name,
			"payout": payout,
		}
		s.pres.Notify(s.allIDsLocked(), EventWinner, payload)
		s.eventManager.publish(EventWinner, s.id, payload)
		s.log.Infof("session %s: winner %s, payout %d", s.id, winnerID, payout)
	} else {
		s.log.Warnf("session %s: no survivors at winner check", s.id)
		s.refundLocked()
	}

	s.concludeLocked()
	return true
}

// ForceEnd terminates the session from any state, refunding the pot when
// configured to, and releases every resource.
func (s *Session) ForceEnd() {
	s.mu.Lock()
	if s.stateLocked() == StateConcluded {
		s.mu.Unlock()
		return
	}

	if s.cfg.RefundOnCancel {
		s.refundLocked()
	} else {
		s.pot.Discard()
	}

	payload := map[string]interface{}{}
	s.pres.Notify(s.allIDsLocked(), EventForceEnded, payload)
	s.eventManager.publish(EventForceEnded, s.id, payload)
	s.log.Infof("session %s: force ended", s.id)

	s.concludeLocked()
	hook := s.takePendingHook()
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
}

func (s *Session) refundLocked() {
	if s.pot.Drained() {
		return
	}
	_ = s.pot.Refund()
	payload := map[string]interface{}{}
	s.pres.Notify(s.allIDsLocked(), EventPotRefunded, payload)
	s.eventManager.publish(EventPotRefunded, s.id, payload)
}

// concludeLocked is the single exit into CONCLUDED: cancels every timer,
// drains the pot if nothing settled it, restores participants, and queues
// the registry hook to run once the lock is released.
func (s *Session) concludeLocked() {
	if s.stateLocked() == StateConcluded {
		return
	}
	s.stateMachine.Dispatch(sessionStateConcluded)

	s.cancelCountdownLocked()
	s.cancelTurnTimersLocked()
	s.currentTurn = ""
	s.turnTimeLeft = 0

	if !s.pot.Drained() {
		// Conclusion without settlement or refund means something skipped
		// a step; refund rather than strand the value.
		s.log.Warnf("session %s: pot not drained at conclusion, refunding", s.id)
		_ = s.pot.Refund()
	}

	ids := make([]string, 0, len(s.participants))
	for id, p := range s.participants {
		ids = append(ids, id)
		s.returnParticipantLocked(p)
		s.hud.Remove(id)
	}

	payload := map[string]interface{}{}
	s.pres.Notify(ids, EventSessionEnded, payload)
	s.eventManager.publish(EventSessionEnded, s.id, payload)

	s.participants = make(map[string]*Participant)
	s.turnOrder = nil
	s.turnIndex = 0

	if s.concludeHook != nil {
		hook := s.concludeHook
		sessionID := s.id
		s.pendingHook = func() { hook(sessionID, ids) }
	}

	s.log.Infof("session %s: concluded", s.id)
}

func (s *Session) returnParticipantLocked(p *Participant) {
	if p.returned {
		return
	}
	p.returned = true
	s.placement.ReturnToOrigin(p.ID, p.Origin)
}

func (s *Session) cancelCountdownLocked() {
	if s.countdownToken != nil {
		s.countdownToken.Cancel()
		s.countdownToken = nil
	}
}

func (s *Session) cancelTurnTimersLocked() {
	if s.turnTimerToken != nil {
		s.turnTimerToken.Cancel()
		s.turnTimerToken = nil
	}
	if s.turnDelayToken != nil {
		s.turnDelayToken.Cancel()
		s.turnDelayToken = nil
	}
}

// takePendingHook claims the queued conclude hook, if any. Callers invoke
// the returned func after releasing the session lock.
func (s *Session) takePendingHook() func() {
	hook := s.pendingHook
	s.pendingHook = nil
	return hook
}

func (s *Session) allIDsLocked() []string {
	ids := make([]string, 0, len(s.participants))
	for id := range s.participants {
		ids = append(ids, id)
	}
	return ids
}
