package roulette

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sixchambers/roulette/pkg/scheduler"
)

// recordingSink captures every presentation notification in order.
type recordingSink struct {
	mu     sync.Mutex
	events []EventKind
}

func (r *recordingSink) Notify(_ []string, kind EventKind, _ map[string]interface{}) {
	r.mu.Lock()
	r.events = append(r.events, kind)
	r.mu.Unlock()
}

func (r *recordingSink) count(kind EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, k := range r.events {
		if k == kind {
			n++
		}
	}
	return n
}

// recordingPlacement tracks seat/return calls.
type recordingPlacement struct {
	mu       sync.Mutex
	seated   int
	returned []string
}

func (r *recordingPlacement) CaptureOrigin(id string) PlacementToken {
	return PlacementToken("origin:" + id)
}

func (r *recordingPlacement) SeatAll(SessionSnapshot) {
	r.mu.Lock()
	r.seated++
	r.mu.Unlock()
}

func (r *recordingPlacement) ReturnToOrigin(id string, origin PlacementToken) {
	r.mu.Lock()
	r.returned = append(r.returned, id)
	r.mu.Unlock()
}

func (r *recordingPlacement) returnedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.returned)
}

func testSessionConfig(banker Banker, sched *scheduler.Manual, sink PresentationSink) SessionConfig {
	return SessionConfig{
		ID:               "sess-1",
		Mode:             "classic",
		MinPlayers:       2,
		MaxPlayers:       6,
		Wager:            Wager{Amount: 100},
		HouseCut:         0.1,
		StartCountdown:   3 * time.Second,
		TurnTime:         10 * time.Second,
		TurnAdvanceDelay: 2 * time.Second,
		RefundOnCancel:   true,
		Seed:             42,
		Banker:           banker,
		Presentation:     sink,
		Sched:            sched,
	}
}

// joinPlayers funds and joins n players named player-1..player-n.
func joinPlayers(t *testing.T, s *Session, banker *fakeBanker, n int) []string {
	t.Helper()
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("player-%d", i+1)
		banker.credit(ids[i], 1000)
		require.NoError(t, s.AddParticipant(ids[i], ids[i]))
	}
	return ids
}

// runToConclusion drives the session by pulling for whoever holds the turn
// and stepping the clock through turn-advance delays.
func runToConclusion(t *testing.T, s *Session, sched *scheduler.Manual) {
	t.Helper()
	for i := 0; i < 500 && s.State() != StateConcluded; i++ {
		if turn := s.CurrentTurn(); turn != "" {
			_, err := s.PullTrigger(turn)
			require.NoError(t, err)
			continue
		}
		sched.Advance(2 * time.Second)
	}
	require.Equal(t, StateConcluded, s.State())
}

func TestStartBelowMinimumRejected(t *testing.T) {
	banker := newFakeBanker()
	sched := scheduler.NewManual()
	s := NewSession(testSessionConfig(banker, sched, nil))
	joinPlayers(t, s, banker, 1)

	require.ErrorIs(t, s.Start(), ErrNotEnoughPlayers)
	require.Equal(t, StateForming, s.State())
}

func TestJoinAfterStartRejected(t *testing.T) {
	banker := newFakeBanker()
	sched := scheduler.NewManual()
	s := NewSession(testSessionConfig(banker, sched, nil))
	joinPlayers(t, s, banker, 2)

	require.NoError(t, s.Start())
	banker.credit("late", 1000)
	require.ErrorIs(t, s.AddParticipant("late", "late"), ErrSessionStarted)
	require.Equal(t, 2, s.ParticipantCount())
	require.EqualValues(t, 1000, banker.balance("late"))

	// Still rejected once active and after conclusion.
	sched.Advance(3 * time.Second)
	require.ErrorIs(t, s.AddParticipant("late", "late"), ErrSessionStarted)
	s.ForceEnd()
	require.ErrorIs(t, s.AddParticipant("late", "late"), ErrSessionStarted)
}

func TestJoinTwiceRejected(t *testing.T) {
	banker := newFakeBanker()
	sched := scheduler.NewManual()
	s := NewSession(testSessionConfig(banker, sched, nil))
	ids := joinPlayers(t, s, banker, 2)

	require.ErrorIs(t, s.AddParticipant(ids[0], ids[0]), ErrAlreadyJoined)
}

func TestJoinFullSessionRejected(t *testing.T) {
	banker := newFakeBanker()
	sched := scheduler.NewManual()
	cfg := testSessionConfig(banker, sched, nil)
	cfg.MaxPlayers = 2
	s := NewSession(cfg)
	joinPlayers(t, s, banker, 2)

	banker.credit("extra", 1000)
	require.ErrorIs(t, s.AddParticipant("extra", "extra"), ErrSessionFull)
}

func TestJoinInsufficientFundsAtomic(t *testing.T) {
	banker := newFakeBanker()
	sched := scheduler.NewManual()
	s := NewSession(testSessionConfig(banker, sched, nil))

	banker.credit("poor", 50)
	require.ErrorIs(t, s.AddParticipant("poor", "poor"), ErrInsufficientFunds)
	require.Equal(t, 0, s.ParticipantCount())
	require.EqualValues(t, 0, s.PotValue())
	require.EqualValues(t, 50, banker.balance("poor"))
}

func TestCountdownRunsToActive(t *testing.T) {
	banker := newFakeBanker()
	sched := scheduler.NewManual()
	sink := &recordingSink{}
	placement := &recordingPlacement{}
	cfg := testSessionConfig(banker, sched, sink)
	cfg.Placement = placement
	s := NewSession(cfg)
	joinPlayers(t, s, banker, 3)

	require.NoError(t, s.Start())
	require.Equal(t, StateCountdown, s.State())
	require.Equal(t, 1, placement.seated)

	// Pulls are rejected during the countdown.
	_, err := s.PullTrigger("player-1")
	require.ErrorIs(t, err, ErrSessionNotActive)

	sched.Advance(3 * time.Second)
	require.Equal(t, StateActive, s.State())
	require.NotEmpty(t, s.CurrentTurn())
	require.Equal(t, 1, sink.count(EventSessionStarted))
	require.GreaterOrEqual(t, sink.count(EventCountdownTick), 3)
}

func TestPullOutOfTurnRejected(t *testing.T) {
	banker := newFakeBanker()
	sched := scheduler.NewManual()
	s := NewSession(testSessionConfig(banker, sched, nil))
	ids := joinPlayers(t, s, banker, 3)

	require.NoError(t, s.Start())
	sched.Advance(3 * time.Second)

	turn := s.CurrentTurn()
	for _, id := range ids {
		if id == turn {
			continue
		}
		_, err := s.PullTrigger(id)
		require.ErrorIs(t, err, ErrNotYourTurn)
	}
	require.Equal(t, turn, s.CurrentTurn())
}

func TestPullDuringTurnAdvanceDelayRejected(t *testing.T) {
	banker := newFakeBanker()
	sched := scheduler.NewManual()
	s := NewSession(testSessionConfig(banker, sched, nil))
	joinPlayers(t, s, banker, 3)

	require.NoError(t, s.Start())
	sched.Advance(3 * time.Second)

	turn := s.CurrentTurn()
	_, err := s.PullTrigger(turn)
	require.NoError(t, err)

	// No turn is open until the advance delay elapses.
	if s.State() == StateActive {
		require.Empty(t, s.CurrentTurn())
		_, err = s.PullTrigger(turn)
		require.ErrorIs(t, err, ErrNotYourTurn)
	}
}

func TestGamePlaysToWinner(t *testing.T) {
	banker := newFakeBanker()
	sched := scheduler.NewManual()
	sink := &recordingSink{}
	placement := &recordingPlacement{}
	cfg := testSessionConfig(banker, sched, sink)
	cfg.Placement = placement
	s := NewSession(cfg)
	ids := joinPlayers(t, s, banker, 3)

	require.NoError(t, s.Start())
	require.EqualValues(t, 300, s.PotValue())
	sched.Advance(3 * time.Second)

	runToConclusion(t, s, sched)

	// Pot of 300 at a 0.1 house cut pays 270 to the single survivor.
	winners, losers := 0, 0
	for _, id := range ids {
		switch banker.balance(id) {
		case 1170:
			winners++
		case 900:
			losers++
		default:
			t.Fatalf("%s balance = %d", id, banker.balance(id))
		}
	}
	require.Equal(t, 1, winners)
	require.Equal(t, 2, losers)

	require.Equal(t, 2, sink.count(EventPlayerDied))
	require.Equal(t, 1, sink.count(EventWinner))
	require.Equal(t, 1, sink.count(EventSessionEnded))

	// Everyone went back where they came from, exactly once.
	require.Equal(t, 3, placement.returnedCount())
	require.Equal(t, 0, s.ParticipantCount())
}

func TestTurnTimeoutAutoFires(t *testing.T) {
	banker := newFakeBanker()
	sched := scheduler.NewManual()
	sink := &recordingSink{}
	s := NewSession(testSessionConfig(banker, sched, sink))
	joinPlayers(t, s, banker, 3)

	require.NoError(t, s.Start())
	sched.Advance(3 * time.Second)
	turn := s.CurrentTurn()
	require.NotEmpty(t, turn)

	// Nobody acts; the clock warns over the last five seconds and then
	// fires on the holder's behalf.
	sched.Advance(10 * time.Second)
	require.Equal(t, 5, sink.count(EventTurnWarning))
	require.Equal(t, 1, sink.count(EventAutoTrigger))
	require.Equal(t, 1, sink.count(EventPlayerDied)+sink.count(EventPlayerSurvived))
	require.NotEqual(t, turn, s.CurrentTurn())
}

func TestLeaveDuringOwnTurnRejected(t *testing.T) {
	banker := newFakeBanker()
	sched := scheduler.NewManual()
	s := NewSession(testSessionConfig(banker, sched, nil))
	joinPlayers(t, s, banker, 3)

	require.NoError(t, s.Start())
	sched.Advance(3 * time.Second)

	turn := s.CurrentTurn()
	require.ErrorIs(t, s.RemoveParticipant(turn, false), ErrLeaveDuringTurn)
	require.Equal(t, turn, s.CurrentTurn())
	require.Equal(t, 3, s.AliveCount())
}

func TestVoluntaryLeaveOffTurn(t *testing.T) {
	banker := newFakeBanker()
	sched := scheduler.NewManual()
	sink := &recordingSink{}
	s := NewSession(testSessionConfig(banker, sched, sink))
	ids := joinPlayers(t, s, banker, 3)

	require.NoError(t, s.Start())
	sched.Advance(3 * time.Second)

	turn := s.CurrentTurn()
	var leaver string
	for _, id := range ids {
		if id != turn {
			leaver = id
			break
		}
	}

	require.NoError(t, s.RemoveParticipant(leaver, false))
	require.Equal(t, 2, s.AliveCount())
	require.Equal(t, turn, s.CurrentTurn())
	require.Equal(t, 0, sink.count(EventPlayerDied))
	require.Equal(t, 1, sink.count(EventPlayerLeft))
}

func TestForcedLeaveDuringTurnAdvances(t *testing.T) {
	banker := newFakeBanker()
	sched := scheduler.NewManual()
	sink := &recordingSink{}
	s := NewSession(testSessionConfig(banker, sched, sink))
	joinPlayers(t, s, banker, 4)

	require.NoError(t, s.Start())
	sched.Advance(3 * time.Second)

	turn := s.CurrentTurn()
	require.NoError(t, s.RemoveParticipant(turn, true))

	// No death outcome was played, and the next participant acts
	// immediately with no advance delay.
	require.Equal(t, StateActive, s.State())
	require.Equal(t, 3, s.AliveCount())
	require.NotEmpty(t, s.CurrentTurn())
	require.NotEqual(t, turn, s.CurrentTurn())
	require.Equal(t, 0, sink.count(EventPlayerDied))
	require.Equal(t, 0, sink.count(EventPlayerSurvived))
	require.Equal(t, 1, sink.count(EventDisconnected))
}

func TestForcedLeaveLeavesWinner(t *testing.T) {
	banker := newFakeBanker()
	sched := scheduler.NewManual()
	sink := &recordingSink{}
	s := NewSession(testSessionConfig(banker, sched, sink))
	ids := joinPlayers(t, s, banker, 2)

	require.NoError(t, s.Start())
	sched.Advance(3 * time.Second)

	turn := s.CurrentTurn()
	require.NoError(t, s.RemoveParticipant(turn, true))

	require.Equal(t, StateConcluded, s.State())
	require.Equal(t, 1, sink.count(EventWinner))

	// Pot of 200 at a 0.1 cut pays 180 to the survivor; the leaver's
	// contribution stays in the pot.
	for _, id := range ids {
		if id == turn {
			require.EqualValues(t, 900, banker.balance(id))
		} else {
			require.EqualValues(t, 1080, banker.balance(id))
		}
	}
}

func TestForceEndRefunds(t *testing.T) {
	banker := newFakeBanker()
	sched := scheduler.NewManual()
	sink := &recordingSink{}
	s := NewSession(testSessionConfig(banker, sched, sink))
	ids := joinPlayers(t, s, banker, 3)

	require.NoError(t, s.Start())
	sched.Advance(3 * time.Second)

	s.ForceEnd()
	require.Equal(t, StateConcluded, s.State())
	require.Equal(t, 1, sink.count(EventPotRefunded))
	for _, id := range ids {
		require.EqualValues(t, 1000, banker.balance(id), "balance of %s", id)
	}

	// Idempotent.
	s.ForceEnd()
	require.Equal(t, 1, sink.count(EventForceEnded))
}

func TestForceEndWithoutRefund(t *testing.T) {
	banker := newFakeBanker()
	sched := scheduler.NewManual()
	cfg := testSessionConfig(banker, sched, nil)
	cfg.RefundOnCancel = false
	s := NewSession(cfg)
	ids := joinPlayers(t, s, banker, 2)

	s.ForceEnd()
	for _, id := range ids {
		require.EqualValues(t, 900, banker.balance(id))
	}
}

func TestStaleTimersAfterConclusion(t *testing.T) {
	banker := newFakeBanker()
	sched := scheduler.NewManual()
	sink := &recordingSink{}
	s := NewSession(testSessionConfig(banker, sched, sink))
	joinPlayers(t, s, banker, 3)

	require.NoError(t, s.Start())
	sched.Advance(3 * time.Second)
	s.ForceEnd()

	before := sink.count(EventTurnWarning) + sink.count(EventAutoTrigger)
	sched.Advance(time.Minute)
	after := sink.count(EventTurnWarning) + sink.count(EventAutoTrigger)
	require.Equal(t, before, after, "timer fired into a concluded session")
	require.Equal(t, StateConcluded, s.State())
}

func TestConcludeHookRuns(t *testing.T) {
	banker := newFakeBanker()
	sched := scheduler.NewManual()
	s := NewSession(testSessionConfig(banker, sched, nil))

	var hookSession string
	var hookIDs []string
	s.SetConcludeHook(func(sessionID string, participantIDs []string) {
		hookSession = sessionID
		hookIDs = participantIDs
	})

	joinPlayers(t, s, banker, 2)
	s.ForceEnd()

	require.Equal(t, "sess-1", hookSession)
	require.Len(t, hookIDs, 2)
}

func TestSnapshotReflectsState(t *testing.T) {
	banker := newFakeBanker()
	sched := scheduler.NewManual()
	s := NewSession(testSessionConfig(banker, sched, nil))
	joinPlayers(t, s, banker, 3)

	snap := s.Snapshot()
	require.Equal(t, StateForming, snap.State)
	require.Len(t, snap.Participants, 3)
	require.EqualValues(t, 300, snap.PotValue)
	require.Equal(t, 1, snap.BulletsRemaining) // classic mode

	require.NoError(t, s.Start())
	sched.Advance(3 * time.Second)

	snap = s.Snapshot()
	require.Equal(t, StateActive, snap.State)
	require.Len(t, snap.TurnOrder, 3)
	require.Equal(t, snap.TurnOrder[0], snap.CurrentTurn)
}
