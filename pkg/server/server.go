// Package server ties the game engine to its surroundings: the sqlite
// wallet, the logging backend, the session registry and the event pipeline.
package server

import (
	"sync"

	"github.com/decred/slog"

	"github.com/sixchambers/roulette/pkg/logging"
	"github.com/sixchambers/roulette/pkg/roulette"
	"github.com/sixchambers/roulette/pkg/scheduler"
)

// Options overrides server collaborators, mainly for tests and embedders.
// Any nil field gets the production default.
type Options struct {
	LogBackend   *logging.LogBackend
	DB           Database
	Presentation roulette.PresentationSink
	Placement    roulette.ScenePlacement
	HUD          roulette.HUDSink
	Sched        scheduler.Scheduler
}

// Server coordinates sessions, the wallet and event logging.
type Server struct {
	log        slog.Logger
	logBackend *logging.LogBackend
	cfg        *Config

	db       Database
	banker   roulette.Banker
	registry *roulette.Registry

	pres      roulette.PresentationSink
	placement roulette.ScenePlacement
	hud       roulette.HUDSink
	sched     scheduler.Scheduler

	events chan roulette.SessionEvent
	quit   chan struct{}
	wg     sync.WaitGroup

	closeOnce sync.Once
}

// NewServer creates a server from the given config. opts may be nil.
func NewServer(cfg *Config, opts *Options) (*Server, error) {
	if opts == nil {
		opts = &Options{}
	}

	lb := opts.LogBackend
	if lb == nil {
		var err error
		lb, err = logging.NewLogBackend(cfg.LogFile(), cfg.DebugLevel)
		if err != nil {
			return nil, err
		}
	}

	database := opts.DB
	if database == nil {
		var err error
		database, err = NewDatabase(cfg.DBPath())
		if err != nil {
			return nil, err
		}
	}

	s := &Server{
		log:        lb.Logger("SRVR"),
		logBackend: lb,
		cfg:        cfg,
		db:         database,
		banker:     NewWalletBanker(database, lb.Logger("BANK")),
		pres:       opts.Presentation,
		placement:  opts.Placement,
		hud:        opts.HUD,
		sched:      opts.Sched,
		events:     make(chan roulette.SessionEvent, 256),
		quit:       make(chan struct{}),
	}
	if s.pres == nil {
		s.pres = newLogPresentation(lb.Logger("MSGS"))
	}

	s.registry = roulette.NewRegistry(roulette.RegistryConfig{
		Log:           lb.Logger("RGST"),
		AllowMultiple: cfg.AllowMultipleSessions,
	})

	s.wg.Add(1)
	go s.eventLoop()

	s.log.Infof("server ready (mode=%s, bet=%d, house cut=%.2f)",
		cfg.Mode, cfg.BetAmount, cfg.HouseCut)
	return s, nil
}

// sessionConfig builds the per-session configuration from the server config.
func (s *Server) sessionConfig() roulette.SessionConfig {
	return roulette.SessionConfig{
		Log:                s.logBackend.Logger("GAME"),
		Mode:               s.cfg.Mode,
		MinPlayers:         s.cfg.MinPlayers,
		MaxPlayers:         s.cfg.MaxPlayers,
		Wager:              roulette.Wager{Amount: s.cfg.BetAmount},
		HouseCut:           s.cfg.HouseCut,
		StartCountdown:     s.cfg.StartCountdown(),
		TurnTime:           s.cfg.TurnTime(),
		TurnAdvanceDelay:   s.cfg.TurnAdvanceDelay(),
		ReshuffleAfterShot: s.cfg.ReshuffleAfterShot,
		RefundOnCancel:     s.cfg.RefundOnCancel,
		Banker:             s.banker,
		Presentation:       s.pres,
		Placement:          s.placement,
		HUD:                s.hud,
		Sched:              s.sched,
	}
}

// CreateSession creates a new session with the host as its first
// participant. The host's wager is taken by the join; a failed join tears
// the empty session down again.
func (s *Server) CreateSession(hostID, hostName string) (string, error) {
	sess, err := s.registry.CreateSession(s.sessionConfig())
	if err != nil {
		return "", err
	}
	sess.SetEventChannel(s.events)

	if err := s.registry.Join(hostID, hostName, sess.ID()); err != nil {
		sess.ForceEnd()
		return "", err
	}
	return sess.ID(), nil
}

// Join adds a player to a session, taking their wager.
func (s *Server) Join(playerID, name, sessionID string) error {
	return s.registry.Join(playerID, name, sessionID)
}

// Leave removes a player from their session. forced marks an involuntary
// departure (disconnect), which is honored even during the player's turn.
func (s *Server) Leave(playerID string, forced bool) error {
	return s.registry.Leave(playerID, forced)
}

// StartSession requests the countdown for a session.
func (s *Server) StartSession(sessionID string) error {
	sess := s.registry.Session(sessionID)
	if sess == nil {
		return roulette.ErrSessionNotFound
	}
	return sess.Start()
}

// PullTrigger fires the revolver for the given player in their session.
func (s *Server) PullTrigger(playerID string) (roulette.Outcome, error) {
	sess := s.registry.SessionFor(playerID)
	if sess == nil {
		return roulette.OutcomeMiss, roulette.ErrNotInSession
	}
	return sess.PullTrigger(playerID)
}

// SessionSnapshot returns a point-in-time view of a session.
func (s *Server) SessionSnapshot(sessionID string) (roulette.SessionSnapshot, error) {
	sess := s.registry.Session(sessionID)
	if sess == nil {
		return roulette.SessionSnapshot{}, roulette.ErrSessionNotFound
	}
	return sess.Snapshot(), nil
}

// CurrentTurn returns the id of the participant whose action is awaited in
// the session, or empty when no turn is open.
func (s *Server) CurrentTurn(sessionID string) (string, error) {
	sess := s.registry.Session(sessionID)
	if sess == nil {
		return "", roulette.ErrSessionNotFound
	}
	return sess.CurrentTurn(), nil
}

// SessionState returns the lifecycle state of a session.
func (s *Server) SessionState(sessionID string) (roulette.State, error) {
	sess := s.registry.Session(sessionID)
	if sess == nil {
		return "", roulette.ErrSessionNotFound
	}
	return sess.State(), nil
}

// AliveCount returns the number of participants still in the turn order.
func (s *Server) AliveCount(sessionID string) (int, error) {
	sess := s.registry.Session(sessionID)
	if sess == nil {
		return 0, roulette.ErrSessionNotFound
	}
	return sess.AliveCount(), nil
}

// BulletsRemaining returns the live rounds left in the session's revolver.
func (s *Server) BulletsRemaining(sessionID string) (int, error) {
	sess := s.registry.Session(sessionID)
	if sess == nil {
		return 0, roulette.ErrSessionNotFound
	}
	return sess.BulletsRemaining(), nil
}

// PotValue returns the total recorded value of the session's pot.
func (s *Server) PotValue(sessionID string) (int64, error) {
	sess := s.registry.Session(sessionID)
	if sess == nil {
		return 0, roulette.ErrSessionNotFound
	}
	return sess.PotValue(), nil
}

// Sessions returns snapshots of every live session.
func (s *Server) Sessions() []roulette.SessionSnapshot {
	sessions := s.registry.Sessions()
	out := make([]roulette.SessionSnapshot, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sess.Snapshot())
	}
	return out
}

// SessionCount returns the number of live sessions.
func (s *Server) SessionCount() int {
	return s.registry.Count()
}

// Balance returns a player's wallet balance.
func (s *Server) Balance(playerID string) (int64, error) {
	return s.db.GetPlayerBalance(playerID)
}

// Credit adds funds to a player's wallet.
func (s *Server) Credit(playerID string, amount int64) error {
	return s.db.UpdatePlayerBalance(playerID, amount, "credit", "admin credit")
}

// ForceEndAll terminates every live session, refunding pots per
// configuration.
func (s *Server) ForceEndAll() {
	s.registry.EndAll()
}

// Close shuts the server down: ends every session, stops the event loop and
// closes the database and log backend.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.registry.EndAll()
		close(s.quit)
		s.wg.Wait()

		s.log.Infof("server stopped")
		err = s.db.Close()
		if cerr := s.logBackend.Close(); err == nil {
			err = cerr
		}
	})
	return err
}
