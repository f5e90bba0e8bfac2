package roulette

import (
	"sync"

	"github.com/decred/slog"
	"github.com/google/uuid"
)

// RegistryConfig holds configuration for a session registry.
type RegistryConfig struct {
	Log slog.Logger

	// AllowMultiple permits more than one live session at a time.
	AllowMultiple bool
}

// Registry tracks all live sessions and the single active session per
// participant. Its two mappings are the only cross-session shared state;
// one lock makes "not already in a session" and "insert into session"
// atomic, so a participant can never end up in two sessions.
type Registry struct {
	log slog.Logger
	cfg RegistryConfig

	mu             sync.Mutex
	sessions       map[string]*Session
	playerSessions map[string]string // participant id -> session id
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Log == nil {
		cfg.Log = slog.Disabled
	}
	return &Registry{
		log:            cfg.Log,
		cfg:            cfg,
		sessions:       make(map[string]*Session),
		playerSessions: make(map[string]string),
	}
}

// CreateSession creates and registers a new session. It fails when
// concurrent sessions are disallowed and one already exists.
func (r *Registry) CreateSession(cfg SessionConfig) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.cfg.AllowMultiple && len(r.sessions) > 0 {
		return nil, ErrSessionExists
	}

	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}

	s := NewSession(cfg)
	s.SetConcludeHook(r.purgeSession)
	r.sessions[s.ID()] = s

	r.log.Infof("registry: created session %s (mode=%s)", s.ID(), cfg.Mode)
	return s, nil
}

// purgeSession removes a concluded session and every participant mapping
// that still points at it. Runs outside any session lock.
func (r *Registry) purgeSession(sessionID string, participantIDs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, sessionID)
	for _, id := range participantIDs {
		if r.playerSessions[id] == sessionID {
			delete(r.playerSessions, id)
		}
	}
	r.log.Debugf("registry: purged session %s (%d participants)", sessionID, len(participantIDs))
}

// Join adds a participant to a session. The already-in-a-session check and
// the insertion happen under one lock; a failed wager fails the join
// atomically with no partial state.
func (r *Registry) Join(participantID, name, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, inSession := r.playerSessions[participantID]; inSession {
		return ErrAlreadyInSession
	}

	s, ok := r.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}

	if err := s.AddParticipant(participantID, name); err != nil {
		return err
	}

	r.playerSessions[participantID] = sessionID
	return nil
}

// Leave removes a participant from their current session, delegating the
// leave rules (no voluntary leave during your own turn, forced departures
// always honored) to the session.
func (r *Registry) Leave(participantID string, forced bool) error {
	r.mu.Lock()
	sessionID, ok := r.playerSessions[participantID]
	if !ok {
		r.mu.Unlock()
		return ErrNotInSession
	}
	s := r.sessions[sessionID]
	r.mu.Unlock()

	if s == nil {
		// Session already purged; drop the stale mapping.
		r.mu.Lock()
		delete(r.playerSessions, participantID)
		r.mu.Unlock()
		return ErrNotInSession
	}

	// The session may conclude inside RemoveParticipant and call back into
	// purgeSession, so the registry lock is not held across this call.
	if err := s.RemoveParticipant(participantID, forced); err != nil {
		return err
	}

	r.mu.Lock()
	if r.playerSessions[participantID] == sessionID {
		delete(r.playerSessions, participantID)
	}
	r.mu.Unlock()
	return nil
}

// Session returns the session with the given id, or nil.
func (r *Registry) Session(sessionID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[sessionID]
}

// SessionFor returns the session the participant is in, or nil.
func (r *Registry) SessionFor(participantID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	sessionID, ok := r.playerSessions[participantID]
	if !ok {
		return nil
	}
	return r.sessions[sessionID]
}

// WaitingSession returns a session still accepting joins, or nil.
func (r *Registry) WaitingSession() *Session {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		if s.State() == StateForming {
			return s
		}
	}
	return nil
}

// Sessions returns all live sessions.
func (r *Registry) Sessions() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// EndAll force-terminates every live session, refunding pots per session
// configuration, and leaves the registry empty. Used for shutdown.
func (r *Registry) EndAll() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.ForceEnd()
	}

	// ForceEnd purges through the conclude hook; clear defensively in case
	// a session was concluded without ever registering one.
	r.mu.Lock()
	r.sessions = make(map[string]*Session)
	r.playerSessions = make(map[string]string)
	r.mu.Unlock()

	r.log.Infof("registry: all sessions ended")
}
