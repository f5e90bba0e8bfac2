package roulette

import "errors"

// Precondition failures are reported synchronously to the caller and never
// mutate state; the caller may retry once the precondition holds.
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionExists    = errors.New("another session is already running")
	ErrAlreadyInSession = errors.New("participant is already in a session")
	ErrAlreadyJoined    = errors.New("participant already joined this session")
	ErrSessionFull      = errors.New("session is full")
	ErrSessionStarted   = errors.New("session no longer accepts joins")
	ErrSessionNotActive = errors.New("session is not active")
	ErrNotEnoughPlayers = errors.New("not enough participants to start")
	ErrNotYourTurn      = errors.New("not your turn to act")
	ErrLeaveDuringTurn  = errors.New("cannot leave during your own turn")
	ErrNotInSession     = errors.New("participant is not in this session")

	// Wager failures from the currency/item service.
	ErrInsufficientFunds = errors.New("insufficient funds for wager")
	ErrInsufficientItems = errors.New("insufficient item value for wager")
)
