// Package statemachine implements a minimal function-pointer state machine
// following Rob Pike's lexer pattern: each state is a function that receives
// the owning entity and returns the next state function, or nil to terminate.
package statemachine

import (
	"sync"
)

// StateFn is a state in the machine. Returning nil terminates the machine.
type StateFn[T any] func(*T) StateFn[T]

// Machine drives an entity through StateFn transitions. It is safe for
// concurrent use, though callers typically serialize Dispatch through their
// own entity lock.
type Machine[T any] struct {
	entity *T
	state  StateFn[T]
	mu     sync.RWMutex
}

// New creates a machine for entity starting at initial.
func New[T any](entity *T, initial StateFn[T]) *Machine[T] {
	return &Machine[T]{
		entity: entity,
		state:  initial,
	}
}

// Dispatch sets state as the current state, runs it once, and stores the
// state it returns.
func (m *Machine[T]) Dispatch(state StateFn[T]) {
	m.mu.Lock()
	m.state = state
	m.mu.Unlock()

	if state == nil {
		return
	}

	next := state(m.entity)

	m.mu.Lock()
	m.state = next
	m.mu.Unlock()
}

// Current returns the current state function.
func (m *Machine[T]) Current() StateFn[T] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Terminated reports whether the machine has reached the nil state.
func (m *Machine[T]) Terminated() bool {
	return m.Current() == nil
}
