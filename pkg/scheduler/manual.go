package scheduler

import (
	"sort"
	"sync"
	"time"
)

// Manual is a deterministic Scheduler stepped explicitly by the caller.
// Nothing fires until Advance is called, which makes timer-driven session
// behavior fully reproducible in tests.
type Manual struct {
	mu      sync.Mutex
	now     time.Duration
	nextID  int
	entries []*manualEntry
}

type manualEntry struct {
	id        int
	due       time.Duration
	interval  time.Duration // zero for one-shot
	fn        func()
	cancelled bool
	owner     *Manual
}

func (e *manualEntry) Cancel() {
	e.owner.mu.Lock()
	e.cancelled = true
	e.owner.mu.Unlock()
}

// NewManual returns a manually stepped scheduler.
func NewManual() *Manual {
	return &Manual{}
}

// After implements Scheduler.
func (m *Manual) After(d time.Duration, fn func()) CancelToken {
	return m.add(d, 0, fn)
}

// Every implements Scheduler.
func (m *Manual) Every(interval time.Duration, fn func()) CancelToken {
	return m.add(interval, interval, fn)
}

func (m *Manual) add(d, interval time.Duration, fn func()) CancelToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	e := &manualEntry{
		id:       m.nextID,
		due:      m.now + d,
		interval: interval,
		fn:       fn,
		owner:    m,
	}
	m.entries = append(m.entries, e)
	return e
}

// Advance moves the clock forward by d, firing every due callback in order.
// Callbacks run outside the scheduler lock and may register further timers.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	for {
		e := m.nextDue(target)
		if e == nil {
			break
		}
		m.now = e.due
		if e.interval > 0 {
			e.due += e.interval
		} else {
			m.remove(e)
		}
		fn := e.fn
		m.mu.Unlock()
		fn()
		m.mu.Lock()
	}
	m.now = target
	m.mu.Unlock()
}

// Now returns the scheduler's current virtual time.
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// nextDue returns the earliest live entry due at or before target. Ties
// break by registration order. Caller holds the lock.
func (m *Manual) nextDue(target time.Duration) *manualEntry {
	live := m.entries[:0]
	for _, e := range m.entries {
		if !e.cancelled {
			live = append(live, e)
		}
	}
	m.entries = live

	sort.SliceStable(m.entries, func(i, j int) bool {
		if m.entries[i].due != m.entries[j].due {
			return m.entries[i].due < m.entries[j].due
		}
		return m.entries[i].id < m.entries[j].id
	})

	if len(m.entries) == 0 || m.entries[0].due > target {
		return nil
	}
	return m.entries[0]
}

func (m *Manual) remove(target *manualEntry) {
	for i, e := range m.entries {
		if e == target {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return
		}
	}
}
