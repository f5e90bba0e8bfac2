package roulette

import (
	"math/rand"
)

// ChamberCount is the number of chambers in the cylinder.
const ChamberCount = 6

// Revolver models a six-chamber cylinder. The chamber arrangement is frozen
// at shuffle time and the cursor walks it in order, so survival odds are not
// independent per pull: every struck empty chamber raises the conditional
// odds on the next one, until the rounds are spent or the cylinder is
// shuffled again.
type Revolver struct {
	chambers  [ChamberCount]bool
	cursor    int
	loaded    int
	remaining int
	rng       *rand.Rand
}

// NewRevolver creates a revolver loaded with bulletCount rounds, clamped to
// [0, 5] so at least one chamber is always empty, and shuffles the cylinder.
func NewRevolver(bulletCount int, rng *rand.Rand) *Revolver {
	if bulletCount < 0 {
		bulletCount = 0
	}
	if bulletCount > ChamberCount-1 {
		bulletCount = ChamberCount - 1
	}

	r := &Revolver{
		loaded: bulletCount,
		rng:    rng,
	}
	r.Shuffle()
	return r
}

// Shuffle clears the cylinder, places the loaded rounds into distinct
// uniformly random chambers, and spins the cursor to a random position.
func (r *Revolver) Shuffle() {
	for i := range r.chambers {
		r.chambers[i] = false
	}

	for _, pos := range r.rng.Perm(ChamberCount)[:r.loaded] {
		r.chambers[pos] = true
	}

	r.cursor = r.rng.Intn(ChamberCount)
	r.remaining = r.loaded
}

// Fire strikes the chamber under the cursor and advances the cylinder.
// It returns true when a live round fired.
func (r *Revolver) Fire() bool {
	hit := r.chambers[r.cursor]
	if hit {
		r.chambers[r.cursor] = false
		r.remaining--
	}

	r.cursor = (r.cursor + 1) % ChamberCount
	return hit
}

// Remaining returns the number of live rounds not yet fired.
func (r *Revolver) Remaining() int {
	return r.remaining
}

// Loaded returns the number of rounds placed at construction/shuffle time.
func (r *Revolver) Loaded() int {
	return r.loaded
}

// HasLiveRounds reports whether any live rounds remain in the cylinder.
func (r *Revolver) HasLiveRounds() bool {
	return r.remaining > 0
}

// Cursor returns the chamber index to be struck on the next pull.
func (r *Revolver) Cursor() int {
	return r.cursor
}
