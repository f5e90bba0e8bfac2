package roulette

import (
	"fmt"

	"github.com/decred/slog"
)

// ItemStack is an enumerated item contribution: a kind, a quantity and the
// configured unit value used to price it.
type ItemStack struct {
	Kind      string
	Quantity  int
	UnitValue int64
}

// Value returns the stack's total value.
func (s ItemStack) Value() int64 {
	return s.UnitValue * int64(s.Quantity)
}

// Wager is what a participant puts into the pot on join: a money amount, a
// list of item stacks, or both.
type Wager struct {
	Amount int64
	Items  []ItemStack
}

// Value returns the wager's total value.
func (w Wager) Value() int64 {
	total := w.Amount
	for _, s := range w.Items {
		total += s.Value()
	}
	return total
}

// PotLedger tracks a session's wagered value per participant and settles it
// exactly once: to the winner (minus the house cut), back to the
// contributors (refund), or discarded. All value movement goes through the
// Banker; a contribution is recorded only after the withdrawal succeeded.
type PotLedger struct {
	log       slog.Logger
	banker    Banker
	sessionID string
	houseCut  float64

	money   map[string]int64
	items   map[string][]ItemStack
	order   []string // contribution order, for deterministic settlement
	drained bool
}

// NewPotLedger creates an empty ledger for the session.
func NewPotLedger(sessionID string, houseCut float64, banker Banker, log slog.Logger) *PotLedger {
	if log == nil {
		log = slog.Disabled
	}
	return &PotLedger{
		log:       log,
		banker:    banker,
		sessionID: sessionID,
		houseCut:  houseCut,
		money:     make(map[string]int64),
		items:     make(map[string][]ItemStack),
	}
}

// Contribute withdraws the wager from the participant and records it. On
// withdrawal failure nothing is recorded.
func (p *PotLedger) Contribute(participantID string, wager Wager) error {
	if p.drained {
		return fmt.Errorf("pot for session %s already settled", p.sessionID)
	}
	if wager.Amount == 0 && len(wager.Items) == 0 {
		return nil // no betting configured
	}

	if err := p.banker.TryWithdraw(participantID, wager); err != nil {
		return err
	}

	if _, seen := p.money[participantID]; !seen {
		if _, seenItems := p.items[participantID]; !seenItems {
			p.order = append(p.order, participantID)
		}
	}
	if wager.Amount > 0 {
		p.money[participantID] += wager.Amount
	}
	if len(wager.Items) > 0 {
		p.items[participantID] = append(p.items[participantID], wager.Items...)
	}

	p.log.Debugf("pot %s: %s contributed %d (total now %d)",
		p.sessionID, participantID, wager.Value(), p.Total())
	return nil
}

// Total returns the summed value of all recorded contributions.
func (p *PotLedger) Total() int64 {
	var total int64
	for _, amt := range p.money {
		total += amt
	}
	for _, stacks := range p.items {
		for _, s := range stacks {
			total += s.Value()
		}
	}
	return total
}

// Contributors returns the participants with recorded contributions, in
// contribution order.
func (p *PotLedger) Contributors() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Drained reports whether the ledger has been settled, refunded or
// discarded.
func (p *PotLedger) Drained() bool {
	return p.drained
}

// Settle pays the whole pot to the winner: money minus the house cut,
// items transferred in full. Calling Settle on a drained ledger is a no-op.
// It returns the money payout.
func (p *PotLedger) Settle(winnerID string) (int64, error) {
	if p.drained {
		return 0, nil
	}

	var moneyTotal int64
	for _, amt := range p.money {
		moneyTotal += amt
	}

	payout := moneyTotal - int64(float64(moneyTotal)*p.houseCut)
	if payout > 0 {
		if err := p.banker.Deposit(winnerID, payout); err != nil {
			// The winner is unreachable; surface it, don't retry forever.
			p.log.Errorf("pot %s: failed to deliver %d winnings to %s: %v",
				p.sessionID, payout, winnerID, err)
		}
	}

	for _, id := range p.order {
		stacks := p.items[id]
		if len(stacks) == 0 {
			continue
		}
		if err := p.banker.DropOrGive(winnerID, stacks); err != nil {
			p.log.Errorf("pot %s: failed to deliver item winnings to %s: %v",
				p.sessionID, winnerID, err)
		}
	}

	p.drain()
	p.log.Infof("pot %s: settled to %s, payout=%d houseCut=%.2f",
		p.sessionID, winnerID, payout, p.houseCut)
	return payout, nil
}

// Refund returns each participant's own contribution and drains the ledger.
// A recipient that cannot be reached is logged as a delivery failure and
// skipped; the remaining refunds still go out. Refunding a drained ledger
// is a no-op.
func (p *PotLedger) Refund() error {
	if p.drained {
		return nil
	}

	for _, id := range p.order {
		if amt := p.money[id]; amt > 0 {
			if err := p.banker.Deposit(id, amt); err != nil {
				p.log.Warnf("pot %s: refund of %d to %s undeliverable: %v",
					p.sessionID, amt, id, err)
			}
		}
		if stacks := p.items[id]; len(stacks) > 0 {
			if err := p.banker.DropOrGive(id, stacks); err != nil {
				p.log.Warnf("pot %s: item refund to %s undeliverable: %v",
					p.sessionID, id, err)
			}
		}
	}

	p.drain()
	p.log.Infof("pot %s: refunded", p.sessionID)
	return nil
}

// Discard drains the ledger without paying anyone. Used when refunds on
// cancellation are disabled.
func (p *PotLedger) Discard() {
	if p.drained {
		return
	}
	p.drain()
	p.log.Infof("pot %s: discarded", p.sessionID)
}

func (p *PotLedger) drain() {
	p.money = make(map[string]int64)
	p.items = make(map[string][]ItemStack)
	p.order = nil
	p.drained = true
}
