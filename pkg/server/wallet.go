package server

import (
	"github.com/decred/slog"

	"github.com/sixchambers/roulette/pkg/roulette"
	"github.com/sixchambers/roulette/pkg/server/internal/db"
)

// walletBanker implements the currency/item service over the sqlite wallet
// store. Every withdrawal is checked and journaled; the ledger never sees a
// contribution the wallet didn't cover.
type walletBanker struct {
	db  Database
	log slog.Logger
}

// NewWalletBanker returns a Banker backed by the wallet database.
func NewWalletBanker(database Database, log slog.Logger) roulette.Banker {
	if log == nil {
		log = slog.Disabled
	}
	return &walletBanker{db: database, log: log}
}

func toDBItems(items []roulette.ItemStack) []db.Item {
	out := make([]db.Item, 0, len(items))
	for _, s := range items {
		out = append(out, db.Item{Kind: s.Kind, Quantity: s.Quantity, UnitValue: s.UnitValue})
	}
	return out
}

// TryWithdraw takes the wager from the player, or fails without mutation.
func (b *walletBanker) TryWithdraw(participantID string, wager roulette.Wager) error {
	if wager.Amount > 0 {
		balance, err := b.db.GetPlayerBalance(participantID)
		if err != nil {
			b.log.Errorf("wallet: balance lookup for %s failed: %v", participantID, err)
			return roulette.ErrInsufficientFunds
		}
		if balance < wager.Amount {
			return roulette.ErrInsufficientFunds
		}
	}

	if len(wager.Items) > 0 {
		if err := b.db.TakeItems(participantID, toDBItems(wager.Items)); err != nil {
			b.log.Debugf("wallet: item withdrawal from %s failed: %v", participantID, err)
			return roulette.ErrInsufficientItems
		}
	}

	if wager.Amount > 0 {
		if err := b.db.UpdatePlayerBalance(participantID, -wager.Amount, "wager", "session wager"); err != nil {
			// Roll the items back so a failed money leg doesn't strand them.
			if len(wager.Items) > 0 {
				_ = b.db.AddItems(participantID, toDBItems(wager.Items))
			}
			return err
		}
	}

	return nil
}

// Deposit credits a money amount to the player.
func (b *walletBanker) Deposit(participantID string, amount int64) error {
	return b.db.UpdatePlayerBalance(participantID, amount, "payout", "session payout")
}

// DropOrGive delivers item stacks to the player's inventory.
func (b *walletBanker) DropOrGive(participantID string, items []roulette.ItemStack) error {
	return b.db.AddItems(participantID, toDBItems(items))
}
