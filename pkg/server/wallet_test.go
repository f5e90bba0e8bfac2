package server

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sixchambers/roulette/pkg/roulette"
	"github.com/sixchambers/roulette/pkg/server/internal/db"
)

func newTestDatabase(t *testing.T) Database {
	t.Helper()
	database, err := NewDatabase(filepath.Join(t.TempDir(), "roulette.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func TestWalletBankerMoney(t *testing.T) {
	database := newTestDatabase(t)
	banker := NewWalletBanker(database, nil)

	// An unknown player has nothing to wager.
	err := banker.TryWithdraw("alice", roulette.Wager{Amount: 100})
	assert.ErrorIs(t, err, roulette.ErrInsufficientFunds)

	require.NoError(t, database.UpdatePlayerBalance("alice", 150, "credit", "test"))

	require.NoError(t, banker.TryWithdraw("alice", roulette.Wager{Amount: 100}))
	balance, err := database.GetPlayerBalance("alice")
	require.NoError(t, err)
	assert.EqualValues(t, 50, balance)

	// Below balance now.
	err = banker.TryWithdraw("alice", roulette.Wager{Amount: 100})
	assert.ErrorIs(t, err, roulette.ErrInsufficientFunds)
	balance, err = database.GetPlayerBalance("alice")
	require.NoError(t, err)
	assert.EqualValues(t, 50, balance, "failed withdrawal must not mutate")

	require.NoError(t, banker.Deposit("alice", 25))
	balance, err = database.GetPlayerBalance("alice")
	require.NoError(t, err)
	assert.EqualValues(t, 75, balance)
}

func TestWalletBankerItems(t *testing.T) {
	database := newTestDatabase(t)
	banker := NewWalletBanker(database, nil)

	gold := roulette.ItemStack{Kind: "gold_ingot", Quantity: 4, UnitValue: 50}
	require.NoError(t, banker.DropOrGive("bob", []roulette.ItemStack{gold}))

	require.NoError(t, banker.TryWithdraw("bob", roulette.Wager{
		Items: []roulette.ItemStack{{Kind: "gold_ingot", Quantity: 3, UnitValue: 50}},
	}))

	inv, err := database.GetInventory("bob")
	require.NoError(t, err)
	require.Len(t, inv, 1)
	assert.Equal(t, db.Item{Kind: "gold_ingot", Quantity: 1, UnitValue: 50}, inv[0])

	// Withdrawing more than held fails without touching the inventory.
	err = banker.TryWithdraw("bob", roulette.Wager{
		Items: []roulette.ItemStack{{Kind: "gold_ingot", Quantity: 2, UnitValue: 50}},
	})
	assert.ErrorIs(t, err, roulette.ErrInsufficientItems)

	inv, err = database.GetInventory("bob")
	require.NoError(t, err)
	require.Len(t, inv, 1)
	assert.Equal(t, 1, inv[0].Quantity)
}

func TestWalletBankerMixedWagerAtomic(t *testing.T) {
	database := newTestDatabase(t)
	banker := NewWalletBanker(database, nil)

	require.NoError(t, database.UpdatePlayerBalance("carol", 100, "credit", "test"))

	// Money is covered, items are not: the whole wager fails and the
	// balance is untouched.
	err := banker.TryWithdraw("carol", roulette.Wager{
		Amount: 50,
		Items:  []roulette.ItemStack{{Kind: "diamond", Quantity: 1, UnitValue: 500}},
	})
	assert.ErrorIs(t, err, roulette.ErrInsufficientItems)

	balance, err := database.GetPlayerBalance("carol")
	require.NoError(t, err)
	assert.EqualValues(t, 100, balance)
}

func TestDatabaseTransactionJournal(t *testing.T) {
	database := newTestDatabase(t)

	require.NoError(t, database.UpdatePlayerBalance("dave", 100, "credit", "seed"))
	require.NoError(t, database.UpdatePlayerBalance("dave", -40, "wager", "session wager"))
	require.NoError(t, database.UpdatePlayerBalance("dave", 90, "payout", "session payout"))

	balance, err := database.GetPlayerBalance("dave")
	require.NoError(t, err)
	assert.EqualValues(t, 150, balance)
}
