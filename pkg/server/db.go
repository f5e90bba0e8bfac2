package server

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sixchambers/roulette/pkg/server/internal/db"
)

// Database defines the interface for wallet store operations.
type Database interface {
	// GetPlayerBalance returns the current balance of a player
	GetPlayerBalance(playerID string) (int64, error)
	// UpdatePlayerBalance updates a player's balance and records the transaction
	UpdatePlayerBalance(playerID string, amount int64, transactionType, description string) error

	// Item inventory
	AddItems(playerID string, items []db.Item) error
	TakeItems(playerID string, items []db.Item) error
	GetInventory(playerID string) ([]db.Item, error)

	// Close closes the database connection
	Close() error
}

// NewDatabase creates a new database connection
func NewDatabase(dbPath string) (Database, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %v", err)
	}

	return db.NewDB(dbPath)
}
