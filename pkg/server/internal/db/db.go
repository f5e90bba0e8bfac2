// Package db implements the sqlite store behind the wallet: player
// balances, a transaction journal, and the item inventory.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Item is one inventory line: a kind, a quantity and a unit value.
type Item struct {
	Kind      string
	Quantity  int
	UnitValue int64
}

// DB represents the database connection
type DB struct {
	*sql.DB
}

// NewDB creates a new database connection
func NewDB(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// createTables creates the necessary database tables
func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS players (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			balance INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			player_id TEXT NOT NULL,
			amount INTEGER NOT NULL,
			type TEXT NOT NULL,
			description TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (player_id) REFERENCES players(id)
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS inventory (
			player_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			unit_value INTEGER NOT NULL,
			PRIMARY KEY (player_id, kind)
		)
	`)
	return err
}

// GetPlayerBalance returns the current balance of a player. An unknown
// player has a zero balance.
func (db *DB) GetPlayerBalance(playerID string) (int64, error) {
	var balance int64
	err := db.QueryRow("SELECT balance FROM players WHERE id = ?", playerID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get player balance: %v", err)
	}
	return balance, nil
}

// UpdatePlayerBalance updates a player's balance and records the transaction
func (db *DB) UpdatePlayerBalance(playerID string, amount int64, transactionType, description string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO players (id, name, balance)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET balance = balance + ?
	`, playerID, playerID, amount, amount)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO transactions (player_id, amount, type, description)
		VALUES (?, ?, ?, ?)
	`, playerID, amount, transactionType, description)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// AddItems credits the given item stacks to the player's inventory.
func (db *DB) AddItems(playerID string, items []Item) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, item := range items {
		_, err = tx.Exec(`
			INSERT INTO inventory (player_id, kind, quantity, unit_value)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(player_id, kind) DO UPDATE SET quantity = quantity + ?
		`, playerID, item.Kind, item.Quantity, item.UnitValue, item.Quantity)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// TakeItems removes the given item stacks from the player's inventory. The
// whole operation fails without mutation when any stack cannot be covered.
func (db *DB) TakeItems(playerID string, items []Item) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, item := range items {
		var have int
		err := tx.QueryRow(
			"SELECT quantity FROM inventory WHERE player_id = ? AND kind = ?",
			playerID, item.Kind,
		).Scan(&have)
		if err == sql.ErrNoRows {
			have = 0
		} else if err != nil {
			return err
		}

		if have < item.Quantity {
			return fmt.Errorf("insufficient %s: have %d, need %d", item.Kind, have, item.Quantity)
		}

		if have == item.Quantity {
			_, err = tx.Exec(
				"DELETE FROM inventory WHERE player_id = ? AND kind = ?",
				playerID, item.Kind,
			)
		} else {
			_, err = tx.Exec(
				"UPDATE inventory SET quantity = quantity - ? WHERE player_id = ? AND kind = ?",
				item.Quantity, playerID, item.Kind,
			)
		}
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetInventory returns the player's inventory lines.
func (db *DB) GetInventory(playerID string) ([]Item, error) {
	rows, err := db.Query(
		"SELECT kind, quantity, unit_value FROM inventory WHERE player_id = ?",
		playerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.Kind, &item.Quantity, &item.UnitValue); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
