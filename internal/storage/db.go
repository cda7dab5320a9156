package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"expense-ledger/internal/models"
)

const (
	usersFile    = "users.csv"
	expensesFile = "expenses.csv"
)

var (
	// UserColumns is the header of the users table.
	UserColumns = []string{"id", "username", "password_hash"}
	// ExpenseColumns is the header of the expenses table.
	ExpenseColumns = []string{"id", "user_id", "date", "amount", "category", "description"}
)

// DB holds the users and expenses tables of one data directory.
type DB struct {
	dir string

	users    *Table
	expenses *Table

	userSeq    Sequence
	expenseSeq Sequence
}

// NewDB opens the tables under dir, creating the directory and header-only
// tables on first use. Both tables are fully decoded once so that a corrupt
// file is reported before any request is served.
func NewDB(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db := &DB{
		dir:      dir,
		users:    NewTable("users", filepath.Join(dir, usersFile), UserColumns),
		expenses: NewTable("expenses", filepath.Join(dir, expensesFile), ExpenseColumns),
	}

	for _, t := range []*Table{db.users, db.expenses} {
		if err := t.EnsureInitialized(); err != nil {
			return nil, err
		}
	}

	users, err := db.loadUsers()
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		db.userSeq.Seed(u.ID)
	}

	expenses, err := db.loadExpenses()
	if err != nil {
		return nil, err
	}
	for _, e := range expenses {
		db.expenseSeq.Seed(e.ID)
	}

	return db, nil
}

// Dir returns the data directory.
func (db *DB) Dir() string { return db.dir }

// Close releases the database. Every write is synced when it completes,
// so there is nothing to flush.
func (db *DB) Close() error {
	return nil
}

func (db *DB) loadUsers() ([]models.User, error) {
	var users []models.User
	err := db.users.Read(func(tx *Tx) error {
		var err error
		users, err = decodeUsers(tx)
		return err
	})
	return users, err
}

func (db *DB) loadExpenses() ([]expenseRow, error) {
	var expenses []expenseRow
	err := db.expenses.Read(func(tx *Tx) error {
		var err error
		expenses, err = decodeExpenses(tx)
		return err
	})
	return expenses, err
}
