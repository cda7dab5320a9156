package core

import (
	"errors"
	"fmt"

	"expense-ledger/internal/auth"
	"expense-ledger/internal/models"
	"expense-ledger/internal/storage"

	"go.uber.org/zap"
)

var (
	ErrAuthFailure       = errors.New("invalid username or password")
	ErrInvalidAmount     = errors.New("amount is not a valid number")
	ErrDuplicateUsername = storage.ErrDuplicateUsername
)

// dummyHash is compared against when the username is unknown, so a failed
// login costs one bcrypt comparison either way.
const dummyHash = "$2a$10$1MZHKX./8Dxi9t.F1/gnx.njCcEty299Hx01GLEms2moa3brpT0ky"

// Tracker is the entry point for everything the web layer and the CLI do
// with accounts and expenses.
type Tracker struct {
	logs  *zap.SugaredLogger
	store Storage
}

// NewTracker is a constructor function for the Tracker type.
func NewTracker(logger *zap.SugaredLogger, store Storage) *Tracker {
	return &Tracker{logs: logger, store: store}
}

// RegisterAccount creates an account. Presence of username and password is
// checked by the caller.
func (t *Tracker) RegisterAccount(username, password string) (*models.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := t.store.CreateUser(username, hash)
	if err != nil {
		return nil, fmt.Errorf("register account: %w", err)
	}

	t.logs.Infow("account registered", "user_id", user.ID)
	return user, nil
}

// Authenticate returns the account matching username and password. An
// unknown username and a wrong password both yield ErrAuthFailure.
func (t *Tracker) Authenticate(username, password string) (*models.User, error) {
	user, err := t.store.GetUserByUsername(username)
	if err != nil {
		if !errors.Is(err, storage.ErrUserNotFound) {
			return nil, fmt.Errorf("get user by username: %w", err)
		}
		auth.CheckPassword(password, dummyHash)
		return nil, ErrAuthFailure
	}

	if !auth.CheckPassword(password, user.PasswordHash) {
		return nil, ErrAuthFailure
	}
	return user, nil
}

// RestoreIdentity looks up the account behind a session. It returns nil
// and no error when the account no longer exists.
func (t *Tracker) RestoreIdentity(userID int64) (*models.User, error) {
	user, err := t.store.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

// AddExpense records an expense for ownerID. The amount must parse as a
// signed decimal; nothing is stored otherwise. The date is stored as given.
func (t *Tracker) AddExpense(ownerID int64, date, amount, category, description string) (*models.Expense, error) {
	value, err := ParseAmount(amount)
	if err != nil {
		return nil, err
	}

	e, err := t.store.CreateExpense(models.Expense{
		UserID:      ownerID,
		Date:        date,
		Amount:      value,
		Category:    NormalizeCategory(category),
		Description: NormalizeDescription(description),
	})
	if err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}

	t.logs.Debugw("expense added", "user_id", ownerID, "expense_id", e.ID)
	return e, nil
}

// ListExpenses returns ownerID's expenses, newest date first.
func (t *Tracker) ListExpenses(ownerID int64) ([]models.Expense, error) {
	expenses, err := t.store.ListExpensesByUser(ownerID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

// RemoveExpense deletes expenseID if ownerID owns it and reports whether
// anything was deleted.
func (t *Tracker) RemoveExpense(ownerID, expenseID int64) (bool, error) {
	deleted, err := t.store.DeleteExpenseByUser(ownerID, expenseID)
	if err != nil {
		return false, fmt.Errorf("delete expense: %w", err)
	}
	if deleted {
		t.logs.Debugw("expense removed", "user_id", ownerID, "expense_id", expenseID)
	}
	return deleted, nil
}

// ComputeSummary totals expenses by category. See Summarize.
func (t *Tracker) ComputeSummary(expenses []models.Expense) Summary {
	return Summarize(expenses)
}
