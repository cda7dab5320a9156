package core

import "expense-ledger/internal/models"

// Storage is the persistence the Tracker needs. *storage.DB implements it.
type Storage interface {
	CreateUser(username, passwordHash string) (*models.User, error)
	GetUserByID(id int64) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)

	CreateExpense(e models.Expense) (*models.Expense, error)
	ListExpensesByUser(userID int64) ([]models.Expense, error)
	DeleteExpenseByUser(userID, id int64) (bool, error)
}
