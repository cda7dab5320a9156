package storage

import (
	"slices"
	"strconv"
	"strings"

	"expense-ledger/internal/models"

	"github.com/shopspring/decimal"
)

type expenseRow struct {
	models.Expense
	raw Row
}

func decodeExpenses(tx *Tx) ([]expenseRow, error) {
	rows, err := tx.LoadAll()
	if err != nil {
		return nil, err
	}

	expenses := make([]expenseRow, 0, len(rows))
	for i, row := range rows {
		corrupt := func(col int, err error) error {
			return &CorruptDataError{Table: tx.t.name, Line: i + 2, Column: ExpenseColumns[col], Err: err}
		}

		id, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, corrupt(0, err)
		}
		userID, err := strconv.ParseInt(row[1], 10, 64)
		if err != nil {
			return nil, corrupt(1, err)
		}
		amount, err := decimal.NewFromString(row[3])
		if err != nil {
			return nil, corrupt(3, err)
		}

		expenses = append(expenses, expenseRow{
			Expense: models.Expense{
				ID:          id,
				UserID:      userID,
				Date:        row[2],
				Amount:      amount,
				Category:    row[4],
				Description: row[5],
			},
			raw: row,
		})
	}
	return expenses, nil
}

func encodeExpense(e *models.Expense) Row {
	return Row{
		strconv.FormatInt(e.ID, 10),
		strconv.FormatInt(e.UserID, 10),
		e.Date,
		e.Amount.String(),
		e.Category,
		e.Description,
	}
}

// CreateExpense assigns the next expense id to e and appends it. The
// sequence is re-seeded from the rows on disk first, so rows appended by
// another process holding the same data directory are not collided with.
// The caller is responsible for normalizing the fields.
func (db *DB) CreateExpense(e models.Expense) (*models.Expense, error) {
	err := db.expenses.Write(func(tx *Tx) error {
		rows, err := decodeExpenses(tx)
		if err != nil {
			return err
		}
		for _, r := range rows {
			db.expenseSeq.Seed(r.ID)
		}

		e.ID = db.expenseSeq.Next()
		return tx.AppendOne(encodeExpense(&e))
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListExpensesByUser retrieves the expenses owned by userID, newest date
// first. Expenses sharing a date keep their file order.
func (db *DB) ListExpensesByUser(userID int64) ([]models.Expense, error) {
	rows, err := db.loadExpenses()
	if err != nil {
		return nil, err
	}

	expenses := make([]models.Expense, 0)
	for _, r := range rows {
		if r.UserID == userID {
			expenses = append(expenses, r.Expense)
		}
	}
	slices.SortStableFunc(expenses, func(a, b models.Expense) int {
		return strings.Compare(b.Date, a.Date)
	})
	return expenses, nil
}

// DeleteExpenseByUser removes the expense with the given id if it is owned
// by userID. It reports false when no such expense exists, without telling
// apart a missing id from one owned by someone else. Other rows are written
// back exactly as they were read.
func (db *DB) DeleteExpenseByUser(userID, id int64) (bool, error) {
	var deleted bool
	err := db.expenses.Write(func(tx *Tx) error {
		rows, err := decodeExpenses(tx)
		if err != nil {
			return err
		}

		idx := slices.IndexFunc(rows, func(r expenseRow) bool {
			return r.ID == id && r.UserID == userID
		})
		if idx < 0 {
			return nil
		}

		keep := make([]Row, 0, len(rows)-1)
		for i, r := range rows {
			if i != idx {
				keep = append(keep, r.raw)
			}
		}
		if err := tx.RewriteAll(keep); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	return deleted, err
}
