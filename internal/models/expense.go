package models

import "github.com/shopspring/decimal"

// DateLayout is the on-disk and form layout of Expense.Date.
const DateLayout = "2006-01-02"

// Expense represents a financial expense record owned by one user.
type Expense struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	Date        string          `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
}

// Identity is what the presentation layer needs to know about a
// logged-in user.
type Identity interface {
	IdentityID() int64
	IdentityName() string
}

// User represents a user account.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}

// IdentityID implements Identity.
func (u *User) IdentityID() int64 { return u.ID }

// IdentityName implements Identity.
func (u *User) IdentityName() string { return u.Username }
