package core

import (
	"slices"
	"strings"

	"expense-ledger/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CategoryTotal is one line of a spending breakdown.
type CategoryTotal struct {
	Category   string
	Subtotal   decimal.Decimal
	Percentage decimal.Decimal
}

// Summary is the total spend of a set of expenses and its split by category.
type Summary struct {
	Total      decimal.Decimal
	Categories []CategoryTotal
}

// Summarize totals expenses and groups them by normalized category, largest
// subtotal first and ties by category name. Percentages are exact to the
// decimal division precision; rounding is left to the caller. When the
// total is zero every percentage is zero.
func Summarize(expenses []models.Expense) Summary {
	s := Summary{Total: decimal.Zero, Categories: []CategoryTotal{}}
	if len(expenses) == 0 {
		return s
	}

	subtotals := make(map[string]decimal.Decimal)
	for _, e := range expenses {
		cat := NormalizeCategory(e.Category)
		subtotals[cat] = subtotals[cat].Add(e.Amount)
		s.Total = s.Total.Add(e.Amount)
	}

	for cat, sub := range subtotals {
		pct := decimal.Zero
		if !s.Total.IsZero() {
			pct = sub.Div(s.Total).Mul(hundred)
		}
		s.Categories = append(s.Categories, CategoryTotal{Category: cat, Subtotal: sub, Percentage: pct})
	}

	slices.SortFunc(s.Categories, func(a, b CategoryTotal) int {
		if c := b.Subtotal.Cmp(a.Subtotal); c != 0 {
			return c
		}
		return strings.Compare(a.Category, b.Category)
	})
	return s
}
