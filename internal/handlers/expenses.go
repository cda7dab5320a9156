package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"expense-ledger/internal/core"
	"expense-ledger/internal/models"
)

// CategoryDef is a suggested category with its display color.
type CategoryDef struct {
	Name  string
	Color string
}

var categories = []CategoryDef{
	{"Food", "#60a5fa"},
	{"Transport", "#a78bfa"},
	{"Entertainment", "#f472b6"},
	{"Utilities", "#fbbf24"},
	{"Housing", "#818cf8"},
	{"Gifts", "#fb7185"},
	{"Other", "#94a3b8"},
}

func categoryColor(category string) string {
	for _, c := range categories {
		if strings.EqualFold(c.Name, category) {
			return c.Color
		}
	}
	return "#94a3b8"
}

// SummaryItem is one row of the per-category breakdown.
type SummaryItem struct {
	core.CategoryTotal
	Color string
}

// IndexViewModel is the data passed to the index template.
type IndexViewModel struct {
	Expenses    []models.Expense
	Total       string
	Summary     []SummaryItem
	Categories  []CategoryDef
	CurrentDate string
}

// Index renders the current user's expenses and spending breakdown.
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	expenses, err := h.tracker.ListExpenses(user.IdentityID())
	if err != nil {
		h.logs.Errorw("list expenses", "user_id", user.IdentityID(), "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	summary := h.tracker.ComputeSummary(expenses)
	items := make([]SummaryItem, 0, len(summary.Categories))
	for _, c := range summary.Categories {
		items = append(items, SummaryItem{CategoryTotal: c, Color: categoryColor(c.Category)})
	}

	h.render(w, r, "index.html", IndexViewModel{
		Expenses:    expenses,
		Total:       formatMoney(summary.Total),
		Summary:     items,
		Categories:  categories,
		CurrentDate: time.Now().Format(models.DateLayout),
	})
}

// CreateExpense handles the add-expense form posted to the index.
func (h *Handlers) CreateExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	form, err := parseExpense(r)
	if err != nil {
		h.setFlash(w, flashDanger("Invalid input: "+err.Error()))
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	_, err = h.tracker.AddExpense(user.IdentityID(), form.Date, form.Amount, form.Category, form.Description)
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		h.setFlash(w, flashDanger("Invalid input: Please ensure the amount is a valid number."))
	case err != nil:
		h.logs.Errorw("add expense", "user_id", user.IdentityID(), "error", err)
		h.setFlash(w, flashDanger("An error occurred. Please try again."))
	default:
		h.setFlash(w, flashSuccess("Expense recorded successfully!"))
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// DeleteExpense removes one of the current user's expenses.
func (h *Handlers) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	deleted, err := h.tracker.RemoveExpense(user.IdentityID(), id)
	switch {
	case err != nil:
		h.logs.Errorw("remove expense", "user_id", user.IdentityID(), "expense_id", id, "error", err)
		h.setFlash(w, flashDanger("An error occurred. Please try again."))
	case !deleted:
		h.setFlash(w, flashDanger("Expense not found or you do not have permission to delete it."))
	default:
		h.setFlash(w, flashSuccess("Expense deleted successfully!"))
	}
	http.Redirect(w, r, "/", http.StatusFound)
}
