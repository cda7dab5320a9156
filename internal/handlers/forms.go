package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"expense-ledger/internal/models"

	"github.com/jellydator/validation"
)

type credentialsForm struct {
	Username string
	Password string
}

func (f credentialsForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Username, validation.Required, validation.Length(1, 64)),
		validation.Field(&f.Password, validation.Required),
	)
}

func parseCredentials(r *http.Request) (credentialsForm, error) {
	if err := r.ParseForm(); err != nil {
		return credentialsForm{}, fmt.Errorf("parse form: %w", err)
	}
	form := credentialsForm{
		Username: strings.TrimSpace(r.FormValue("username")),
		Password: r.FormValue("password"),
	}
	if err := form.Validate(); err != nil {
		return credentialsForm{}, fmt.Errorf("validating form: %w", err)
	}
	return form, nil
}

// expenseForm leaves the amount unchecked; the tracker rejects amounts that
// are not numbers. Category and description limits apply to the web form
// only, the tracker accepts any text.
type expenseForm struct {
	Date        string
	Amount      string
	Category    string
	Description string
}

func (f expenseForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Date, validation.Required, validation.Date(models.DateLayout)),
		validation.Field(&f.Category, validation.Required, validation.Length(1, 64)),
		validation.Field(&f.Description, validation.Length(0, 200)),
	)
}

func parseExpense(r *http.Request) (expenseForm, error) {
	if err := r.ParseForm(); err != nil {
		return expenseForm{}, fmt.Errorf("parse form: %w", err)
	}
	form := expenseForm{
		Date:        strings.TrimSpace(r.FormValue("date")),
		Amount:      r.FormValue("amount"),
		Category:    strings.TrimSpace(r.FormValue("category")),
		Description: r.FormValue("description"),
	}
	if err := form.Validate(); err != nil {
		return expenseForm{}, err
	}
	return form, nil
}
