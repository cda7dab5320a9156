package handlers

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"expense-ledger/internal/auth"
	"expense-ledger/internal/core"
	"expense-ledger/internal/storage"
	"expense-ledger/web"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type HandlersTestSuite struct {
	suite.Suite
	server *httptest.Server
}

func (suite *HandlersTestSuite) SetupSuite() {
	auth.Cost = bcrypt.MinCost
}

func (suite *HandlersTestSuite) TearDownSuite() {
	auth.Cost = bcrypt.DefaultCost
}

func (suite *HandlersTestSuite) SetupTest() {
	db, err := storage.NewDB(suite.T().TempDir())
	require.NoError(suite.T(), err)

	logs := zap.NewNop().Sugar()
	tracker := core.NewTracker(logs, db)
	sessions := auth.NewSessions([]byte("0123456789abcdef"), time.Hour)

	h, err := NewHandlers(logs, tracker, sessions, web.TemplatesFS, false)
	require.NoError(suite.T(), err)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /login", h.LoginForm)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("GET /register", h.RegisterForm)
	mux.HandleFunc("POST /register", h.Register)
	mux.HandleFunc("GET /logout", h.Logout)
	mux.Handle("GET /{$}", h.AuthMiddleware(http.HandlerFunc(h.Index)))
	mux.Handle("POST /{$}", h.AuthMiddleware(http.HandlerFunc(h.CreateExpense)))
	mux.Handle("POST /delete/{id}", h.AuthMiddleware(http.HandlerFunc(h.DeleteExpense)))

	suite.server = httptest.NewServer(LoggingMiddleware(logs, mux))
}

func (suite *HandlersTestSuite) TearDownTest() {
	suite.server.Close()
}

// newClient returns a browser-like client that keeps cookies and follows
// redirects.
func (suite *HandlersTestSuite) newClient() *http.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(suite.T(), err)
	return &http.Client{Jar: jar}
}

func (suite *HandlersTestSuite) get(c *http.Client, path string) (*http.Response, string) {
	resp, err := c.Get(suite.server.URL + path)
	require.NoError(suite.T(), err)
	return resp, suite.body(resp)
}

func (suite *HandlersTestSuite) post(c *http.Client, path string, form url.Values) (*http.Response, string) {
	resp, err := c.PostForm(suite.server.URL+path, form)
	require.NoError(suite.T(), err)
	return resp, suite.body(resp)
}

func (suite *HandlersTestSuite) body(resp *http.Response) string {
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(suite.T(), err)
	return string(b)
}

func credentials(username, password string) url.Values {
	return url.Values{"username": {username}, "password": {password}}
}

// signedIn registers username and returns a client logged in as it.
func (suite *HandlersTestSuite) signedIn(username string) *http.Client {
	c := suite.newClient()
	suite.post(c, "/register", credentials(username, "secret-"+username))
	resp, body := suite.post(c, "/login", credentials(username, "secret-"+username))
	require.Equal(suite.T(), "/", resp.Request.URL.Path)
	require.Contains(suite.T(), body, "Logged in successfully!")
	return c
}

func (suite *HandlersTestSuite) TestIndexRequiresLogin() {
	resp, body := suite.get(suite.newClient(), "/")
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(), "/login", resp.Request.URL.Path)
	assert.Contains(suite.T(), body, `class="login-form"`)
}

func (suite *HandlersTestSuite) TestRequestIDHeader() {
	resp, _ := suite.get(suite.newClient(), "/login")
	assert.NotEmpty(suite.T(), resp.Header.Get(RequestIDHeader))
}

func (suite *HandlersTestSuite) TestRegisterThenLogin() {
	c := suite.newClient()

	resp, body := suite.post(c, "/register", credentials("alice", "wonderland"))
	assert.Equal(suite.T(), "/login", resp.Request.URL.Path)
	assert.Contains(suite.T(), body, "Registration successful! Please log in.")

	resp, body = suite.post(c, "/login", credentials("alice", "wonderland"))
	assert.Equal(suite.T(), "/", resp.Request.URL.Path)
	assert.Contains(suite.T(), body, "Logged in successfully!")
	assert.Contains(suite.T(), body, `<b class="username">alice</b>`)
	assert.Contains(suite.T(), body, "No expenses recorded yet.")
	assert.Contains(suite.T(), body, `<strong id="total">0.00</strong>`)

	// The flash is shown once
	_, body = suite.get(c, "/")
	assert.NotContains(suite.T(), body, "Logged in successfully!")
}

func (suite *HandlersTestSuite) TestRegisterDuplicate() {
	suite.post(suite.newClient(), "/register", credentials("alice", "one"))

	resp, body := suite.post(suite.newClient(), "/register", credentials("alice", "two"))
	assert.Equal(suite.T(), "/register", resp.Request.URL.Path)
	assert.Contains(suite.T(), body, "Username already taken. Please choose another.")
}

func (suite *HandlersTestSuite) TestRegisterMissingFields() {
	_, body := suite.post(suite.newClient(), "/register", credentials("  ", "pw"))
	assert.Contains(suite.T(), body, "Username and password are required.")

	_, body = suite.post(suite.newClient(), "/register", credentials("bob", ""))
	assert.Contains(suite.T(), body, "Username and password are required.")
}

func (suite *HandlersTestSuite) TestLoginFailures() {
	suite.post(suite.newClient(), "/register", credentials("alice", "wonderland"))

	for _, form := range []url.Values{
		credentials("alice", "wrong"),
		credentials("nobody", "wonderland"),
	} {
		resp, body := suite.post(suite.newClient(), "/login", form)
		assert.Equal(suite.T(), "/login", resp.Request.URL.Path)
		assert.Contains(suite.T(), body, "Invalid username or password.")
		for _, cookie := range resp.Cookies() {
			assert.NotEqual(suite.T(), SessionCookieName, cookie.Name, "no session on failure")
		}
	}
}

func (suite *HandlersTestSuite) TestLoginPageRedirectsWhenSignedIn() {
	c := suite.signedIn("alice")

	resp, _ := suite.get(c, "/login")
	assert.Equal(suite.T(), "/", resp.Request.URL.Path)

	resp, _ = suite.get(c, "/register")
	assert.Equal(suite.T(), "/", resp.Request.URL.Path)
}

func (suite *HandlersTestSuite) TestAddExpense() {
	c := suite.signedIn("alice")

	_, body := suite.post(c, "/", url.Values{
		"date":        {"2024-03-10"},
		"amount":      {"1234.5"},
		"category":    {"  groceries "},
		"description": {"Weekly shop"},
	})
	assert.Contains(suite.T(), body, "Expense recorded successfully!")
	assert.Contains(suite.T(), body, `<td class="expense-category">Groceries</td>`)
	assert.Contains(suite.T(), body, `<td class="expense-description">Weekly shop</td>`)
	assert.Contains(suite.T(), body, `<strong id="total">1,234.50</strong>`)
	assert.Contains(suite.T(), body, "100.00%")
}

func (suite *HandlersTestSuite) TestAddExpenseInvalidAmount() {
	c := suite.signedIn("alice")

	_, body := suite.post(c, "/", url.Values{
		"date":     {"2024-03-10"},
		"amount":   {"lots"},
		"category": {"Food"},
	})
	assert.Contains(suite.T(), body, "Invalid input: Please ensure the amount is a valid number.")
	assert.Contains(suite.T(), body, "No expenses recorded yet.")
}

func (suite *HandlersTestSuite) TestAddExpenseInvalidForm() {
	c := suite.signedIn("alice")

	for _, form := range []url.Values{
		{"date": {"10/03/2024"}, "amount": {"1"}, "category": {"Food"}},
		{"date": {"2024-03-10"}, "amount": {"1"}, "category": {" "}},
		{"date": {"2024-03-10"}, "amount": {"1"}, "category": {"Food"}, "description": {strings.Repeat("d", 201)}},
	} {
		_, body := suite.post(c, "/", form)
		assert.Contains(suite.T(), body, "Invalid input:")
		assert.Contains(suite.T(), body, "No expenses recorded yet.")
	}
}

func (suite *HandlersTestSuite) TestDeleteExpense() {
	alice := suite.signedIn("alice")
	bob := suite.signedIn("bob")

	suite.post(alice, "/", url.Values{"date": {"2024-03-10"}, "amount": {"9.99"}, "category": {"Food"}})

	_, body := suite.post(bob, "/delete/1", nil)
	assert.Contains(suite.T(), body, "Expense not found or you do not have permission to delete it.")

	_, body = suite.get(alice, "/")
	assert.Contains(suite.T(), body, `class="expense-item"`)

	_, body = suite.post(alice, "/delete/1", nil)
	assert.Contains(suite.T(), body, "Expense deleted successfully!")
	assert.Contains(suite.T(), body, "No expenses recorded yet.")

	_, body = suite.post(alice, "/delete/1", nil)
	assert.Contains(suite.T(), body, "Expense not found or you do not have permission to delete it.")
}

func (suite *HandlersTestSuite) TestDeleteExpenseBadID() {
	c := suite.signedIn("alice")

	resp, _ := suite.post(c, "/delete/abc", nil)
	assert.Equal(suite.T(), http.StatusNotFound, resp.StatusCode)
}

func (suite *HandlersTestSuite) TestDeleteRequiresLogin() {
	resp, _ := suite.post(suite.newClient(), "/delete/1", nil)
	assert.Equal(suite.T(), "/login", resp.Request.URL.Path)
}

func (suite *HandlersTestSuite) TestLogout() {
	c := suite.signedIn("alice")

	resp, body := suite.get(c, "/logout")
	assert.Equal(suite.T(), "/login", resp.Request.URL.Path)
	assert.Contains(suite.T(), body, "You have been logged out.")

	resp, _ = suite.get(c, "/")
	assert.Equal(suite.T(), "/login", resp.Request.URL.Path)
}

func (suite *HandlersTestSuite) TestForgedSessionIsRejected() {
	c := suite.newClient()
	u, err := url.Parse(suite.server.URL)
	require.NoError(suite.T(), err)

	forged, err := auth.NewSessions([]byte("another-secret-value"), time.Hour).Issue(1, "alice")
	require.NoError(suite.T(), err)
	c.Jar.SetCookies(u, []*http.Cookie{{Name: SessionCookieName, Value: forged, Path: "/"}})

	resp, _ := suite.get(c, "/")
	assert.Equal(suite.T(), "/login", resp.Request.URL.Path)
}

func TestHandlersSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}

func TestExpenseFormValidate(t *testing.T) {
	valid := expenseForm{Date: "2024-03-10", Amount: "x", Category: "Food", Description: strings.Repeat("d", 200)}
	assert.NoError(t, valid.Validate(), "amount is checked by the tracker, not the form")

	tests := []struct {
		name  string
		field string
		form  expenseForm
	}{
		{"missing date", "Date", expenseForm{Category: "Food"}},
		{"bad date", "Date", expenseForm{Date: "2024-13-01", Category: "Food"}},
		{"empty category", "Category", expenseForm{Date: "2024-03-10"}},
		{"long category", "Category", expenseForm{Date: "2024-03-10", Category: strings.Repeat("c", 65)}},
		{"long description", "Description", expenseForm{Date: "2024-03-10", Category: "Food", Description: strings.Repeat("d", 201)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.form.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0.00"},
		{"12.5", "12.50"},
		{"999", "999.00"},
		{"1000", "1,000.00"},
		{"1234.5", "1,234.50"},
		{"-1234567.891", "-1,234,567.89"},
		{"100000", "100,000.00"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, formatMoney(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestCategoryColor(t *testing.T) {
	assert.Equal(t, "#60a5fa", categoryColor("food"))
	assert.Equal(t, "#94a3b8", categoryColor("Unlisted"))
}

func TestFlashRoundTrip(t *testing.T) {
	h := &Handlers{logs: zap.NewNop().Sugar()}

	w := httptest.NewRecorder()
	h.setFlash(w, flashSuccess(`Saved "lunch", 12.50`))

	r := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	for _, c := range w.Result().Cookies() {
		r.AddCookie(c)
	}

	w = httptest.NewRecorder()
	f := h.popFlash(w, r)
	require.NotNil(t, f)
	assert.Equal(t, "success", f.Category)
	assert.Equal(t, `Saved "lunch", 12.50`, f.Message)

	cleared := w.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.True(t, strings.EqualFold(flashCookieName, cleared[0].Name))
	assert.Negative(t, cleared[0].MaxAge)
}
