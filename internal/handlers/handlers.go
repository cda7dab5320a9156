package handlers

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"expense-ledger/internal/auth"
	"expense-ledger/internal/core"
	"expense-ledger/internal/models"

	"go.uber.org/zap"
)

// Context key type to avoid collisions.
type contextKey string

const (
	// UserContextKey is the context key for the authenticated user.
	UserContextKey contextKey = "user"
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session"
)

var views = []string{"login.html", "register.html", "index.html"}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	logs         *zap.SugaredLogger
	tracker      *core.Tracker
	sessions     *auth.Sessions
	templates    map[string]*template.Template
	secureCookie bool
}

// NewHandlers parses the templates in templatesFS and returns a Handlers
// instance.
func NewHandlers(logger *zap.SugaredLogger, tracker *core.Tracker, sessions *auth.Sessions, templatesFS fs.FS, secureCookie bool) (*Handlers, error) {
	templates := make(map[string]*template.Template, len(views))
	for _, v := range views {
		tmpl, err := template.New("base.html").Funcs(templateFuncs).ParseFS(templatesFS, "templates/base.html", "templates/"+v)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", v, err)
		}
		templates[v] = tmpl
	}

	return &Handlers{
		logs:         logger,
		tracker:      tracker,
		sessions:     sessions,
		templates:    templates,
		secureCookie: secureCookie,
	}, nil
}

// GetUserFromContext retrieves the authenticated user from request context.
func GetUserFromContext(r *http.Request) models.Identity {
	if user, ok := r.Context().Value(UserContextKey).(models.Identity); ok {
		return user
	}
	return nil
}

// currentUser resolves the session cookie to an account, or nil.
func (h *Handlers) currentUser(r *http.Request) (*models.User, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	userID, err := h.sessions.Verify(cookie.Value)
	if err != nil {
		return nil, nil
	}

	return h.tracker.RestoreIdentity(userID)
}

// AuthMiddleware wraps handlers to require authentication.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := h.currentUser(r)
		if err != nil {
			h.logs.Errorw("restore identity", "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if user == nil {
			// Invalid, expired, or the account is gone
			h.clearSessionCookie(w)
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, models.Identity(user))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// redirectIfLoggedIn sends an already authenticated visitor to the index.
func (h *Handlers) redirectIfLoggedIn(w http.ResponseWriter, r *http.Request) bool {
	if user, err := h.currentUser(r); err == nil && user != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return true
	}
	return false
}

// LoginForm renders the login page.
func (h *Handlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	if h.redirectIfLoggedIn(w, r) {
		return
	}
	h.render(w, r, "login.html", nil)
}

// Login handles the login form submission.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if h.redirectIfLoggedIn(w, r) {
		return
	}

	form, err := parseCredentials(r)
	if err != nil {
		h.renderWithFlash(w, r, "login.html", flashDanger("Username and password are required."), nil)
		return
	}

	user, err := h.tracker.Authenticate(form.Username, form.Password)
	if err != nil {
		if !errors.Is(err, core.ErrAuthFailure) {
			h.logs.Errorw("authenticate", "error", err)
		}
		h.renderWithFlash(w, r, "login.html", flashDanger("Invalid username or password."), nil)
		return
	}

	token, err := h.sessions.Issue(user.ID, user.Username)
	if err != nil {
		h.logs.Errorw("failed to issue session token", "error", err)
		h.renderWithFlash(w, r, "login.html", flashDanger("An error occurred. Please try again."), nil)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessions.Duration() / time.Second),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	h.setFlash(w, flashSuccess("Logged in successfully!"))
	http.Redirect(w, r, "/", http.StatusFound)
}

// RegisterForm renders the registration page.
func (h *Handlers) RegisterForm(w http.ResponseWriter, r *http.Request) {
	if h.redirectIfLoggedIn(w, r) {
		return
	}
	h.render(w, r, "register.html", nil)
}

// Register handles the registration form submission.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	if h.redirectIfLoggedIn(w, r) {
		return
	}

	form, err := parseCredentials(r)
	if err != nil {
		h.renderWithFlash(w, r, "register.html", flashDanger("Username and password are required."), nil)
		return
	}

	if _, err := h.tracker.RegisterAccount(form.Username, form.Password); err != nil {
		if errors.Is(err, core.ErrDuplicateUsername) {
			h.renderWithFlash(w, r, "register.html", flashDanger("Username already taken. Please choose another."), nil)
			return
		}
		h.logs.Errorw("register account", "error", err)
		h.renderWithFlash(w, r, "register.html", flashDanger("An error occurred. Please try again."), nil)
		return
	}

	h.setFlash(w, flashSuccess("Registration successful! Please log in."))
	http.Redirect(w, r, "/login", http.StatusFound)
}

// Logout handles user logout.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearSessionCookie(w)
	h.setFlash(w, flashInfo("You have been logged out."))
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// pageData is what every template receives.
type pageData struct {
	User  models.Identity
	Flash *Flash
	Data  any
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, viewName string, data any) {
	h.renderWithFlash(w, r, viewName, h.popFlash(w, r), data)
}

func (h *Handlers) renderWithFlash(w http.ResponseWriter, r *http.Request, viewName string, flash *Flash, data any) {
	tmpl, ok := h.templates[viewName]
	if !ok {
		h.logs.Errorw("unknown template", "view", viewName)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}

	page := pageData{User: GetUserFromContext(r), Flash: flash, Data: data}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", page); err != nil {
		h.logs.Errorw("template execution error", "view", viewName, "error", err)
	}
}
