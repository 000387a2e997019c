package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"receipts/internal/core"
	"receipts/internal/ports"
)

const (
	CookieName = "receipts_session"
	DefaultTTL = 14 * 24 * time.Hour
)

type ctxKey struct{}

// Manager issues and resolves cookie sessions.
type Manager struct {
	users    ports.UserStore
	sessions ports.SessionStore
	ttl      time.Duration
	secure   bool
	now      func() time.Time
}

func NewManager(users ports.UserStore, sessions ports.SessionStore, ttl time.Duration, secureCookie bool) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{users: users, sessions: sessions, ttl: ttl, secure: secureCookie, now: time.Now}
}

// Signup creates the account described by form and returns it.
// Field errors are returned as the map; err is reserved for store failures.
func (m *Manager) Signup(ctx context.Context, form SignupForm) (core.User, map[string]string, error) {
	if errs := form.Validate(); errs != nil {
		return core.User{}, errs, nil
	}
	hash, err := HashPassword(form.Password1)
	if err != nil {
		return core.User{}, nil, err
	}
	u, err := m.users.CreateUser(ctx, form.Username, hash)
	if errors.Is(err, core.ErrUsernameTaken) {
		return core.User{}, map[string]string{"username": "A user with that username already exists."}, nil
	}
	if err != nil {
		return core.User{}, nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil, nil
}

// Authenticate checks credentials; unknown users and bad passwords both yield ErrInvalidCredentials.
func (m *Manager) Authenticate(ctx context.Context, username, password string) (core.User, error) {
	u, err := m.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, fmt.Errorf("load user: %w", err)
	}
	if !CheckPassword(u.PasswordHash, password) {
		return core.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Login starts a session for userID and sets the cookie on w.
func (m *Manager) Login(ctx context.Context, w http.ResponseWriter, userID int64) error {
	token, err := newToken()
	if err != nil {
		return err
	}
	expires := m.now().Add(m.ttl)
	if err := m.sessions.CreateSession(ctx, token, userID, expires); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Logout ends the session carried by r, if any, and clears the cookie.
func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) error {
	var err error
	if c, cerr := r.Cookie(CookieName); cerr == nil && c.Value != "" {
		err = m.sessions.DeleteSession(r.Context(), c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return err
}

// Middleware resolves the session cookie into the request context.
// Requests without a valid session pass through anonymously.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(CookieName)
		if err != nil || c.Value == "" {
			next.ServeHTTP(w, r)
			return
		}
		userID, err := m.sessions.SessionUser(r.Context(), c.Value, m.now())
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		u, err := m.users.GetUser(r.Context(), userID)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

// RequireUser redirects anonymous requests to the login page, keeping the original path in next.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r.Context()); !ok {
			http.Redirect(w, r, "/login/?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
		next.ServeHTTP(w, r)
	})
}

func WithUser(ctx context.Context, u core.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

func CurrentUser(ctx context.Context) (core.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(core.User)
	return u, ok
}

// SafeNext returns next when it is a local absolute path, otherwise fallback.
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return fallback
	}
	return next
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
