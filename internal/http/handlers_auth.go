package http

import (
	"errors"
	"net/http"

	"receipts/internal/auth"
	applog "receipts/internal/log"
)

const dashboardPath = "/dashboard/"

type signupPage struct {
	Username string
	Errors   map[string]string
}

type loginPage struct {
	Username string
	Next     string
	Error    string
}

func (s *Server) handleSignupForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "signup", signupPage{})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	form := auth.SignupForm{
		Username:  sanitizeInput(r.PostForm.Get("username")),
		Password1: r.PostForm.Get("password1"),
		Password2: r.PostForm.Get("password2"),
	}

	u, fieldErrs, err := s.auth.Signup(r.Context(), form)
	if err != nil {
		s.failRequest(w, r, "Signup failed", err, applog.OpSignup)
		return
	}
	if fieldErrs != nil {
		s.render(w, r, http.StatusUnprocessableEntity, "signup", signupPage{Username: form.Username, Errors: fieldErrs})
		return
	}
	if err := s.auth.Login(r.Context(), w, u.ID); err != nil {
		s.failRequest(w, r, "Login after signup failed", err, applog.OpSignup)
		return
	}
	s.logger.InfoContext(r.Context(), "User signed up", applog.FieldUserID, u.ID)
	http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentUser(r.Context()); ok {
		http.Redirect(w, r, auth.SafeNext(r.URL.Query().Get("next"), dashboardPath), http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login", loginPage{Next: r.URL.Query().Get("next")})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	form, err := ParseCredentialsForm(r)
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}

	u, err := s.auth.Authenticate(r.Context(), form.Username, form.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		s.logger.WarnContext(r.Context(), "Login rejected", "username", form.Username)
		s.render(w, r, http.StatusUnprocessableEntity, "login", loginPage{
			Username: form.Username,
			Next:     form.Next,
			Error:    "Please enter a correct username and password. Note that both fields may be case-sensitive.",
		})
		return
	}
	if err != nil {
		s.failRequest(w, r, "Login failed", err, applog.OpLogin)
		return
	}
	if err := s.auth.Login(r.Context(), w, u.ID); err != nil {
		s.failRequest(w, r, "Session creation failed", err, applog.OpLogin)
		return
	}
	s.logger.InfoContext(r.Context(), "User logged in", applog.FieldUserID, u.ID)
	http.Redirect(w, r, auth.SafeNext(form.Next, dashboardPath), http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(w, r); err != nil {
		s.logger.WarnContext(r.Context(), "Failed to delete session", applog.FieldError, err)
	}
	http.Redirect(w, r, "/logout-page/", http.StatusSeeOther)
}

func (s *Server) handleLogoutPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "logout", nil)
}
