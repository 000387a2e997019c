package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"receipts/internal/auth"
	"receipts/internal/core"
	applog "receipts/internal/log"
)

// formatMoney renders cents as "$12.34".
func formatMoney(m core.Money) string {
	return "$" + m.String()
}

// sanitizeInput removes control characters except tab and newlines, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// pathID reads a positive integer path value; anything else is reported as not found.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.ErrNotFound
	}
	return id, nil
}

// mustUser returns the authenticated user; routes using it sit behind auth.RequireUser.
func mustUser(r *http.Request) core.User {
	u, _ := auth.CurrentUser(r.Context())
	return u
}

// failRequest maps err to a status: core.ErrNotFound becomes 404, anything else 500.
// Other users' receipts are reported exactly like missing ones.
func (s *Server) failRequest(w http.ResponseWriter, r *http.Request, msg string, err error, operation string) {
	if errors.Is(err, core.ErrNotFound) {
		s.renderError(w, r, http.StatusNotFound, "Receipt not found.")
		return
	}
	fields := applog.NewFields().WithOperation(operation)
	if u, ok := auth.CurrentUser(r.Context()); ok {
		fields.WithUser(u.ID)
	}
	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogError(r.Context(), msg, err, applog.ComponentHTTP, operation, fields)
	s.renderError(w, r, http.StatusInternalServerError, "Something went wrong. Please try again.")
}
