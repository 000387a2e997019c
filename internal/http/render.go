package http

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"receipts/internal/auth"
	"receipts/internal/core"
	applog "receipts/internal/log"
)

const baseTemplate = "templates/base.html"

// view is what every page template receives: the signed-in user, if any,
// plus the page-specific data.
type view struct {
	User     core.User
	LoggedIn bool
	Data     any
}

var templateFuncs = template.FuncMap{
	"money": formatMoney,
	"label": func(c core.Category) string { return c.Label() },
}

// parsePages builds one template set per page so each can define its own
// "title" and "content" blocks on top of the shared layout.
func parsePages(fsys fs.FS) (map[string]*template.Template, error) {
	files, err := fs.Glob(fsys, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		if file == baseTemplate {
			continue
		}
		name := strings.TrimSuffix(path.Base(file), ".html")
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(fsys, baseTemplate, file)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = t
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no page templates found")
	}
	return pages, nil
}

// render executes page into a buffer first so a template failure still
// produces a clean 500 instead of a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	t, ok := s.pages[page]
	if !ok {
		s.logger.ErrorContext(r.Context(), "Unknown page template", "page", page)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	v := view{Data: data}
	if u, ok := auth.CurrentUser(r.Context()); ok {
		v.User, v.LoggedIn = u, true
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", v); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed", "page", page, applog.FieldError, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type errorPage struct {
	Status  int
	Title   string
	Message string
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.render(w, r, status, "error", errorPage{Status: status, Title: http.StatusText(status), Message: message})
}
