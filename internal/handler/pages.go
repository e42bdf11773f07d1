// Package handler contains the HTTP handlers: the two HTML pages and the
// JSON API the dashboard script calls.
//
// HANDLER RESPONSIBILITIES:
//  1. Parse the request (path params, query, body)
//  2. Call one service method
//  3. Write the response (writeJSON / writeError)
//
// Handlers hold no business rules; those live in internal/service.
package handler

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/sakif/access-git/internal/auth"
)

// Page names; each is parsed together with base.html.
const (
	pageLogin     = "login.html"
	pageDashboard = "dashboard.html"
)

// PageHandler renders the server-side pages. Everything else in the
// dashboard is drawn by the browser from the JSON API.
//
// TEMPLATE SETS:
// Every page defines {{define "content"}}, so each page gets its own set
// (base.html + page) parsed once at startup.
type PageHandler struct {
	pages    map[string]*template.Template
	sessions *auth.SessionStore
	logger   *slog.Logger
}

// NewPageHandler parses the page templates in templateDir.
func NewPageHandler(templateDir string, sessions *auth.SessionStore, logger *slog.Logger) (*PageHandler, error) {
	pages := make(map[string]*template.Template, 2)
	for _, name := range []string{pageLogin, pageDashboard} {
		tmpl, err := template.ParseFiles(
			filepath.Join(templateDir, "base.html"),
			filepath.Join(templateDir, name),
		)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		pages[name] = tmpl
	}

	return &PageHandler{pages: pages, sessions: sessions, logger: logger}, nil
}

// HandleLogin serves the site password form. A visitor who is already
// logged in goes straight to the dashboard.
//
// HTTP: GET /login
func (h *PageHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if h.sessions.Load(r).IsLoggedIn {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.render(w, pageLogin, map[string]any{"Title": "Sign in · access-git"})
}

// HandleDashboard serves the dashboard shell. RequireSession has already
// sent anonymous visitors to /login.
//
// HTTP: GET / (and every other page path)
func (h *PageHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	h.render(w, pageDashboard, map[string]any{
		"Title": "access-git",
		"Path":  r.URL.EscapedPath(),
	})
}

func (h *PageHandler) render(w http.ResponseWriter, page string, data map[string]any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.pages[page].ExecuteTemplate(w, "base", data); err != nil {
		h.logger.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
