package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/access-git/internal/apperror"
	"github.com/sakif/access-git/internal/auth"
)

// REQUEST HELPERS:
// Every /api handler below runs behind auth.RequireCredential, so the
// credential is always present in the context.

func credential(r *http.Request) string {
	token, _ := auth.CredentialFromContext(r.Context())
	return token
}

// decodeBody decodes a JSON body into dst. An empty body leaves dst untouched
// when optional is true.
func decodeBody(r *http.Request, dst any, optional bool) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) && optional {
		return nil
	}
	if err != nil {
		return apperror.ValidationFailed("body", "Invalid JSON body")
	}
	return nil
}

// queryInt parses an optional integer query parameter; absent or malformed
// values yield 0.
func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return n
}

// noContent answers a successful mutation. GitHub's 204 becomes an empty 200
// for the dashboard.
func noContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
}

func param(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}
