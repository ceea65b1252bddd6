package http

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"expensetracker/internal/core"
	"expensetracker/internal/dashboard"
)

var templateFuncs = template.FuncMap{
	"usd":         dashboard.FormatUSD,
	"amount":      dashboard.FormatAmount,
	"icon":        dashboard.CategoryIcon,
	"statusClass": statusClass,
}

func statusClass(s dashboard.Status) string {
	switch s {
	case dashboard.StatusOver:
		return "status-danger"
	case dashboard.StatusNear:
		return "status-warning"
	default:
		return "status-ok"
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeRequestError maps input errors: unreadable bodies are 400, values
// that fail numeric parsing are 422.
func writeRequestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
	case errors.Is(err, core.ErrInvalidBudget):
		writeError(w, http.StatusUnprocessableEntity, "invalid budget")
	default:
		writeError(w, http.StatusBadRequest, "malformed request")
	}
}

func categoryParam(r *http.Request) string {
	c := sanitizeInput(r.URL.Query().Get("category"))
	if c == "" {
		return core.CategoryAll
	}
	return c
}
