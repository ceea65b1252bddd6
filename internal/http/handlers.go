package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
	"expensetracker/internal/dashboard"
	"expensetracker/internal/log"
	"expensetracker/internal/store"
)

var categoryFilters = []string{core.CategoryAll, core.CategoryCollege, core.CategoryOther}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.started).String(),
	})
}

// handleReady reports whether the document is initialized and the medium
// answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	code := http.StatusOK
	checks := map[string]string{}

	if s.pinger != nil {
		if err := s.pinger.Ping(ctx); err != nil {
			checks["storage"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["storage"] = "ok"
		}
	}

	if _, err := s.store.GetData(ctx); err != nil {
		checks["document"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["document"] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	})
}

type seriesRow struct {
	Label string
	Total decimal.Decimal
	Width int
}

type indexView struct {
	Summary      dashboard.Summary
	Series       []seriesRow
	Today        string
	Category     string
	Filters      []string
	Transactions []core.Transaction
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	doc, err := s.store.GetData(ctx)
	if err != nil {
		s.storeError(w, r, "Failed to read document", err, log.OpRead)
		return
	}
	sum, err := s.summary(ctx, doc)
	if err != nil {
		s.storeError(w, r, "Failed to build dashboard", err, log.OpRead)
		return
	}

	category := categoryParam(r)
	view := indexView{
		Summary:      sum,
		Series:       seriesRows(sum.Series),
		Today:        sum.Date,
		Category:     category,
		Filters:      categoryFilters,
		Transactions: dashboard.FilterByCategory(doc.Transactions, category),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "dashboard.html", view); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Template execution failed", "error", err, "template", "dashboard.html")
	}
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.GetData(r.Context())
	if err != nil {
		s.storeError(w, r, "Failed to read document", err, log.OpRead)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	doc, err := s.store.GetData(ctx)
	if err != nil {
		s.storeError(w, r, "Failed to read document", err, log.OpRead)
		return
	}
	sum, err := s.summary(ctx, doc)
	if err != nil {
		s.storeError(w, r, "Failed to build dashboard", err, log.OpRead)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.GetData(r.Context())
	if err != nil {
		s.storeError(w, r, "Failed to read document", err, log.OpRead)
		return
	}
	writeJSON(w, http.StatusOK, dashboard.FilterByCategory(doc.Transactions, categoryParam(r)))
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	in, err := parseTransactionRequest(r, s.now())
	if err != nil {
		writeRequestError(w, err)
		return
	}

	tx, err := s.store.AddTransaction(ctx, in)
	if err != nil {
		s.storeError(w, r, "Failed to add transaction", err, log.OpAddTx)
		return
	}
	s.invalidate()

	if isFormRequest(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	raw, err := parseBudgetRequest(r)
	if err != nil {
		writeRequestError(w, err)
		return
	}

	budget, err := s.store.UpdateBudget(ctx, raw)
	if errors.Is(err, core.ErrInvalidBudget) {
		writeRequestError(w, err)
		return
	}
	if err != nil {
		s.storeError(w, r, "Failed to update budget", err, log.OpUpdateBudget)
		return
	}
	s.invalidate()

	if isFormRequest(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"budget": budget})
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
}

// storeError maps a store failure to a response and logs it.
func (s *Server) storeError(w http.ResponseWriter, r *http.Request, msg string, err error, op string) {
	ctx := r.Context()
	if errors.Is(err, store.ErrNotInitialized) {
		log.FromContext(ctx).WarnContext(ctx, msg, "error", err, log.FieldOperation, op)
		writeError(w, http.StatusServiceUnavailable, "document not initialized")
		return
	}
	log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx, msg, err, op, nil)
	writeError(w, http.StatusInternalServerError, "storage error")
}

func seriesRows(series []dashboard.DailyTotal) []seriesRow {
	peak := decimal.Zero
	for _, d := range series {
		if d.Total.GreaterThan(peak) {
			peak = d.Total
		}
	}
	rows := make([]seriesRow, len(series))
	for i, d := range series {
		rows[i] = seriesRow{Label: d.Label(), Total: d.Total, Width: barWidth(d.Total, peak)}
	}
	return rows
}

// barWidth scales v against peak to a percentage, keeping non-zero values visible.
func barWidth(v, peak decimal.Decimal) int {
	if !peak.IsPositive() || !v.IsPositive() {
		return 0
	}
	w := int(v.Mul(decimal.NewFromInt(100)).Div(peak).Round(0).IntPart())
	if w < 2 {
		w = 2
	}
	if w > 100 {
		w = 100
	}
	return w
}
