package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/najdeno/internal/match"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// parseFilter reads the list filters shared by lost and found listings:
// category, status, from, to and order.
func parseFilter(r *http.Request) (store.Filter, error) {
	q := r.URL.Query()
	f := store.Filter{
		Category: q.Get("category"),
		Status:   q.Get("status"),
		Order:    q.Get("order"),
	}

	if f.Category != "" && !model.ValidCategory(f.Category) {
		return f, model.Validation("category", "unknown category %q", f.Category)
	}
	if f.Status != "" && !model.ActiveStatus(f.Status) {
		return f, model.Validation("status", "unknown status %q", f.Status)
	}
	if !store.ValidOrder(f.Order) {
		return f, model.Validation("order", "must be %q or %q", store.OrderNewest, store.OrderOldest)
	}

	var err error
	if v := q.Get("from"); v != "" {
		if f.From, err = model.ParseDate(v); err != nil {
			return f, model.Validation("from", "invalid date %q, want YYYY-MM-DD", v)
		}
	}
	if v := q.Get("to"); v != "" {
		if f.To, err = model.ParseDate(v); err != nil {
			return f, model.Validation("to", "invalid date %q, want YYYY-MM-DD", v)
		}
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return f, model.Validation("to", "before from")
	}
	return f, nil
}

// decodeInput decodes a request body and writes the error response itself
// when decoding fails.
func decodeInput(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := decodeJSON(r, target); err != nil {
		if errors.Is(err, model.ErrValidation) {
			writeError(w, r, err)
		} else {
			jsonError(w, http.StatusBadRequest, "invalid request body")
		}
		return false
	}
	return true
}

// reconcileAfterCreate runs a reconciliation pass for a freshly stored
// record. Failures are logged only; the record is already saved.
func reconcileAfterCreate(r *http.Request, rec *match.Reconciler, m match.Matcher) {
	if rec == nil {
		return
	}
	ctx := context.WithoutCancel(r.Context())
	created, err := rec.ReconcilePending(ctx, m)
	if err != nil {
		slog.Error("reconciliation after create", "path", r.URL.Path, "error", err)
		return
	}
	if len(created) > 0 {
		slog.Info("reconciliation after create", "matches", len(created))
	}
}
