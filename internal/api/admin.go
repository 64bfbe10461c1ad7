package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/najdeno/internal/lifecycle"
	"github.com/erazemk/najdeno/internal/match"
	"github.com/erazemk/najdeno/internal/store"
)

// AdminHandler triggers scheduled work on demand (admin).
type AdminHandler struct {
	DB         *sql.DB
	Reconciler *match.Reconciler
	Matcher    match.Matcher
	Lifecycle  *lifecycle.Manager
	Jobs       []string
}

// Reconcile handles POST /api/admin/reconcile.
func (h *AdminHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	created, err := h.Reconciler.ReconcilePending(context.WithoutCancel(r.Context()), h.Matcher)
	if err != nil {
		writeError(w, r, err)
		return
	}
	claims := GetClaims(r.Context())
	slog.Info("manual reconciliation", "user", claims.Username, "matches", len(created))
	jsonResponse(w, http.StatusOK, emptyIfNil(created))
}

// Sweep handles POST /api/admin/sweep.
func (h *AdminHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	res, err := h.Lifecycle.SweepArchival(context.WithoutCancel(r.Context()), time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	claims := GetClaims(r.Context())
	slog.Info("manual archival sweep", "user", claims.Username, "archived", res.Archived)
	jsonResponse(w, http.StatusOK, res)
}

type jobStatus struct {
	Name    string     `json:"name"`
	LastRun *time.Time `json:"last_run"`
}

// ListJobs handles GET /api/admin/jobs.
func (h *AdminHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := make([]jobStatus, 0, len(h.Jobs))
	for _, name := range h.Jobs {
		last, err := store.LastJobRun(r.Context(), h.DB, name)
		if err != nil {
			writeError(w, r, err)
			return
		}
		js := jobStatus{Name: name}
		if !last.IsZero() {
			js.LastRun = &last
		}
		jobs = append(jobs, js)
	}
	jsonResponse(w, http.StatusOK, jobs)
}
