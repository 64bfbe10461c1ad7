package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/najdeno/internal/match"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// FoundHandler handles found record endpoints.
type FoundHandler struct {
	DB         *sql.DB
	Reconciler *match.Reconciler
	Matcher    match.Matcher
}

// List handles GET /api/found.
func (h *FoundHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	records, err := store.ListFoundRecords(r.Context(), h.DB, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(records))
}

// Create handles POST /api/found.
func (h *FoundHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.FoundInput
	if !decodeInput(w, r, &in) {
		return
	}

	record, err := store.CreateFoundRecord(r.Context(), h.DB, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	claims := GetClaims(r.Context())
	slog.Info("found item logged", "user", claims.Username, "found_id", record.ID, "category", record.Category)

	reconcileAfterCreate(r, h.Reconciler, h.Matcher)

	if updated, err := store.GetFoundRecord(r.Context(), h.DB, record.ID); err == nil && updated != nil {
		record = updated
	}
	jsonResponse(w, http.StatusCreated, record)
}

// Get handles GET /api/found/{id}.
func (h *FoundHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	record, err := store.GetFoundRecord(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if record == nil {
		writeError(w, r, model.NotFound("found record", id))
		return
	}
	jsonResponse(w, http.StatusOK, record)
}
