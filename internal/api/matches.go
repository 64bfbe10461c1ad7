package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/najdeno/internal/lifecycle"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// MatchesHandler handles match endpoints (staff).
type MatchesHandler struct {
	DB        *sql.DB
	Lifecycle *lifecycle.Manager
}

// List handles GET /api/matches.
func (h *MatchesHandler) List(w http.ResponseWriter, r *http.Request) {
	matches, err := store.ListMatches(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(matches))
}

// Get handles GET /api/matches/{id}.
func (h *MatchesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m, err := store.GetMatch(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if m == nil {
		writeError(w, r, model.NotFound("match", id))
		return
	}
	jsonResponse(w, http.StatusOK, m)
}

// Cancel handles DELETE /api/matches/{id}. Cancelling a match that is already
// gone succeeds.
func (h *MatchesHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.Lifecycle.CancelMatch(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	claims := GetClaims(r.Context())
	slog.Info("match cancel requested", "user", claims.Username, "match_id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "match cancelled"})
}
