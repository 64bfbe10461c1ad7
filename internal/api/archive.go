package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// ArchiveHandler exposes the archive read-only (staff).
type ArchiveHandler struct {
	DB *sql.DB
}

// List handles GET /api/archive.
func (h *ArchiveHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.ArchiveFilter{
		Kind:     q.Get("kind"),
		Status:   q.Get("status"),
		Category: q.Get("category"),
	}
	if f.Kind != "" && f.Kind != model.KindLost && f.Kind != model.KindFound {
		writeError(w, r, model.Validation("kind", "must be %q or %q", model.KindLost, model.KindFound))
		return
	}
	if f.Status != "" && f.Status != model.StatusClaimed && f.Status != model.StatusArchived {
		writeError(w, r, model.Validation("status", "must be %q or %q", model.StatusClaimed, model.StatusArchived))
		return
	}

	records, err := store.ListArchive(r.Context(), h.DB, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(records))
}

// Get handles GET /api/archive/{kind}/{id}.
func (h *ArchiveHandler) Get(w http.ResponseWriter, r *http.Request) {
	kind, id := r.PathValue("kind"), r.PathValue("id")
	rec, err := store.GetArchived(r.Context(), h.DB, kind, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rec == nil {
		writeError(w, r, model.NotFound("archived record", id))
		return
	}
	jsonResponse(w, http.StatusOK, rec)
}

// Categories handles GET /api/categories.
func Categories(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, model.Categories)
}
