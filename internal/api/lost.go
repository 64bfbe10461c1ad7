package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/najdeno/internal/auth"
	"github.com/erazemk/najdeno/internal/lifecycle"
	"github.com/erazemk/najdeno/internal/match"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// LostHandler handles lost report endpoints. Students work on their own
// reports; staff see and edit all of them.
type LostHandler struct {
	DB         *sql.DB
	Reconciler *match.Reconciler
	Matcher    match.Matcher
	Lifecycle  *lifecycle.Manager
}

// ownerScope returns the owner restriction for the caller: their own id for
// students, nil for staff.
func ownerScope(claims *auth.Claims) *int64 {
	if isStaff(claims) {
		return nil
	}
	id := claims.UserID
	return &id
}

// List handles GET /api/lost.
func (h *LostHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	f.OwnerID = ownerScope(GetClaims(r.Context()))

	reports, err := store.ListLostReports(r.Context(), h.DB, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(reports))
}

// Create handles POST /api/lost. Reports filed by students belong to them and
// default to notifying the account's e-mail address.
func (h *LostHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.LostInput
	if !decodeInput(w, r, &in) {
		return
	}

	claims := GetClaims(r.Context())
	owner := ownerScope(claims)
	if owner != nil && in.NotifyAddress == "" {
		user, err := store.GetUser(r.Context(), h.DB, claims.UserID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if user != nil {
			in.NotifyAddress = user.Email
		}
	}

	report, err := store.CreateLostReport(r.Context(), h.DB, in, owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("lost report filed", "user", claims.Username, "lost_id", report.ID, "category", report.Category)

	reconcileAfterCreate(r, h.Reconciler, h.Matcher)

	if updated, err := store.GetLostReport(r.Context(), h.DB, report.ID); err == nil && updated != nil {
		report = updated
	}
	jsonResponse(w, http.StatusCreated, report)
}

// Get handles GET /api/lost/{id}.
func (h *LostHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	report, err := store.GetLostReport(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	owner := ownerScope(GetClaims(r.Context()))
	if report == nil || (owner != nil && (report.OwnerID == nil || *report.OwnerID != *owner)) {
		writeError(w, r, model.NotFound("lost report", id))
		return
	}
	jsonResponse(w, http.StatusOK, report)
}

// Update handles PUT /api/lost/{id}.
func (h *LostHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in model.LostInput
	if !decodeInput(w, r, &in) {
		return
	}

	claims := GetClaims(r.Context())
	id := r.PathValue("id")
	report, err := store.UpdateLostReport(r.Context(), h.DB, id, ownerScope(claims), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("lost report updated", "user", claims.Username, "lost_id", id)

	reconcileAfterCreate(r, h.Reconciler, h.Matcher)

	if updated, err := store.GetLostReport(r.Context(), h.DB, id); err == nil && updated != nil {
		report = updated
	}
	jsonResponse(w, http.StatusOK, report)
}

// Delete handles DELETE /api/lost/{id}.
func (h *LostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	id := r.PathValue("id")
	if err := h.Lifecycle.DeleteLostReport(r.Context(), id, ownerScope(claims)); err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("lost report deleted", "user", claims.Username, "lost_id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "lost report deleted"})
}
