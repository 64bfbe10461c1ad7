package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/najdeno/internal/lifecycle"
)

// ClaimsHandler hands found items over to claimants (staff).
type ClaimsHandler struct {
	Lifecycle *lifecycle.Manager
}

// Create handles POST /api/claims.
func (h *ClaimsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req lifecycle.ClaimRequest
	if !decodeInput(w, r, &req) {
		return
	}

	res, err := h.Lifecycle.Claim(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("claim recorded", "user", claims.Username, "found_id", req.FoundID, "claimant_id", req.Claimant.ID)
	jsonResponse(w, http.StatusCreated, res)
}
