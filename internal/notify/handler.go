package notify

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jsmart/jsmart-inventory/internal/platform/httpx"
	"github.com/jsmart/jsmart-inventory/internal/shared"
)

// Handler exposes the current notification for the operator's session.
type Handler struct {
	center *Center
}

// NewHandler constructs Handler.
func NewHandler(center *Center) *Handler {
	return &Handler{center: center}
}

// MountRoutes registers notification routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/current", h.handleCurrent)
	r.Delete("/current", h.handleDismiss)
}

func (h *Handler) handleCurrent(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	current, ok := h.center.Current(sess.ID)
	if !ok {
		httpx.NoContent(w)
		return
	}
	httpx.JSON(w, http.StatusOK, current)
}

// handleDismiss clears the notification early, before the timer fires.
func (h *Handler) handleDismiss(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	h.center.Clear(sess.ID)
	httpx.NoContent(w)
}
