package catalog

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jsmart/jsmart-inventory/internal/platform/httpx"
)

// Handler wires HTTP endpoints for catalog reads.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs catalog handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	filter := ListFilter{
		Search: q.Get("search"),
		Page:   page,
		Limit:  limit,
	}
	result, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "failed to load products")
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid product id")
		return
	}
	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "product not found")
			return
		}
		h.logger.Error("get product", slog.Any("error", err), slog.Int64("id", id))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "failed to load product")
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}
