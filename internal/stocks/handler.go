package stocks

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jsmart/jsmart-inventory/internal/platform/httpx"
)

// Handler wires HTTP endpoints for stock batch queries.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs stocks handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers stock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleListAll)
	r.Get("/{id}", h.handleGet)
	r.Get("/product/{productID}", h.handleListForProduct)
}

type listResponse struct {
	Batches []StockBatch `json:"batches"`
	Total   int64        `json:"total"`
}

func (h *Handler) handleListAll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	batches, total, err := h.service.ListAll(r.Context(), ListFilter{Page: page, Limit: limit})
	if err != nil {
		h.logger.Error("list batches", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "failed to load batches")
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Batches: batches, Total: total})
}

func (h *Handler) handleListForProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || productID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid product id")
		return
	}
	batches, err := h.service.ListForProduct(r.Context(), productID)
	if err != nil {
		h.logger.Error("list batches for product", slog.Any("error", err), slog.Int64("product_id", productID))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "failed to load batches")
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Batches: batches, Total: int64(len(batches))})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid batch id")
		return
	}
	batch, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrBatchNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "batch not found")
			return
		}
		h.logger.Error("get batch", slog.Any("error", err), slog.Int64("id", id))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "failed to load batch")
		return
	}
	httpx.JSON(w, http.StatusOK, batch)
}
