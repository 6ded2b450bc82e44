package adjustment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jsmart/jsmart-inventory/internal/catalog"
	"github.com/jsmart/jsmart-inventory/internal/notify"
	"github.com/jsmart/jsmart-inventory/internal/observability"
	"github.com/jsmart/jsmart-inventory/internal/platform/httpx"
	"github.com/jsmart/jsmart-inventory/internal/shared"
	"github.com/jsmart/jsmart-inventory/internal/stocks"
)

// CatalogReader looks up products for the form.
type CatalogReader interface {
	Get(ctx context.Context, id int64) (catalog.Product, error)
}

// StockReader looks up batches for the form.
type StockReader interface {
	ListForProduct(ctx context.Context, productID int64) ([]stocks.StockBatch, error)
	Get(ctx context.Context, id int64) (stocks.StockBatch, error)
}

// Handler exposes the adjustment workflow over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	forms    *FormStore
	evidence *EvidenceStore
	catalog  CatalogReader
	stocks   StockReader
	notify   *notify.Center
	metrics  *observability.Metrics
}

// HandlerParams groups Handler dependencies.
type HandlerParams struct {
	Logger   *slog.Logger
	Service  *Service
	Forms    *FormStore
	Evidence *EvidenceStore
	Catalog  CatalogReader
	Stocks   StockReader
	Notify   *notify.Center
	Metrics  *observability.Metrics
}

// NewHandler constructs Handler.
func NewHandler(p HandlerParams) *Handler {
	return &Handler{
		logger:   p.Logger,
		service:  p.Service,
		forms:    p.Forms,
		evidence: p.Evidence,
		catalog:  p.Catalog,
		stocks:   p.Stocks,
		notify:   p.Notify,
		metrics:  p.Metrics,
	}
}

// MountFormRoutes registers the per-session removal form routes.
func (h *Handler) MountFormRoutes(r chi.Router) {
	r.Get("/", h.handleFormGet)
	r.Delete("/", h.handleFormCancel)
	r.Post("/product", h.handleFormProduct)
	r.Post("/batch", h.handleFormBatch)
	r.Post("/details", h.handleFormDetails)
	r.Post("/evidence", h.handleFormEvidence)
	r.Delete("/evidence", h.handleFormEvidenceClear)
	r.Post("/submit", h.handleFormSubmit)
}

// MountReadRoutes registers the request listing and detail routes.
func (h *Handler) MountReadRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
	r.Get("/{id}/history", h.handleHistory)
	r.Get("/evidence/{name}", h.handleEvidenceFile)
}

// MountDecisionRoutes registers the approve and reject routes.
func (h *Handler) MountDecisionRoutes(r chi.Router) {
	r.Post("/{id}/approve", h.handleApprove)
	r.Post("/{id}/reject", h.handleReject)
}

func (h *Handler) handleFormGet(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	form, err := h.forms.Load(r.Context(), sess.ID)
	if err != nil {
		h.logger.Error("form load failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, form)
}

func (h *Handler) handleFormProduct(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var payload struct {
		ProductID int64 `json:"product_id"`
	}
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	form, err := h.forms.Load(r.Context(), sess.ID)
	if err != nil {
		h.logger.Error("form load failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	product, err := h.catalog.Get(r.Context(), payload.ProductID)
	if err != nil {
		h.workflowFailure(w, sess.ID, err)
		return
	}
	token, err := form.SelectProduct(product)
	if err != nil {
		h.workflowFailure(w, sess.ID, err)
		return
	}
	batches, err := h.stocks.ListForProduct(r.Context(), product.ID)
	if err != nil {
		// The selection stands; only the batch list failed to load.
		if saveErr := h.forms.Save(r.Context(), sess.ID, form); saveErr != nil {
			h.logger.Error("form save failed", slog.Any("error", saveErr))
		}
		h.workflowFailure(w, sess.ID, err)
		return
	}
	form.ApplyBatches(token, batches)
	if err := h.forms.Save(r.Context(), sess.ID, form); err != nil {
		h.logger.Error("form save failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, form)
}

func (h *Handler) handleFormBatch(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var payload struct {
		StockBatchID int64 `json:"stock_batch_id"`
	}
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	form, err := h.forms.Load(r.Context(), sess.ID)
	if err != nil {
		h.logger.Error("form load failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	batch, err := h.stocks.Get(r.Context(), payload.StockBatchID)
	if err != nil {
		h.workflowFailure(w, sess.ID, err)
		return
	}
	if err := form.SelectBatch(batch); err != nil {
		h.workflowFailure(w, sess.ID, err)
		return
	}
	if err := h.forms.Save(r.Context(), sess.ID, form); err != nil {
		h.logger.Error("form save failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, form)
}

func (h *Handler) handleFormDetails(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var payload struct {
		Quantity int64  `json:"quantity"`
		Type     string `json:"type"`
		Reason   string `json:"reason"`
	}
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	form, err := h.forms.Load(r.Context(), sess.ID)
	if err != nil {
		h.logger.Error("form load failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if err := form.SetDetails(payload.Quantity, Type(payload.Type), payload.Reason); err != nil {
		h.workflowFailure(w, sess.ID, err)
		return
	}
	if err := h.forms.Save(r.Context(), sess.ID, form); err != nil {
		h.logger.Error("form save failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, form)
}

func (h *Handler) handleFormEvidence(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	form, err := h.forms.Load(r.Context(), sess.ID)
	if err != nil {
		h.logger.Error("form load failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	file, header, err := r.FormFile("evidence_photo")
	if err != nil {
		h.workflowFailure(w, sess.ID, ErrEvidenceRequired)
		return
	}
	defer file.Close()
	ref, err := h.evidence.Save(file, header.Filename)
	if err != nil {
		h.workflowFailure(w, sess.ID, err)
		return
	}
	previous, err := form.AttachEvidence(ref)
	if err != nil {
		if rmErr := h.evidence.Remove(ref.Name); rmErr != nil {
			h.logger.Warn("evidence cleanup failed", slog.String("file", ref.Name), slog.Any("error", rmErr))
		}
		h.workflowFailure(w, sess.ID, err)
		return
	}
	if !previous.IsZero() {
		if err := h.evidence.Remove(previous.Name); err != nil {
			h.logger.Warn("evidence cleanup failed", slog.String("file", previous.Name), slog.Any("error", err))
		}
	}
	if err := h.forms.Save(r.Context(), sess.ID, form); err != nil {
		h.logger.Error("form save failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, form)
}

func (h *Handler) handleFormEvidenceClear(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	form, err := h.forms.Load(r.Context(), sess.ID)
	if err != nil {
		h.logger.Error("form load failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	removed := form.ClearEvidence()
	if !removed.IsZero() {
		if err := h.evidence.Remove(removed.Name); err != nil {
			h.logger.Warn("evidence cleanup failed", slog.String("file", removed.Name), slog.Any("error", err))
		}
	}
	if err := h.forms.Save(r.Context(), sess.ID, form); err != nil {
		h.logger.Error("form save failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, form)
}

func (h *Handler) handleFormCancel(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	form, err := h.forms.Load(r.Context(), sess.ID)
	if err != nil {
		h.logger.Error("form load failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	removed := form.Cancel()
	if !removed.IsZero() {
		if err := h.evidence.Remove(removed.Name); err != nil {
			h.logger.Warn("evidence cleanup failed", slog.String("file", removed.Name), slog.Any("error", err))
		}
	}
	if err := h.forms.Delete(r.Context(), sess.ID); err != nil {
		h.logger.Error("form delete failed", slog.Any("error", err))
	}
	httpx.NoContent(w)
}

func (h *Handler) handleFormSubmit(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	form, err := h.forms.Load(r.Context(), sess.ID)
	if err != nil {
		h.logger.Error("form load failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if err := form.BeginSubmit(); err != nil {
		h.workflowFailure(w, sess.ID, err)
		return
	}
	if err := h.forms.Save(r.Context(), sess.ID, form); err != nil {
		h.logger.Error("form save failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	userID, _ := strconv.ParseInt(sess.User(), 10, 64)
	req, err := h.service.Submit(r.Context(), SubmitInput{
		ProductID:      form.Product.ID,
		BatchID:        form.Batch.ID,
		Type:           form.Type,
		Quantity:       form.Quantity,
		Reason:         form.Reason,
		EvidenceName:   form.Evidence.Name,
		SubmittedBy:    userID,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		form.FailSubmit()
		if saveErr := h.forms.Save(r.Context(), sess.ID, form); saveErr != nil {
			h.logger.Error("form save failed", slog.Any("error", saveErr))
		}
		h.metrics.CountAdjustment("failed")
		h.workflowFailure(w, sess.ID, err)
		return
	}

	form.CompleteSubmit()
	if err := h.forms.Save(r.Context(), sess.ID, form); err != nil {
		h.logger.Error("form save failed", slog.Any("error", err))
	}
	h.metrics.CountAdjustment("submitted")
	h.notify.Notify(sess.ID, "Stock adjustment submitted for approval.", notify.KindSuccess)
	httpx.JSON(w, http.StatusCreated, req)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Status: Status(r.URL.Query().Get("status"))}
	if page, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		filter.Limit = limit
	}
	requests, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("adjustment list failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"requests": requests, "total": total})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid request id")
		return
	}
	req, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondReviewError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid request id")
		return
	}
	history, err := h.service.History(r.Context(), id)
	if err != nil {
		h.respondReviewError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"history": history})
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Approve)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Reject)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID, int64, string) (Request, error)) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid request id")
		return
	}
	var payload struct {
		Note string `json:"note"`
	}
	if err := httpx.DecodeJSON(r, &payload); err != nil && !errors.Is(err, io.EOF) {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	reviewerID, _ := strconv.ParseInt(sess.User(), 10, 64)
	req, err := fn(r.Context(), id, reviewerID, payload.Note)
	if err != nil {
		h.respondReviewError(w, err)
		return
	}
	switch req.Status {
	case StatusApproved:
		h.metrics.CountAdjustment("approved")
	case StatusRejected:
		h.metrics.CountAdjustment("rejected")
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) handleEvidenceFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	file, err := h.evidence.Open(name)
	if err != nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "evidence file not found")
		return
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	http.ServeContent(w, r, name, info.ModTime(), file)
}

// workflowFailure reports a form-level failure the way the workflow
// always does: an error notification with the user-safe message. The
// same message goes into the HTTP response so API clients see it too.
func (h *Handler) workflowFailure(w http.ResponseWriter, scope string, err error) {
	msg := UserMessage(err)
	h.notify.Notify(scope, msg, notify.KindError)
	status := http.StatusUnprocessableEntity
	if !IsValidationError(err) {
		switch {
		case errors.Is(err, ErrSubmitInFlight):
			status = http.StatusConflict
		case errors.Is(err, catalog.ErrProductNotFound), errors.Is(err, stocks.ErrBatchNotFound), errors.Is(err, ErrBatchNotFound):
			status = http.StatusNotFound
		default:
			h.logger.Error("adjustment workflow failure", slog.Any("error", err))
			status = http.StatusInternalServerError
		}
	}
	httpx.Problem(w, status, "Adjustment Rejected", msg)
}

func (h *Handler) respondReviewError(w http.ResponseWriter, err error) {
	var insufficient *InsufficientStockError
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "adjustment request not found")
	case errors.Is(err, ErrAlreadyDecided):
		httpx.Problem(w, http.StatusConflict, "Conflict", "request already decided")
	case errors.Is(err, ErrBatchNotFound):
		httpx.Problem(w, http.StatusConflict, "Conflict", "stock batch no longer exists")
	case errors.As(err, &insufficient):
		httpx.Problem(w, http.StatusConflict, "Conflict", insufficient.Error())
	default:
		h.logger.Error("adjustment review failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
