package adjustment

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jsmart/jsmart-inventory/internal/shared"
)

// Module identifies this workflow in approval and idempotency records.
const Module = "adjustment"

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id uuid.UUID) (Request, error)
	List(ctx context.Context, filter ListFilter) ([]Request, int64, error)
	EvidenceInUse(ctx context.Context) (map[string]bool, error)
}

// IdempotencyPort guards against duplicate submissions.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// ApprovalPort records the approval trail.
type ApprovalPort interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
	List(ctx context.Context, module string, ref uuid.UUID) ([]shared.ApprovalLog, error)
}

// AuditPort records audit entries.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CatalogPort invalidates cached product listings after stock changes.
type CatalogPort interface {
	Invalidate(ctx context.Context) error
}

// Notifier fans out review work after a request is stored.
type Notifier interface {
	AdjustmentSubmitted(ctx context.Context, req Request) error
}

// EvidencePort releases stored evidence files.
type EvidencePort interface {
	Remove(name string) error
}

// Service implements the adjustment workflow.
type Service struct {
	logger   *slog.Logger
	repo     RepositoryPort
	idempo   IdempotencyPort
	approval ApprovalPort
	audit    AuditPort
	catalog  CatalogPort
	notifier Notifier
	evidence EvidencePort
	now      func() time.Time
}

// ServiceParams groups Service dependencies.
type ServiceParams struct {
	Logger   *slog.Logger
	Repo     RepositoryPort
	Idempo   IdempotencyPort
	Approval ApprovalPort
	Audit    AuditPort
	Catalog  CatalogPort
	Notifier Notifier
	Evidence EvidencePort
}

// NewService constructs Service.
func NewService(p ServiceParams) *Service {
	return &Service{
		logger:   p.Logger,
		repo:     p.Repo,
		idempo:   p.Idempo,
		approval: p.Approval,
		audit:    p.Audit,
		catalog:  p.Catalog,
		notifier: p.Notifier,
		evidence: p.Evidence,
		now:      time.Now,
	}
}

// SubmitInput carries a validated form into the service.
type SubmitInput struct {
	ProductID      int64
	BatchID        int64
	Type           Type
	Quantity       int64
	Reason         string
	EvidenceName   string
	SubmittedBy    int64
	IdempotencyKey string
}

func (in SubmitInput) validate() error {
	if in.ProductID <= 0 {
		return ErrNoProductSelected
	}
	if in.BatchID <= 0 {
		return ErrNoBatchSelected
	}
	if in.EvidenceName == "" {
		return ErrEvidenceRequired
	}
	if in.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if _, err := ParseType(string(in.Type)); err != nil {
		return err
	}
	if strings.TrimSpace(in.Reason) == "" {
		return ErrReasonRequired
	}
	return nil
}

// Submit stores a pending adjustment request. The form already validated
// client state; all rules are re-checked here against the database so a
// stale form cannot bypass them.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Request, error) {
	if err := in.validate(); err != nil {
		return Request{}, err
	}
	if in.IdempotencyKey != "" {
		if err := s.idempo.CheckAndInsert(ctx, in.IdempotencyKey, Module); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return Request{}, ErrSubmitInFlight
			}
			return Request{}, err
		}
	}

	req := Request{
		ID:           uuid.New(),
		ProductID:    in.ProductID,
		BatchID:      in.BatchID,
		Type:         in.Type,
		Quantity:     in.Quantity,
		Reason:       strings.TrimSpace(in.Reason),
		EvidenceName: in.EvidenceName,
		Status:       StatusPending,
		SubmittedBy:  in.SubmittedBy,
		SubmittedAt:  s.now().UTC(),
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		batch, err := tx.GetBatchForUpdate(ctx, in.BatchID)
		if err != nil {
			return err
		}
		if batch.ProductID != in.ProductID {
			return ErrBatchMismatch
		}
		if in.Quantity > batch.Quantity {
			return &InsufficientStockError{Available: batch.Quantity}
		}
		return tx.InsertRequest(ctx, req)
	})
	if err != nil {
		if in.IdempotencyKey != "" {
			if delErr := s.idempo.Delete(ctx, in.IdempotencyKey); delErr != nil {
				s.logger.Warn("idempotency key release failed", slog.String("key", in.IdempotencyKey), slog.Any("error", delErr))
			}
		}
		return Request{}, err
	}

	if err := s.approval.Record(ctx, shared.ApprovalLog{
		Module:  Module,
		RefID:   req.ID,
		ActorID: req.SubmittedBy,
		Action:  shared.ApprovalSubmit,
		Note:    req.Reason,
	}); err != nil {
		s.logger.Warn("approval record failed", slog.String("request_id", req.ID.String()), slog.Any("error", err))
	}
	s.recordAudit(ctx, req.SubmittedBy, "adjustment.submit", req)
	if s.notifier != nil {
		if err := s.notifier.AdjustmentSubmitted(ctx, req); err != nil {
			s.logger.Warn("reviewer notification enqueue failed", slog.String("request_id", req.ID.String()), slog.Any("error", err))
		}
	}
	return req, nil
}

// Approve applies a pending request: the batch quantity is decremented
// inside the same transaction that flips the status, and the decrement is
// re-checked against the live quantity so the batch never goes negative.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, reviewerID int64, note string) (Request, error) {
	var req Request
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		req, err = tx.GetRequestForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if req.Status != StatusPending {
			return ErrAlreadyDecided
		}
		batch, err := tx.GetBatchForUpdate(ctx, req.BatchID)
		if err != nil {
			return err
		}
		if req.Quantity > batch.Quantity {
			return &InsufficientStockError{Available: batch.Quantity}
		}
		if err := tx.DecrementBatch(ctx, req.BatchID, req.Quantity); err != nil {
			return err
		}
		decidedAt := s.now().UTC()
		if err := tx.UpdateDecision(ctx, id, StatusApproved, reviewerID, note, decidedAt); err != nil {
			return err
		}
		req.Status = StatusApproved
		req.DecidedBy = reviewerID
		req.DecidedAt = &decidedAt
		req.DecisionNote = note
		return nil
	})
	if err != nil {
		return Request{}, err
	}

	if err := s.approval.Record(ctx, shared.ApprovalLog{
		Module:  Module,
		RefID:   req.ID,
		ActorID: reviewerID,
		Action:  shared.ApprovalApprove,
		Note:    note,
	}); err != nil {
		s.logger.Warn("approval record failed", slog.String("request_id", req.ID.String()), slog.Any("error", err))
	}
	s.recordAudit(ctx, reviewerID, "adjustment.approve", req)
	if s.catalog != nil {
		if err := s.catalog.Invalidate(ctx); err != nil {
			s.logger.Warn("catalog invalidation failed", slog.Any("error", err))
		}
	}
	return req, nil
}

// Reject declines a pending request and releases its evidence file.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, reviewerID int64, note string) (Request, error) {
	var req Request
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		req, err = tx.GetRequestForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if req.Status != StatusPending {
			return ErrAlreadyDecided
		}
		decidedAt := s.now().UTC()
		if err := tx.UpdateDecision(ctx, id, StatusRejected, reviewerID, note, decidedAt); err != nil {
			return err
		}
		req.Status = StatusRejected
		req.DecidedBy = reviewerID
		req.DecidedAt = &decidedAt
		req.DecisionNote = note
		return nil
	})
	if err != nil {
		return Request{}, err
	}

	if err := s.approval.Record(ctx, shared.ApprovalLog{
		Module:  Module,
		RefID:   req.ID,
		ActorID: reviewerID,
		Action:  shared.ApprovalReject,
		Note:    note,
	}); err != nil {
		s.logger.Warn("approval record failed", slog.String("request_id", req.ID.String()), slog.Any("error", err))
	}
	s.recordAudit(ctx, reviewerID, "adjustment.reject", req)
	if s.evidence != nil && req.EvidenceName != "" {
		if err := s.evidence.Remove(req.EvidenceName); err != nil {
			s.logger.Warn("evidence cleanup failed", slog.String("file", req.EvidenceName), slog.Any("error", err))
		}
	}
	return req, nil
}

// Get returns one request.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Request, error) {
	return s.repo.Get(ctx, id)
}

// List returns requests for the review queue.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Request, int64, error) {
	return s.repo.List(ctx, filter)
}

// History returns the approval trail of one request.
func (s *Service) History(ctx context.Context, id uuid.UUID) ([]shared.ApprovalLog, error) {
	return s.approval.List(ctx, Module, id)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, req Request) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "adjustment_request",
		EntityID: req.ID.String(),
		Meta: map[string]any{
			"product_id":     req.ProductID,
			"stock_batch_id": req.BatchID,
			"type":           string(req.Type),
			"quantity":       req.Quantity,
			"status":         string(req.Status),
		},
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("request_id", req.ID.String()), slog.Any("error", err))
	}
}
