package adjustment

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jsmart/jsmart-inventory/internal/shared"
)

// Type enumerates supported stock removal categories.
type Type string

const (
	// TypeRemove is a plain manual removal.
	TypeRemove Type = "REMOVE"
	// TypeExpired removes stock past its expiry date.
	TypeExpired Type = "EXPIRED"
	// TypeDamaged removes stock damaged in storage or transit.
	TypeDamaged Type = "DAMAGED"
	// TypeAdjustment corrects a counting discrepancy.
	TypeAdjustment Type = "ADJUSTMENT"
)

// ParseType validates a raw adjustment type value.
func ParseType(raw string) (Type, error) {
	switch Type(raw) {
	case TypeRemove, TypeExpired, TypeDamaged, TypeAdjustment:
		return Type(raw), nil
	}
	return "", ErrInvalidType
}

// Status tracks the approval lifecycle of a request.
type Status string

const (
	// StatusPending awaits a reviewer decision.
	StatusPending Status = "PENDING"
	// StatusApproved means the batch was depleted.
	StatusApproved Status = "APPROVED"
	// StatusRejected means the request was declined.
	StatusRejected Status = "REJECTED"
)

// Request is a submitted stock adjustment awaiting or past review. The
// batch quantity is only ever mutated by an approval, never by the
// submitting workflow.
type Request struct {
	ID           uuid.UUID  `json:"id"`
	ProductID    int64      `json:"product_id"`
	BatchID      int64      `json:"stock_batch_id"`
	Type         Type       `json:"type"`
	Quantity     int64      `json:"quantity"`
	Reason       string     `json:"reason"`
	EvidenceName string     `json:"evidence_name"`
	Status       Status     `json:"status"`
	SubmittedBy  int64      `json:"submitted_by"`
	SubmittedAt  time.Time  `json:"submitted_at"`
	DecidedBy    int64      `json:"decided_by,omitempty"`
	DecidedAt    *time.Time `json:"decided_at,omitempty"`
	DecisionNote string     `json:"decision_note,omitempty"`
}

// ListFilter narrows request listings.
type ListFilter struct {
	Status Status
	Page   int
	Limit  int
}

// Validation and lifecycle errors. The messages on the validation set
// double as operator-facing text and are shown verbatim.
var (
	ErrNoProductSelected = errors.New("Please select a product.")
	ErrNoBatchSelected   = errors.New("Please select a specific batch.")
	ErrEvidenceRequired  = errors.New("Photo evidence is mandatory for removals")
	ErrInvalidQuantity   = errors.New("Quantity must be a positive whole number.")
	ErrReasonRequired    = errors.New("A reason for the removal is required.")
	ErrInvalidType       = errors.New("Unknown adjustment type.")

	ErrSubmitInFlight = errors.New("adjustment: submission already in progress")
	ErrNotFound       = errors.New("adjustment: request not found")
	ErrAlreadyDecided = errors.New("adjustment: request already decided")
	ErrBatchMismatch  = errors.New("adjustment: batch does not belong to the selected product")
	ErrBatchNotFound  = errors.New("adjustment: stock batch not found")
)

// InsufficientStockError rejects a quantity above the batch remainder.
// Available is read live from the selected batch.
type InsufficientStockError struct {
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock. Only %d available.", e.Available)
}

// UserMessage maps workflow errors to operator-facing text. Validation
// errors pass through verbatim; anything else collapses to a generic
// fallback so raw service errors never reach the screen.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var insufficient *InsufficientStockError
	if errors.As(err, &insufficient) {
		return insufficient.Error()
	}
	for _, known := range []error{
		ErrNoProductSelected,
		ErrNoBatchSelected,
		ErrEvidenceRequired,
		ErrInvalidQuantity,
		ErrReasonRequired,
		ErrInvalidType,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	switch {
	case errors.Is(err, ErrEvidenceNotImage):
		return "Evidence must be an image file."
	case errors.Is(err, ErrEvidenceTooLarge):
		return "Evidence photo is too large."
	}
	return shared.UserSafeMessage(err)
}

// IsValidationError reports whether err belongs to the client-side
// precondition set rather than a service failure.
func IsValidationError(err error) bool {
	var insufficient *InsufficientStockError
	if errors.As(err, &insufficient) {
		return true
	}
	for _, known := range []error{
		ErrNoProductSelected,
		ErrNoBatchSelected,
		ErrEvidenceRequired,
		ErrInvalidQuantity,
		ErrReasonRequired,
		ErrInvalidType,
		ErrEvidenceNotImage,
		ErrEvidenceTooLarge,
	} {
		if errors.Is(err, known) {
			return true
		}
	}
	return false
}
