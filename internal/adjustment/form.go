package adjustment

import (
	"github.com/jsmart/jsmart-inventory/internal/catalog"
	"github.com/jsmart/jsmart-inventory/internal/stocks"
)

// FormState names the phases of the removal workflow.
type FormState string

const (
	// FormIdle means no product chosen yet.
	FormIdle FormState = "IDLE"
	// FormProductChosen means batches are loading or loaded.
	FormProductChosen FormState = "PRODUCT_CHOSEN"
	// FormBatchChosen means the removal fields are active.
	FormBatchChosen FormState = "BATCH_CHOSEN"
	// FormSubmitting means a submission is in flight.
	FormSubmitting FormState = "SUBMITTING"
)

// Form is the explicit state machine behind the stock removal screen.
// Transitions are methods; there is no state bag to spread partial
// updates into, so states like "submitting without a batch" cannot be
// built. The struct is JSON-serialisable for persistence across
// requests.
type Form struct {
	State      FormState           `json:"state"`
	Product    *catalog.Product    `json:"product,omitempty"`
	Batches    []stocks.StockBatch `json:"batches,omitempty"`
	Batch      *stocks.StockBatch  `json:"batch,omitempty"`
	BatchToken uint64              `json:"batch_token"`
	Quantity   int64               `json:"quantity"`
	Type       Type                `json:"type"`
	Reason     string              `json:"reason"`
	Evidence   EvidenceRef         `json:"evidence"`
}

// NewForm returns an idle form.
func NewForm() *Form {
	return &Form{State: FormIdle}
}

// SelectProduct records the product and invalidates any previous batch
// selection so a stale batch can never be submitted against the wrong
// product. The returned token identifies the batch load this selection
// triggered; results for older tokens must be discarded.
func (f *Form) SelectProduct(p catalog.Product) (uint64, error) {
	if f.State == FormSubmitting {
		return 0, ErrSubmitInFlight
	}
	f.Product = &p
	f.Batch = nil
	f.Batches = nil
	f.State = FormProductChosen
	f.BatchToken++
	return f.BatchToken, nil
}

// ApplyBatches installs a batch load result. A result carrying an
// outdated token is dropped: the operator has since selected a
// different product and the list would belong to the wrong one.
// Depleted batches are filtered out regardless of the source.
func (f *Form) ApplyBatches(token uint64, batches []stocks.StockBatch) bool {
	if token != f.BatchToken || f.State == FormIdle || f.State == FormSubmitting {
		return false
	}
	available := make([]stocks.StockBatch, 0, len(batches))
	for _, b := range batches {
		if b.Quantity > 0 {
			available = append(available, b)
		}
	}
	f.Batches = available
	return true
}

// SelectBatch records the removal target and activates the detail
// fields.
func (f *Form) SelectBatch(b stocks.StockBatch) error {
	if f.State == FormSubmitting {
		return ErrSubmitInFlight
	}
	if f.Product == nil {
		return ErrNoProductSelected
	}
	if b.ProductID != f.Product.ID {
		return ErrBatchMismatch
	}
	f.Batch = &b
	f.State = FormBatchChosen
	return nil
}

// SetDetails stores quantity, type and reason. The fields only become
// active once a batch is chosen.
func (f *Form) SetDetails(quantity int64, typ Type, reason string) error {
	if f.State == FormSubmitting {
		return ErrSubmitInFlight
	}
	if f.State != FormBatchChosen {
		return ErrNoBatchSelected
	}
	f.Quantity = quantity
	f.Type = typ
	f.Reason = reason
	return nil
}

// AttachEvidence stores the photo reference. Attaching an empty ref is
// a no-op. The previously attached ref, if any, is returned so its
// file can be released.
func (f *Form) AttachEvidence(ref EvidenceRef) (previous EvidenceRef, err error) {
	if f.State == FormSubmitting {
		return EvidenceRef{}, ErrSubmitInFlight
	}
	if ref.IsZero() {
		return EvidenceRef{}, nil
	}
	previous = f.Evidence
	f.Evidence = ref
	return previous, nil
}

// ClearEvidence discards the attached photo and returns its ref for
// release. Clearing an already clear form is a no-op.
func (f *Form) ClearEvidence() EvidenceRef {
	removed := f.Evidence
	f.Evidence = EvidenceRef{}
	return removed
}

// Validate runs every submission precondition in order, before any
// network call: product, batch, evidence, then field sanity and the
// live quantity ceiling.
func (f *Form) Validate() error {
	if f.Product == nil {
		return ErrNoProductSelected
	}
	if f.Batch == nil {
		return ErrNoBatchSelected
	}
	if f.Evidence.IsZero() {
		return ErrEvidenceRequired
	}
	if f.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if _, err := ParseType(string(f.Type)); err != nil {
		return err
	}
	if f.Reason == "" {
		return ErrReasonRequired
	}
	if f.Quantity > f.Batch.Quantity {
		return &InsufficientStockError{Available: f.Batch.Quantity}
	}
	return nil
}

// BeginSubmit validates and moves the form into the submitting state,
// blocking a second concurrent submission of the same request.
func (f *Form) BeginSubmit() error {
	if f.State == FormSubmitting {
		return ErrSubmitInFlight
	}
	if err := f.Validate(); err != nil {
		return err
	}
	f.State = FormSubmitting
	return nil
}

// CompleteSubmit clears all transient state after a confirmed success.
// The evidence file now belongs to the stored request and is not
// released here.
func (f *Form) CompleteSubmit() {
	*f = Form{State: FormIdle, BatchToken: f.BatchToken}
}

// FailSubmit returns to the batch-chosen state keeping every entered
// value so the operator can correct and retry; only the submitting
// flag resets.
func (f *Form) FailSubmit() {
	if f.State == FormSubmitting {
		f.State = FormBatchChosen
	}
}

// Cancel resets the form and hands back the evidence ref so its file
// can be released.
func (f *Form) Cancel() EvidenceRef {
	removed := f.Evidence
	token := f.BatchToken
	*f = Form{State: FormIdle, BatchToken: token}
	return removed
}
