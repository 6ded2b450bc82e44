package adjustment

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsmart/jsmart-inventory/internal/catalog"
	"github.com/jsmart/jsmart-inventory/internal/shared"
	"github.com/jsmart/jsmart-inventory/internal/stocks"
)

func testProduct() catalog.Product {
	return catalog.Product{ID: 42, Name: "Mineral Water 1L", Quantity: 120}
}

func testBatch(id, qty int64) stocks.StockBatch {
	return stocks.StockBatch{ID: id, BatchNumber: "B-00" + string(rune('0'+id)), ProductID: 42, Quantity: qty}
}

// readyForm walks a form to the batch-chosen state with every field
// filled and evidence attached.
func readyForm(t *testing.T) *Form {
	t.Helper()
	form := NewForm()
	token, err := form.SelectProduct(testProduct())
	require.NoError(t, err)
	require.True(t, form.ApplyBatches(token, []stocks.StockBatch{testBatch(1, 5)}))
	require.NoError(t, form.SelectBatch(testBatch(1, 5)))
	require.NoError(t, form.SetDetails(3, TypeDamaged, "Water damage"))
	_, err = form.AttachEvidence(EvidenceRef{Name: "photo.jpg", ContentType: "image/jpeg", Size: 1024})
	require.NoError(t, err)
	return form
}

func TestValidateOrder(t *testing.T) {
	form := NewForm()
	require.ErrorIs(t, form.Validate(), ErrNoProductSelected)
	assert.Equal(t, "Please select a product.", UserMessage(form.Validate()))

	token, err := form.SelectProduct(testProduct())
	require.NoError(t, err)
	form.ApplyBatches(token, []stocks.StockBatch{testBatch(1, 5)})
	require.ErrorIs(t, form.Validate(), ErrNoBatchSelected)
	assert.Equal(t, "Please select a specific batch.", UserMessage(form.Validate()))

	require.NoError(t, form.SelectBatch(testBatch(1, 5)))
	require.NoError(t, form.SetDetails(3, TypeDamaged, "Water damage"))
	require.ErrorIs(t, form.Validate(), ErrEvidenceRequired)
	assert.Equal(t, "Photo evidence is mandatory for removals", UserMessage(form.Validate()))

	_, err = form.AttachEvidence(EvidenceRef{Name: "photo.jpg"})
	require.NoError(t, err)
	require.NoError(t, form.Validate())
}

func TestValidateQuantityCeiling(t *testing.T) {
	form := readyForm(t)
	require.NoError(t, form.SetDetails(10, TypeDamaged, "Water damage"))

	err := form.Validate()
	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(5), insufficient.Available)
	assert.Equal(t, "Insufficient stock. Only 5 available.", UserMessage(err))
}

func TestValidateRejectsBadDetails(t *testing.T) {
	cases := []struct {
		name     string
		quantity int64
		typ      Type
		reason   string
		want     error
	}{
		{"zero quantity", 0, TypeDamaged, "Water damage", ErrInvalidQuantity},
		{"negative quantity", -2, TypeDamaged, "Water damage", ErrInvalidQuantity},
		{"unknown type", 3, Type("LOST"), "Water damage", ErrInvalidType},
		{"empty reason", 3, TypeDamaged, "", ErrReasonRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			form := readyForm(t)
			require.NoError(t, form.SetDetails(tc.quantity, tc.typ, tc.reason))
			require.ErrorIs(t, form.Validate(), tc.want)
		})
	}
}

func TestSelectProductClearsBatchSelection(t *testing.T) {
	form := readyForm(t)
	require.NotNil(t, form.Batch)

	_, err := form.SelectProduct(catalog.Product{ID: 99, Name: "Olive Oil"})
	require.NoError(t, err)

	assert.Nil(t, form.Batch)
	assert.Empty(t, form.Batches)
	assert.Equal(t, FormProductChosen, form.State)
}

func TestStaleBatchLoadDiscarded(t *testing.T) {
	form := NewForm()
	first, err := form.SelectProduct(testProduct())
	require.NoError(t, err)
	second, err := form.SelectProduct(catalog.Product{ID: 99, Name: "Olive Oil"})
	require.NoError(t, err)

	// The slow response for the first product arrives after the
	// operator already switched; it must not land in the form.
	assert.False(t, form.ApplyBatches(first, []stocks.StockBatch{testBatch(1, 5)}))
	assert.Empty(t, form.Batches)

	fresh := stocks.StockBatch{ID: 7, BatchNumber: "B-007", ProductID: 99, Quantity: 3}
	assert.True(t, form.ApplyBatches(second, []stocks.StockBatch{fresh}))
	assert.Len(t, form.Batches, 1)
	assert.Equal(t, int64(7), form.Batches[0].ID)
}

func TestApplyBatchesFiltersDepleted(t *testing.T) {
	form := NewForm()
	token, err := form.SelectProduct(testProduct())
	require.NoError(t, err)

	require.True(t, form.ApplyBatches(token, []stocks.StockBatch{
		testBatch(1, 5),
		testBatch(2, 0),
	}))

	require.Len(t, form.Batches, 1)
	assert.Equal(t, int64(1), form.Batches[0].ID)
}

func TestSelectBatchRejectsWrongProduct(t *testing.T) {
	form := NewForm()
	_, err := form.SelectProduct(testProduct())
	require.NoError(t, err)

	foreign := stocks.StockBatch{ID: 8, ProductID: 777, Quantity: 4}
	require.ErrorIs(t, form.SelectBatch(foreign), ErrBatchMismatch)
}

func TestSubmitLifecycleSuccess(t *testing.T) {
	form := readyForm(t)
	tokenBefore := form.BatchToken

	require.NoError(t, form.BeginSubmit())
	assert.Equal(t, FormSubmitting, form.State)
	require.ErrorIs(t, form.BeginSubmit(), ErrSubmitInFlight)

	form.CompleteSubmit()
	assert.Equal(t, FormIdle, form.State)
	assert.Nil(t, form.Product)
	assert.Nil(t, form.Batch)
	assert.True(t, form.Evidence.IsZero())
	assert.Equal(t, tokenBefore, form.BatchToken)
}

func TestSubmitLifecycleFailureKeepsFields(t *testing.T) {
	form := readyForm(t)
	require.NoError(t, form.BeginSubmit())

	form.FailSubmit()

	assert.Equal(t, FormBatchChosen, form.State)
	require.NotNil(t, form.Product)
	require.NotNil(t, form.Batch)
	assert.Equal(t, int64(3), form.Quantity)
	assert.Equal(t, TypeDamaged, form.Type)
	assert.Equal(t, "Water damage", form.Reason)
	assert.Equal(t, "photo.jpg", form.Evidence.Name)
}

func TestBeginSubmitValidatesFirst(t *testing.T) {
	form := readyForm(t)
	removed := form.ClearEvidence()
	assert.Equal(t, "photo.jpg", removed.Name)

	err := form.BeginSubmit()
	require.ErrorIs(t, err, ErrEvidenceRequired)
	assert.Equal(t, FormBatchChosen, form.State)
}

func TestSelectionLockedWhileSubmitting(t *testing.T) {
	form := readyForm(t)
	require.NoError(t, form.BeginSubmit())

	_, err := form.SelectProduct(testProduct())
	require.ErrorIs(t, err, ErrSubmitInFlight)
	require.ErrorIs(t, form.SelectBatch(testBatch(1, 5)), ErrSubmitInFlight)
	require.ErrorIs(t, form.SetDetails(1, TypeRemove, "x"), ErrSubmitInFlight)
	_, err = form.AttachEvidence(EvidenceRef{Name: "other.jpg"})
	require.ErrorIs(t, err, ErrSubmitInFlight)
}

func TestAttachEvidenceReturnsPrevious(t *testing.T) {
	form := readyForm(t)

	previous, err := form.AttachEvidence(EvidenceRef{Name: "retake.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "photo.jpg", previous.Name)
	assert.Equal(t, "retake.jpg", form.Evidence.Name)

	// An empty ref must not clobber the attachment.
	previous, err = form.AttachEvidence(EvidenceRef{})
	require.NoError(t, err)
	assert.True(t, previous.IsZero())
	assert.Equal(t, "retake.jpg", form.Evidence.Name)
}

func TestClearEvidenceIdempotent(t *testing.T) {
	form := readyForm(t)

	first := form.ClearEvidence()
	assert.Equal(t, "photo.jpg", first.Name)
	second := form.ClearEvidence()
	assert.True(t, second.IsZero())
}

func TestCancelReleasesEvidence(t *testing.T) {
	form := readyForm(t)
	token := form.BatchToken

	removed := form.Cancel()

	assert.Equal(t, "photo.jpg", removed.Name)
	assert.Equal(t, FormIdle, form.State)
	assert.Nil(t, form.Product)
	assert.Equal(t, token, form.BatchToken)
}

func TestUserMessageFallsBackToGeneric(t *testing.T) {
	msg := UserMessage(errors.New("pq: deadlock detected"))
	assert.Equal(t, "Something went wrong. Please try again.", msg)
}

func TestUserMessagePassesSafeText(t *testing.T) {
	err := shared.UserSafe(errors.New("dial tcp 10.0.0.5:5432"), "Product not found.")
	assert.Equal(t, "Product not found.", UserMessage(err))
}
