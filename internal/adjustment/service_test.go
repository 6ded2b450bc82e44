package adjustment

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsmart/jsmart-inventory/internal/shared"
	"github.com/jsmart/jsmart-inventory/internal/stocks"
)

type fakeRepo struct {
	batches  map[int64]stocks.StockBatch
	requests map[uuid.UUID]Request
	inserts  int
}

func newFakeRepo(batches ...stocks.StockBatch) *fakeRepo {
	repo := &fakeRepo{
		batches:  make(map[int64]stocks.StockBatch),
		requests: make(map[uuid.UUID]Request),
	}
	for _, b := range batches {
		repo.batches[b.ID] = b
	}
	return repo
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, f)
}

func (f *fakeRepo) Get(_ context.Context, id uuid.UUID) (Request, error) {
	req, ok := f.requests[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	return req, nil
}

func (f *fakeRepo) List(context.Context, ListFilter) ([]Request, int64, error) {
	out := make([]Request, 0, len(f.requests))
	for _, req := range f.requests {
		out = append(out, req)
	}
	return out, int64(len(out)), nil
}

func (f *fakeRepo) EvidenceInUse(context.Context) (map[string]bool, error) {
	names := make(map[string]bool)
	for _, req := range f.requests {
		names[req.EvidenceName] = true
	}
	return names, nil
}

func (f *fakeRepo) InsertRequest(_ context.Context, req Request) error {
	f.requests[req.ID] = req
	f.inserts++
	return nil
}

func (f *fakeRepo) GetRequestForUpdate(_ context.Context, id uuid.UUID) (Request, error) {
	req, ok := f.requests[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	return req, nil
}

func (f *fakeRepo) UpdateDecision(_ context.Context, id uuid.UUID, status Status, decidedBy int64, note string, at time.Time) error {
	req, ok := f.requests[id]
	if !ok {
		return ErrNotFound
	}
	req.Status = status
	req.DecidedBy = decidedBy
	req.DecisionNote = note
	req.DecidedAt = &at
	f.requests[id] = req
	return nil
}

func (f *fakeRepo) GetBatchForUpdate(_ context.Context, batchID int64) (stocks.StockBatch, error) {
	b, ok := f.batches[batchID]
	if !ok {
		return stocks.StockBatch{}, ErrBatchNotFound
	}
	return b, nil
}

func (f *fakeRepo) DecrementBatch(_ context.Context, batchID, quantity int64) error {
	b, ok := f.batches[batchID]
	if !ok || b.Quantity < quantity {
		return ErrBatchNotFound
	}
	b.Quantity -= quantity
	f.batches[batchID] = b
	return nil
}

type fakeIdempo struct {
	keys     map[string]bool
	conflict bool
}

func (f *fakeIdempo) CheckAndInsert(_ context.Context, key, _ string) error {
	if f.conflict || f.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	if f.keys == nil {
		f.keys = make(map[string]bool)
	}
	f.keys[key] = true
	return nil
}

func (f *fakeIdempo) Delete(_ context.Context, key string) error {
	delete(f.keys, key)
	return nil
}

type fakeApproval struct {
	logs []shared.ApprovalLog
}

func (f *fakeApproval) Record(_ context.Context, log shared.ApprovalLog) error {
	f.logs = append(f.logs, log)
	return nil
}

func (f *fakeApproval) List(_ context.Context, _ string, ref uuid.UUID) ([]shared.ApprovalLog, error) {
	out := []shared.ApprovalLog{}
	for _, log := range f.logs {
		if log.RefID == ref {
			out = append(out, log)
		}
	}
	return out, nil
}

type fakeAudit struct {
	entries []shared.AuditLog
}

func (f *fakeAudit) Record(_ context.Context, log shared.AuditLog) error {
	f.entries = append(f.entries, log)
	return nil
}

type fakeCatalog struct {
	invalidations int
}

func (f *fakeCatalog) Invalidate(context.Context) error {
	f.invalidations++
	return nil
}

type fakeNotifier struct {
	submitted []Request
}

func (f *fakeNotifier) AdjustmentSubmitted(_ context.Context, req Request) error {
	f.submitted = append(f.submitted, req)
	return nil
}

type fakeEvidence struct {
	removed []string
}

func (f *fakeEvidence) Remove(name string) error {
	f.removed = append(f.removed, name)
	return nil
}

type serviceFixture struct {
	service  *Service
	repo     *fakeRepo
	idempo   *fakeIdempo
	approval *fakeApproval
	audit    *fakeAudit
	catalog  *fakeCatalog
	notifier *fakeNotifier
	evidence *fakeEvidence
}

func newServiceFixture(batches ...stocks.StockBatch) *serviceFixture {
	fx := &serviceFixture{
		repo:     newFakeRepo(batches...),
		idempo:   &fakeIdempo{},
		approval: &fakeApproval{},
		audit:    &fakeAudit{},
		catalog:  &fakeCatalog{},
		notifier: &fakeNotifier{},
		evidence: &fakeEvidence{},
	}
	fx.service = NewService(ServiceParams{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Repo:     fx.repo,
		Idempo:   fx.idempo,
		Approval: fx.approval,
		Audit:    fx.audit,
		Catalog:  fx.catalog,
		Notifier: fx.notifier,
		Evidence: fx.evidence,
	})
	return fx
}

func validInput() SubmitInput {
	return SubmitInput{
		ProductID:      42,
		BatchID:        1,
		Type:           TypeDamaged,
		Quantity:       3,
		Reason:         "Water damage",
		EvidenceName:   "photo.jpg",
		SubmittedBy:    7,
		IdempotencyKey: "key-1",
	}
}

func TestSubmitStoresPendingRequest(t *testing.T) {
	fx := newServiceFixture(stocks.StockBatch{ID: 1, ProductID: 42, Quantity: 5})

	req, err := fx.service.Submit(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, StatusPending, req.Status)
	assert.Equal(t, int64(7), req.SubmittedBy)
	stored, err := fx.repo.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)

	// Submission never touches the batch; only an approval does.
	assert.Equal(t, int64(5), fx.repo.batches[1].Quantity)

	require.Len(t, fx.approval.logs, 1)
	assert.Equal(t, shared.ApprovalSubmit, fx.approval.logs[0].Action)
	require.Len(t, fx.notifier.submitted, 1)
	require.Len(t, fx.audit.entries, 1)
	assert.Equal(t, "adjustment.submit", fx.audit.entries[0].Action)
}

func TestSubmitRequiresEvidence(t *testing.T) {
	fx := newServiceFixture(stocks.StockBatch{ID: 1, ProductID: 42, Quantity: 5})
	in := validInput()
	in.EvidenceName = ""

	_, err := fx.service.Submit(context.Background(), in)
	require.ErrorIs(t, err, ErrEvidenceRequired)

	// Rejected before any persistence side effect.
	assert.Zero(t, fx.repo.inserts)
	assert.Empty(t, fx.idempo.keys)
	assert.Empty(t, fx.notifier.submitted)
}

func TestSubmitInsufficientStockReportsAvailable(t *testing.T) {
	fx := newServiceFixture(stocks.StockBatch{ID: 1, ProductID: 42, Quantity: 5})
	in := validInput()
	in.Quantity = 10

	_, err := fx.service.Submit(context.Background(), in)
	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(5), insufficient.Available)

	// The key is released so the corrected form can be resubmitted.
	assert.Empty(t, fx.idempo.keys)
	assert.Zero(t, fx.repo.inserts)
}

func TestSubmitRejectsForeignBatch(t *testing.T) {
	fx := newServiceFixture(stocks.StockBatch{ID: 1, ProductID: 777, Quantity: 5})

	_, err := fx.service.Submit(context.Background(), validInput())
	require.ErrorIs(t, err, ErrBatchMismatch)
	assert.Zero(t, fx.repo.inserts)
}

func TestSubmitDuplicateKeyBlocked(t *testing.T) {
	fx := newServiceFixture(stocks.StockBatch{ID: 1, ProductID: 42, Quantity: 5})

	_, err := fx.service.Submit(context.Background(), validInput())
	require.NoError(t, err)

	_, err = fx.service.Submit(context.Background(), validInput())
	require.ErrorIs(t, err, ErrSubmitInFlight)
	assert.Equal(t, 1, fx.repo.inserts)
}

func TestApproveDecrementsBatch(t *testing.T) {
	fx := newServiceFixture(stocks.StockBatch{ID: 1, ProductID: 42, Quantity: 5})
	req, err := fx.service.Submit(context.Background(), validInput())
	require.NoError(t, err)

	decided, err := fx.service.Approve(context.Background(), req.ID, 9, "verified on site")
	require.NoError(t, err)

	assert.Equal(t, StatusApproved, decided.Status)
	assert.Equal(t, int64(9), decided.DecidedBy)
	require.NotNil(t, decided.DecidedAt)
	assert.Equal(t, int64(2), fx.repo.batches[1].Quantity)
	assert.Equal(t, 1, fx.catalog.invalidations)

	history, err := fx.service.History(context.Background(), req.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, shared.ApprovalApprove, history[1].Action)
}

func TestApproveNeverDrivesBatchNegative(t *testing.T) {
	fx := newServiceFixture(stocks.StockBatch{ID: 1, ProductID: 42, Quantity: 5})

	first := validInput()
	first.Quantity = 4
	firstReq, err := fx.service.Submit(context.Background(), first)
	require.NoError(t, err)

	second := validInput()
	second.Quantity = 3
	second.IdempotencyKey = "key-2"
	secondReq, err := fx.service.Submit(context.Background(), second)
	require.NoError(t, err)

	_, err = fx.service.Approve(context.Background(), firstReq.ID, 9, "")
	require.NoError(t, err)

	// The second request was valid when submitted but the stock has
	// since moved; approving it now must fail, not go negative.
	_, err = fx.service.Approve(context.Background(), secondReq.ID, 9, "")
	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(1), insufficient.Available)
	assert.Equal(t, int64(1), fx.repo.batches[1].Quantity)

	stored, err := fx.repo.Get(context.Background(), secondReq.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
}

func TestApproveAlreadyDecided(t *testing.T) {
	fx := newServiceFixture(stocks.StockBatch{ID: 1, ProductID: 42, Quantity: 5})
	req, err := fx.service.Submit(context.Background(), validInput())
	require.NoError(t, err)

	_, err = fx.service.Approve(context.Background(), req.ID, 9, "")
	require.NoError(t, err)
	_, err = fx.service.Approve(context.Background(), req.ID, 9, "")
	require.ErrorIs(t, err, ErrAlreadyDecided)
	_, err = fx.service.Reject(context.Background(), req.ID, 9, "")
	require.ErrorIs(t, err, ErrAlreadyDecided)
}

func TestRejectReleasesEvidence(t *testing.T) {
	fx := newServiceFixture(stocks.StockBatch{ID: 1, ProductID: 42, Quantity: 5})
	req, err := fx.service.Submit(context.Background(), validInput())
	require.NoError(t, err)

	decided, err := fx.service.Reject(context.Background(), req.ID, 9, "photo unclear")
	require.NoError(t, err)

	assert.Equal(t, StatusRejected, decided.Status)
	assert.Equal(t, "photo unclear", decided.DecisionNote)
	// Rejection leaves the batch untouched and frees the photo.
	assert.Equal(t, int64(5), fx.repo.batches[1].Quantity)
	assert.Equal(t, []string{"photo.jpg"}, fx.evidence.removed)
	assert.Zero(t, fx.catalog.invalidations)
}
