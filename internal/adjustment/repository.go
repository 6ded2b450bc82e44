package adjustment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jsmart/jsmart-inventory/internal/platform/db"
	"github.com/jsmart/jsmart-inventory/internal/stocks"
)

// Repository persists adjustment requests in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by the service.
type TxRepository interface {
	InsertRequest(ctx context.Context, req Request) error
	GetRequestForUpdate(ctx context.Context, id uuid.UUID) (Request, error)
	UpdateDecision(ctx context.Context, id uuid.UUID, status Status, decidedBy int64, note string, at time.Time) error
	GetBatchForUpdate(ctx context.Context, batchID int64) (stocks.StockBatch, error)
	DecrementBatch(ctx context.Context, batchID, quantity int64) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("adjustment repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const requestColumns = `id, product_id, stock_batch_id, type, quantity, reason, evidence_name, status, submitted_by, submitted_at, decided_by, decided_at, decision_note`

// Get fetches one request by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Request, error) {
	if r == nil {
		return Request{}, errors.New("adjustment repository not initialised")
	}
	row := r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM adjustment_requests WHERE id = $1`, id)
	return scanRequest(row)
}

// List returns requests, newest first, optionally filtered by status.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Request, int64, error) {
	if r == nil {
		return nil, 0, errors.New("adjustment repository not initialised")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	rows, err := r.pool.Query(ctx, `SELECT `+requestColumns+`
FROM adjustment_requests
WHERE ($1 = '' OR status = $1)
ORDER BY submitted_at DESC
LIMIT $2 OFFSET $3`, string(filter.Status), limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	requests := []Request{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM adjustment_requests WHERE ($1 = '' OR status = $1)`, string(filter.Status)).Scan(&total); err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// EvidenceInUse returns the evidence file names still referenced by
// stored requests; the purge job keeps these.
func (r *Repository) EvidenceInUse(ctx context.Context) (map[string]bool, error) {
	if r == nil {
		return nil, errors.New("adjustment repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT evidence_name FROM adjustment_requests WHERE evidence_name <> ''`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	names := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names[name] = true
	}
	return names, rows.Err()
}

func (r *txRepository) InsertRequest(ctx context.Context, req Request) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO adjustment_requests
(id, product_id, stock_batch_id, type, quantity, reason, evidence_name, status, submitted_by, submitted_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		req.ID, req.ProductID, req.BatchID, string(req.Type), req.Quantity, req.Reason, req.EvidenceName, string(req.Status), req.SubmittedBy, req.SubmittedAt)
	return err
}

func (r *txRepository) GetRequestForUpdate(ctx context.Context, id uuid.UUID) (Request, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+requestColumns+` FROM adjustment_requests WHERE id = $1 FOR UPDATE`, id)
	return scanRequest(row)
}

func (r *txRepository) UpdateDecision(ctx context.Context, id uuid.UUID, status Status, decidedBy int64, note string, at time.Time) error {
	tag, err := r.tx.Exec(ctx, `UPDATE adjustment_requests
SET status=$2, decided_by=$3, decision_note=$4, decided_at=$5
WHERE id=$1`, id, string(status), decidedBy, note, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *txRepository) GetBatchForUpdate(ctx context.Context, batchID int64) (stocks.StockBatch, error) {
	var b stocks.StockBatch
	err := r.tx.QueryRow(ctx, `SELECT id, batch_number, product_id, purchase_price, expiry_date, quantity, created_at
FROM stock_batches WHERE id = $1 FOR UPDATE`, batchID).
		Scan(&b.ID, &b.BatchNumber, &b.ProductID, &b.PurchasePrice, &b.ExpiryDate, &b.Quantity, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return stocks.StockBatch{}, ErrBatchNotFound
		}
		return stocks.StockBatch{}, err
	}
	return b, nil
}

func (r *txRepository) DecrementBatch(ctx context.Context, batchID, quantity int64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE stock_batches SET quantity = quantity - $2
WHERE id = $1 AND quantity >= $2`, batchID, quantity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBatchNotFound
	}
	return nil
}

func scanRequest(row pgx.Row) (Request, error) {
	var req Request
	var typ, status string
	var decidedBy *int64
	var decisionNote *string
	err := row.Scan(&req.ID, &req.ProductID, &req.BatchID, &typ, &req.Quantity, &req.Reason, &req.EvidenceName,
		&status, &req.SubmittedBy, &req.SubmittedAt, &decidedBy, &req.DecidedAt, &decisionNote)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, ErrNotFound
		}
		return Request{}, err
	}
	req.Type = Type(typ)
	req.Status = Status(status)
	if decidedBy != nil {
		req.DecidedBy = *decidedBy
	}
	if decisionNote != nil {
		req.DecisionNote = *decisionNote
	}
	return req, nil
}
