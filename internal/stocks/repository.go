package stocks

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads stock batches from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const batchColumns = `id, batch_number, product_id, purchase_price, expiry_date, quantity, created_at`

// ListForProduct returns the batches of one product that still hold
// stock. Depleted batches are excluded in the query itself.
func (r *Repository) ListForProduct(ctx context.Context, productID int64) ([]StockBatch, error) {
	if r == nil {
		return nil, errors.New("stocks repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT `+batchColumns+`
FROM stock_batches
WHERE product_id = $1 AND quantity > 0
ORDER BY created_at ASC, id ASC`, productID)
	if err != nil {
		return nil, err
	}
	return scanBatches(rows)
}

// ListAll returns every batch page-wise, depleted ones included; the
// admin stock screen shows history, not removal candidates.
func (r *Repository) ListAll(ctx context.Context, filter ListFilter) ([]StockBatch, int64, error) {
	if r == nil {
		return nil, 0, errors.New("stocks repository not initialised")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	rows, err := r.pool.Query(ctx, `SELECT `+batchColumns+`
FROM stock_batches
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2`, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	batches, err := scanBatches(rows)
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stock_batches`).Scan(&total); err != nil {
		return nil, 0, err
	}
	return batches, total, nil
}

// Get fetches one batch by id.
func (r *Repository) Get(ctx context.Context, id int64) (StockBatch, error) {
	if r == nil {
		return StockBatch{}, errors.New("stocks repository not initialised")
	}
	var b StockBatch
	err := r.pool.QueryRow(ctx, `SELECT `+batchColumns+` FROM stock_batches WHERE id = $1`, id).
		Scan(&b.ID, &b.BatchNumber, &b.ProductID, &b.PurchasePrice, &b.ExpiryDate, &b.Quantity, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StockBatch{}, ErrBatchNotFound
		}
		return StockBatch{}, err
	}
	return b, nil
}

func scanBatches(rows pgx.Rows) ([]StockBatch, error) {
	defer rows.Close()
	batches := []StockBatch{}
	for rows.Next() {
		var b StockBatch
		if err := rows.Scan(&b.ID, &b.BatchNumber, &b.ProductID, &b.PurchasePrice, &b.ExpiryDate, &b.Quantity, &b.CreatedAt); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return batches, nil
}
