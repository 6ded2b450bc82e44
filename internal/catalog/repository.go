package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads catalog data from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const productColumns = `p.id, p.name, p.quantity, p.created_at, p.updated_at,
COALESCE(ARRAY_AGG(pi.url ORDER BY pi.position) FILTER (WHERE pi.url IS NOT NULL), '{}')`

// List returns products matching filter together with the total count.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Product, int64, error) {
	if r == nil {
		return nil, 0, errors.New("catalog repository not initialised")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	search := "%" + filter.Search + "%"
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+`
FROM products p
LEFT JOIN product_images pi ON pi.product_id = p.id
WHERE ($1 = '%%' OR p.name ILIKE $1)
GROUP BY p.id
ORDER BY p.name ASC
LIMIT $2 OFFSET $3`, search, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Quantity, &p.CreatedAt, &p.UpdatedAt, &p.Images); err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products p WHERE ($1 = '%%' OR p.name ILIKE $1)`, search).Scan(&total)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// Get fetches one product by id.
func (r *Repository) Get(ctx context.Context, id int64) (Product, error) {
	if r == nil {
		return Product{}, errors.New("catalog repository not initialised")
	}
	var p Product
	err := r.pool.QueryRow(ctx, `SELECT `+productColumns+`
FROM products p
LEFT JOIN product_images pi ON pi.product_id = p.id
WHERE p.id = $1
GROUP BY p.id`, id).Scan(&p.ID, &p.Name, &p.Quantity, &p.CreatedAt, &p.UpdatedAt, &p.Images)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, err
	}
	return p, nil
}
