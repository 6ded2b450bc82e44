package stocks

import (
	"errors"
	"time"
)

// StockBatch is one procured lot of a product. Batches are never
// deleted; approved removals deplete them until quantity reaches zero.
type StockBatch struct {
	ID            int64      `json:"id"`
	BatchNumber   string     `json:"batch_number"`
	ProductID     int64      `json:"product_id"`
	PurchasePrice float64    `json:"purchase_price"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty"`
	Quantity      int64      `json:"quantity"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ListFilter narrows batch listings.
type ListFilter struct {
	ProductID int64
	Page      int
	Limit     int
}

// ErrBatchNotFound indicates an unknown batch id.
var ErrBatchNotFound = errors.New("stocks: batch not found")
