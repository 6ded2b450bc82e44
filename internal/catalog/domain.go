package catalog

import (
	"errors"
	"time"
)

// Product is a catalog item as seen by the stock workflow. The catalog
// owns it; this module only reads.
type Product struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Quantity  int64     `json:"quantity"`
	Images    []string  `json:"images"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListFilter narrows product listings.
type ListFilter struct {
	Search string
	Page   int
	Limit  int
}

// ErrProductNotFound indicates an unknown product id.
var ErrProductNotFound = errors.New("catalog: product not found")
