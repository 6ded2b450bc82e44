package stocks

import (
	"context"
	"errors"

	"github.com/jsmart/jsmart-inventory/internal/shared"
)

// RepositoryPort abstracts storage for the service.
type RepositoryPort interface {
	ListForProduct(ctx context.Context, productID int64) ([]StockBatch, error)
	ListAll(ctx context.Context, filter ListFilter) ([]StockBatch, int64, error)
	Get(ctx context.Context, id int64) (StockBatch, error)
}

// Service serves batch queries for the adjustment workflow.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListForProduct returns the removal candidates for a product. Only
// batches with quantity strictly greater than zero are offered; the
// filter is applied here as well so the invariant holds regardless of
// which repository implementation backs the service.
func (s *Service) ListForProduct(ctx context.Context, productID int64) ([]StockBatch, error) {
	if s == nil || s.repo == nil {
		return nil, errors.New("stocks service not initialised")
	}
	if productID <= 0 {
		return nil, errors.New("stocks: product id required")
	}
	batches, err := s.repo.ListForProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	available := batches[:0]
	for _, b := range batches {
		if b.Quantity > 0 {
			available = append(available, b)
		}
	}
	return available, nil
}

// ListAll returns every batch with the total count.
func (s *Service) ListAll(ctx context.Context, filter ListFilter) ([]StockBatch, int64, error) {
	if s == nil || s.repo == nil {
		return nil, 0, errors.New("stocks service not initialised")
	}
	return s.repo.ListAll(ctx, filter)
}

// Get fetches a single batch.
func (s *Service) Get(ctx context.Context, id int64) (StockBatch, error) {
	if s == nil || s.repo == nil {
		return StockBatch{}, errors.New("stocks service not initialised")
	}
	batch, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrBatchNotFound) {
			return StockBatch{}, shared.UserSafe(err, "Stock batch not found.")
		}
		return StockBatch{}, err
	}
	return batch, nil
}
