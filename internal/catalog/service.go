package catalog

import (
	"context"
	"errors"

	"github.com/jsmart/jsmart-inventory/internal/shared"
)

// RepositoryPort abstracts storage for the service.
type RepositoryPort interface {
	List(ctx context.Context, filter ListFilter) ([]Product, int64, error)
	Get(ctx context.Context, id int64) (Product, error)
}

// ListResult pairs a product page with its total count.
type ListResult struct {
	Products []Product `json:"products"`
	Total    int64     `json:"total"`
}

// Service serves catalog reads, cached when a cache is configured.
type Service struct {
	repo  RepositoryPort
	cache *Cache
}

// NewService builds Service.
func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// List returns a page of products.
func (s *Service) List(ctx context.Context, filter ListFilter) (ListResult, error) {
	if s == nil || s.repo == nil {
		return ListResult{}, errors.New("catalog service not initialised")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	key, err := s.cache.BuildKey(ctx, keyProductList(filter)...)
	if err != nil {
		return ListResult{}, err
	}
	var result ListResult
	err = s.cache.FetchJSON(ctx, key, &result, func(ctx context.Context) (interface{}, error) {
		products, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		return ListResult{Products: products, Total: total}, nil
	})
	if err != nil {
		return ListResult{}, err
	}
	return result, nil
}

// Get fetches a single product.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if s == nil || s.repo == nil {
		return Product{}, errors.New("catalog service not initialised")
	}
	key, err := s.cache.BuildKey(ctx, keyProduct(id)...)
	if err != nil {
		return Product{}, err
	}
	var product Product
	err = s.cache.FetchJSON(ctx, key, &product, func(ctx context.Context) (interface{}, error) {
		return s.repo.Get(ctx, id)
	})
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return Product{}, shared.UserSafe(err, "Product not found.")
		}
		return Product{}, err
	}
	return product, nil
}

// Invalidate bumps the cache version after stock mutations.
func (s *Service) Invalidate(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.cache.Bump(ctx)
}
