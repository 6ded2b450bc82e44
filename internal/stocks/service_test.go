package stocks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	batches map[int64][]StockBatch
}

func (f *fakeRepo) ListForProduct(ctx context.Context, productID int64) ([]StockBatch, error) {
	return f.batches[productID], nil
}

func (f *fakeRepo) ListAll(ctx context.Context, filter ListFilter) ([]StockBatch, int64, error) {
	var all []StockBatch
	for _, b := range f.batches {
		all = append(all, b...)
	}
	return all, int64(len(all)), nil
}

func (f *fakeRepo) Get(ctx context.Context, id int64) (StockBatch, error) {
	for _, batches := range f.batches {
		for _, b := range batches {
			if b.ID == id {
				return b, nil
			}
		}
	}
	return StockBatch{}, ErrBatchNotFound
}

func TestListForProductSkipsDepletedBatches(t *testing.T) {
	repo := &fakeRepo{batches: map[int64][]StockBatch{
		7: {
			{ID: 1, BatchNumber: "B-001", ProductID: 7, Quantity: 5},
			{ID: 2, BatchNumber: "B-002", ProductID: 7, Quantity: 0},
		},
	}}
	svc := NewService(repo)

	batches, err := svc.ListForProduct(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	require.Equal(t, int64(1), batches[0].ID)
	require.Equal(t, int64(5), batches[0].Quantity)
}

func TestListForProductRequiresProduct(t *testing.T) {
	svc := NewService(&fakeRepo{})
	_, err := svc.ListForProduct(context.Background(), 0)
	require.Error(t, err)
}

func TestGetUnknownBatch(t *testing.T) {
	svc := NewService(&fakeRepo{})
	_, err := svc.Get(context.Background(), 42)
	require.ErrorIs(t, err, ErrBatchNotFound)
}
