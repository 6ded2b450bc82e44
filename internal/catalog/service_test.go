package catalog

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	products  []Product
	listCalls int
	getCalls  int
}

func (f *fakeRepo) List(ctx context.Context, filter ListFilter) ([]Product, int64, error) {
	f.listCalls++
	return f.products, int64(len(f.products)), nil
}

func (f *fakeRepo) Get(ctx context.Context, id int64) (Product, error) {
	f.getCalls++
	for _, p := range f.products {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, ErrProductNotFound
}

func newTestService(t *testing.T, repo *fakeRepo) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewService(repo, NewCache(client, time.Minute))
}

func TestListUsesCache(t *testing.T) {
	repo := &fakeRepo{products: []Product{{ID: 1, Name: "Basmati Rice", Quantity: 40}}}
	svc := newTestService(t, repo)
	ctx := context.Background()

	first, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, first.Products, 1)

	second, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, repo.listCalls)
}

func TestInvalidateBumpsVersion(t *testing.T) {
	repo := &fakeRepo{products: []Product{{ID: 1, Name: "Basmati Rice", Quantity: 40}}}
	svc := newTestService(t, repo)
	ctx := context.Background()

	_, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)

	repo.products[0].Quantity = 35
	require.NoError(t, svc.Invalidate(ctx))

	result, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(35), result.Products[0].Quantity)
	require.Equal(t, 2, repo.listCalls)
}

func TestGetUnknownProduct(t *testing.T) {
	svc := newTestService(t, &fakeRepo{})
	_, err := svc.Get(context.Background(), 99)
	require.ErrorIs(t, err, ErrProductNotFound)
}
