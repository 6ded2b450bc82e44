package adjustment

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFormStore(t *testing.T) *FormStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewFormStore(client, time.Hour)
}

func TestFormStoreRoundTrip(t *testing.T) {
	store := newTestFormStore(t)
	ctx := context.Background()

	form := readyForm(t)
	require.NoError(t, store.Save(ctx, "sess-1", form))

	loaded, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, FormBatchChosen, loaded.State)
	require.NotNil(t, loaded.Product)
	assert.Equal(t, int64(42), loaded.Product.ID)
	assert.Equal(t, "photo.jpg", loaded.Evidence.Name)
	assert.Equal(t, form.BatchToken, loaded.BatchToken)
}

func TestFormStoreLoadMissingReturnsIdleForm(t *testing.T) {
	store := newTestFormStore(t)

	form, err := store.Load(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Equal(t, FormIdle, form.State)
	assert.Nil(t, form.Product)
}

func TestFormStoreDelete(t *testing.T) {
	store := newTestFormStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "sess-1", readyForm(t)))
	require.NoError(t, store.Delete(ctx, "sess-1"))

	form, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, FormIdle, form.State)
}

func TestFormStoreSessionsIsolated(t *testing.T) {
	store := newTestFormStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "sess-1", readyForm(t)))

	other, err := store.Load(ctx, "sess-2")
	require.NoError(t, err)
	assert.Equal(t, FormIdle, other.State)
}
