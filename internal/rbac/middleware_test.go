package rbac_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsmart/jsmart-inventory/internal/rbac"
	"github.com/jsmart/jsmart-inventory/internal/shared"
)

type fakeSource struct {
	perms map[int64][]string
	err   error
}

func (f *fakeSource) EffectivePermissions(_ context.Context, userID int64) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.perms[userID], nil
}

func requestWithUser(t *testing.T, userID string) *http.Request {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	manager := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)

	req := httptest.NewRequest(http.MethodGet, "/adjustments", nil)
	sess, err := manager.Load(context.Background(), req)
	require.NoError(t, err)
	if userID != "" {
		sess.SetUser(userID, "inventory_staff")
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func okHandler() (http.Handler, *bool) {
	called := false
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}), &called
}

func TestRequireAnyGranted(t *testing.T) {
	mw := rbac.Middleware{Source: &fakeSource{perms: map[int64][]string{7: {rbac.PermAdjustmentsSubmit}}}}
	next, called := okHandler()

	res := httptest.NewRecorder()
	mw.RequireAny(rbac.PermAdjustmentsSubmit, rbac.PermAdjustmentsReview)(next).ServeHTTP(res, requestWithUser(t, "7"))

	assert.Equal(t, http.StatusOK, res.Code)
	assert.True(t, *called)
}

func TestRequireAnyDenied(t *testing.T) {
	mw := rbac.Middleware{Source: &fakeSource{perms: map[int64][]string{7: {rbac.PermInventoryView}}}}
	next, called := okHandler()

	res := httptest.NewRecorder()
	mw.RequireAny(rbac.PermAdjustmentsReview)(next).ServeHTTP(res, requestWithUser(t, "7"))

	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.False(t, *called)
}

func TestRequireAnyAnonymous(t *testing.T) {
	mw := rbac.Middleware{Source: &fakeSource{}}
	next, called := okHandler()

	res := httptest.NewRecorder()
	mw.RequireAny(rbac.PermInventoryView)(next).ServeHTTP(res, requestWithUser(t, ""))

	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.False(t, *called)
}

func TestRequireAllPartialDenied(t *testing.T) {
	mw := rbac.Middleware{Source: &fakeSource{perms: map[int64][]string{7: {rbac.PermInventoryView}}}}
	next, called := okHandler()

	res := httptest.NewRecorder()
	mw.RequireAll(rbac.PermInventoryView, rbac.PermAdjustmentsReview)(next).ServeHTTP(res, requestWithUser(t, "7"))

	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.False(t, *called)
}

func TestRequireAnySourceFailure(t *testing.T) {
	mw := rbac.Middleware{Source: &fakeSource{err: errors.New("db down")}}
	next, called := okHandler()

	res := httptest.NewRecorder()
	mw.RequireAny(rbac.PermInventoryView)(next).ServeHTTP(res, requestWithUser(t, "7"))

	assert.Equal(t, http.StatusInternalServerError, res.Code)
	assert.False(t, *called)
}
