package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/jsmart/jsmart-inventory/internal/auth"
	"github.com/jsmart/jsmart-inventory/internal/shared"
)

type stubRepo struct {
	user     *auth.User
	sessions map[string]int64
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	if s.sessions == nil {
		s.sessions = make(map[string]int64)
	}
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

func newAuthServer(t *testing.T, repo auth.Repository) (http.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := auth.NewHandler(logger, auth.NewService(repo), sessionManager, csrfManager)

	r := chi.NewRouter()
	r.Use(shared.SessionMiddleware(logger, sessionManager))
	handler.MountRoutes(r)
	return r, sessionManager
}

func activeUser(t *testing.T, password string) *auth.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &auth.User{
		ID:           1,
		Email:        "ops@jsmart.local",
		PasswordHash: string(hashed),
		Role:         "inventory_staff",
		IsActive:     true,
	}
}

func TestLoginSuccess(t *testing.T) {
	repo := &stubRepo{user: activeUser(t, "correct-horse")}
	server, _ := newAuthServer(t, repo)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"ops@jsmart.local","password":"correct-horse"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	server.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", res.Code, res.Body.String())
	}
	var payload struct {
		UserID    int64  `json:"user_id"`
		Role      string `json:"role"`
		CSRFToken string `json:"csrf_token"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.UserID != 1 || payload.Role != "inventory_staff" {
		t.Fatalf("unexpected identity: %+v", payload)
	}
	if payload.CSRFToken == "" {
		t.Fatalf("expected csrf token in response")
	}
	if len(repo.sessions) != 1 {
		t.Fatalf("expected session registered, got %d", len(repo.sessions))
	}
	if len(res.Result().Cookies()) == 0 {
		t.Fatalf("expected session cookie")
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	repo := &stubRepo{user: activeUser(t, "correct-horse")}
	server, _ := newAuthServer(t, repo)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"ops@jsmart.local","password":"wrong-password"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	server.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", res.Code)
	}
	if len(repo.sessions) != 0 {
		t.Fatalf("no session should be registered on failure")
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	user := activeUser(t, "correct-horse")
	user.IsActive = false
	server, _ := newAuthServer(t, &stubRepo{user: user})

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"ops@jsmart.local","password":"correct-horse"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	server.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", res.Code)
	}
}

func TestLoginValidation(t *testing.T) {
	server, _ := newAuthServer(t, &stubRepo{})

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"not-an-email","password":"short"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	server.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", res.Code)
	}
}

func TestLogout(t *testing.T) {
	repo := &stubRepo{user: activeUser(t, "correct-horse")}
	server, _ := newAuthServer(t, repo)

	login := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"ops@jsmart.local","password":"correct-horse"}`))
	login.Header.Set("Content-Type", "application/json")
	loginRes := httptest.NewRecorder()
	server.ServeHTTP(loginRes, login)
	if loginRes.Code != http.StatusOK {
		t.Fatalf("login failed: %d", loginRes.Code)
	}

	logout := httptest.NewRequest(http.MethodPost, "/logout", nil)
	for _, c := range loginRes.Result().Cookies() {
		logout.AddCookie(c)
	}
	logoutRes := httptest.NewRecorder()
	server.ServeHTTP(logoutRes, logout)

	if logoutRes.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", logoutRes.Code)
	}
	if len(repo.sessions) != 0 {
		t.Fatalf("expected session removed, got %d", len(repo.sessions))
	}
}
