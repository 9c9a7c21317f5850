package companyusers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/company-users/internal/lib/apperr"
	"github.com/magabrotheeeer/company-users/internal/lib/metrics"
	"github.com/magabrotheeeer/company-users/internal/models"
	"github.com/magabrotheeeer/company-users/internal/ratelimit"
	"github.com/magabrotheeeer/company-users/internal/services/users"
	"github.com/magabrotheeeer/company-users/internal/storage/repository"
)

// fakeAuth принимает фиксированные токены.
type fakeAuth struct{}

func (fakeAuth) Login(_ context.Context, username, password string, _ *int64) (string, *models.User, error) {
	if username == "admin" && password == "password123" {
		return "admin-token", &models.User{ID: 1, Username: "admin", Role: models.RoleAdmin, CompanyID: 1}, nil
	}
	return "", nil, apperr.Unauthorized("invalid username or password")
}

func (fakeAuth) ValidateToken(_ context.Context, token string) (models.Caller, error) {
	switch token {
	case "admin-token":
		return models.Caller{UserID: 1, Role: models.RoleAdmin}, nil
	case "user-token":
		return models.Caller{UserID: 2, Role: models.RoleUser}, nil
	}
	return models.Caller{}, apperr.Unauthorized("invalid or expired token")
}

// memStore хранилище в памяти для UserService.
type memStore struct {
	rows   map[int64]*models.User
	nextID int64
}

func newMemStore() *memStore {
	s := &memStore{rows: map[int64]*models.User{}}
	s.put(&models.User{Username: "admin", Role: models.RoleAdmin, CompanyID: 1})
	s.put(&models.User{Username: "worker", Role: models.RoleUser, CompanyID: 1})
	return s
}

func (s *memStore) put(u *models.User) int64 {
	s.nextID++
	u.ID = s.nextID
	s.rows[u.ID] = u
	return u.ID
}

func (s *memStore) FindByID(_ context.Context, id int64) (*models.User, error) {
	u, ok := s.rows[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) FindByUsernameAndCompany(_ context.Context, username string, companyID int64) (*models.User, error) {
	for _, u := range s.rows {
		if u.Username == username && u.CompanyID == companyID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *memStore) ListByCompany(_ context.Context, companyID int64) ([]*models.User, error) {
	var out []*models.User
	for id := int64(1); id <= s.nextID; id++ {
		if u, ok := s.rows[id]; ok && u.CompanyID == companyID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *memStore) ListAll(_ context.Context) ([]*models.User, error) {
	var out []*models.User
	for id := int64(1); id <= s.nextID; id++ {
		if u, ok := s.rows[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *memStore) Insert(_ context.Context, u *models.User) (int64, error) {
	if _, err := s.FindByUsernameAndCompany(context.Background(), u.Username, u.CompanyID); err == nil {
		return 0, repository.ErrUserExists
	}
	cp := *u
	return s.put(&cp), nil
}

func (s *memStore) Update(_ context.Context, u *models.User) error {
	if _, ok := s.rows[u.ID]; !ok {
		return repository.ErrUserNotFound
	}
	cp := *u
	s.rows[u.ID] = &cp
	return nil
}

func (s *memStore) Delete(_ context.Context, id int64) error {
	if _, ok := s.rows[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *memStore) Ping(context.Context) error { return nil }

func newTestRouter(t *testing.T, userLimit int) (http.Handler, *memStore) {
	t.Helper()
	return newRouter(t, userLimit, ratelimit.NewTokenBucket(100, 100), false)
}

func newRouter(t *testing.T, userLimit int, login ratelimit.Limiter, trustProxy bool) (http.Handler, *memStore) {
	t.Helper()
	store := newMemStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := prometheus.NewRegistry()

	r := chi.NewRouter()
	RegisterRoutes(r, Deps{
		Logger:       logger,
		Auth:         fakeAuth{},
		Users:        users.NewUserService(logger, store),
		Storage:      store,
		UserLimiter:  ratelimit.NewFixedWindow(userLimit, time.Minute),
		LoginLimiter: login,
		Metrics:      metrics.New(registry),
		Gatherer:     registry,
		TrustProxy:   trustProxy,
	})
	return r, store
}

func do(h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRoutes(t *testing.T) {
	h, _ := newTestRouter(t, 100)

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		body       string
		wantStatus int
		wantBody   string
	}{
		{name: "login", method: http.MethodPost, path: "/api/users/authenticate",
			body: `{"username":"admin","password":"password123"}`, wantStatus: http.StatusOK, wantBody: `"token":"admin-token"`},
		{name: "login bad credentials", method: http.MethodPost, path: "/api/users/authenticate",
			body: `{"username":"admin","password":"nope"}`, wantStatus: http.StatusUnauthorized},
		{name: "list without token", method: http.MethodGet, path: "/api/users", wantStatus: http.StatusUnauthorized},
		{name: "list with bad token", method: http.MethodGet, path: "/api/users", token: "forged", wantStatus: http.StatusUnauthorized},
		{name: "list as user hides admins", method: http.MethodGet, path: "/api/users", token: "user-token",
			wantStatus: http.StatusOK, wantBody: `"username":"worker"`},
		{name: "list all as user", method: http.MethodGet, path: "/api/users/all", token: "user-token", wantStatus: http.StatusUnauthorized},
		{name: "list all as admin", method: http.MethodGet, path: "/api/users/all", token: "admin-token",
			wantStatus: http.StatusOK, wantBody: `"username":"admin"`},
		{name: "register as user with invalid body", method: http.MethodPost, path: "/api/users/register", token: "user-token",
			body: `{"username":"x"}`, wantStatus: http.StatusUnauthorized},
		{name: "register as admin", method: http.MethodPost, path: "/api/users/register", token: "admin-token",
			body: `{"username":"newbie","password":"password123","company_id":1,"role":"User"}`,
			wantStatus: http.StatusOK, wantBody: "user registered successfully"},
		{name: "register duplicate", method: http.MethodPost, path: "/api/users/register", token: "admin-token",
			body: `{"username":"newbie","password":"password123","company_id":1,"role":"User"}`, wantStatus: http.StatusConflict},
		{name: "update as admin", method: http.MethodPut, path: "/api/users/2", token: "admin-token",
			body: `{"username":"worker2"}`, wantStatus: http.StatusOK, wantBody: "user updated successfully"},
		{name: "update missing", method: http.MethodPut, path: "/api/users/99", token: "admin-token",
			body: `{"username":"ghost"}`, wantStatus: http.StatusNotFound},
		{name: "delete as user", method: http.MethodDelete, path: "/api/users/2", token: "user-token", wantStatus: http.StatusUnauthorized},
		{name: "delete as admin", method: http.MethodDelete, path: "/api/users/3", token: "admin-token",
			wantStatus: http.StatusOK, wantBody: "user deleted successfully"},
		{name: "delete again", method: http.MethodDelete, path: "/api/users/3", token: "admin-token", wantStatus: http.StatusNotFound},
		{name: "health", method: http.MethodGet, path: "/health", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
			assert.NotContains(t, rec.Body.String(), "password_hash")
		})
	}
}

func TestRoutes_ListAsUserExcludesAdmins(t *testing.T) {
	h, _ := newTestRouter(t, 100)

	rec := do(h, http.MethodGet, "/api/users", "user-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"role":"Admin"`)

	rec = do(h, http.MethodGet, "/api/users", "admin-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"Admin"`)
}

func TestRoutes_RateLimit(t *testing.T) {
	h, _ := newTestRouter(t, 10)

	for i := 0; i < 10; i++ {
		rec := do(h, http.MethodGet, "/api/users", "user-token", "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := do(h, http.MethodGet, "/api/users", "user-token", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "request limit exceeded, try again later")

	rec = do(h, http.MethodGet, "/api/users", "admin-token", "")
	assert.Equal(t, http.StatusOK, rec.Code, "limit is per user")
}

func TestRoutes_Metrics(t *testing.T) {
	h, _ := newTestRouter(t, 100)

	_ = do(h, http.MethodGet, "/api/users", "", "")
	rec := do(h, http.MethodGet, "/metrics", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "company_users_http_requests_total"), body)
}

func loginFrom(h http.Handler, remoteAddr, forwardedFor string) int {
	req := httptest.NewRequest(http.MethodPost, "/api/users/authenticate",
		strings.NewReader(`{"username":"admin","password":"nope"}`))
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRoutes_LoginLimitIgnoresForwardedHeaders(t *testing.T) {
	h, _ := newRouter(t, 100, ratelimit.NewTokenBucket(0.001, 1), false)

	allowed := 0
	for i := 0; i < 50; i++ {
		if loginFrom(h, "198.51.100.7:40000", fmt.Sprintf("203.0.113.%d", i)) != http.StatusTooManyRequests {
			allowed++
		}
	}
	assert.Equal(t, 1, allowed, "rotating X-Forwarded-For must not reset the per-IP budget")
}

func TestRoutes_LoginLimitBehindTrustedProxy(t *testing.T) {
	h, _ := newRouter(t, 100, ratelimit.NewTokenBucket(0.001, 1), true)

	assert.Equal(t, http.StatusUnauthorized, loginFrom(h, "10.0.0.1:40000", "203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, loginFrom(h, "10.0.0.1:40001", "203.0.113.1"))
	assert.Equal(t, http.StatusUnauthorized, loginFrom(h, "10.0.0.1:40002", "203.0.113.2"),
		"clients behind the proxy are limited separately")
}
