package list

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/company-users/internal/http/middlewarectx"
	"github.com/magabrotheeeer/company-users/internal/lib/apperr"
	"github.com/magabrotheeeer/company-users/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) ListOwnCompany(ctx context.Context, caller models.Caller) ([]models.UserInfo, error) {
	args := m.Called(ctx, caller)
	list, _ := args.Get(0).([]models.UserInfo)
	return list, args.Error(1)
}

func TestListHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	caller := models.Caller{UserID: 2, Role: models.RoleUser}
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("returns company users without secrets", func(t *testing.T) {
		svc := new(MockService)
		svc.On("ListOwnCompany", mock.Anything, caller).Return([]models.UserInfo{
			{ID: 2, Username: "worker", Role: models.RoleUser, CompanyID: 5, CreatedAt: ts, UpdatedAt: ts},
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		req = req.WithContext(middlewarectx.WithCaller(req.Context(), caller))
		w := httptest.NewRecorder()

		New(logger, svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Status string           `json:"status"`
			Data   []map[string]any `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "OK", resp.Status)
		require.Len(t, resp.Data, 1)
		assert.Equal(t, "worker", resp.Data[0]["username"])
		assert.NotContains(t, w.Body.String(), "password")
		svc.AssertExpectations(t)
	})

	t.Run("empty company renders empty list", func(t *testing.T) {
		svc := new(MockService)
		svc.On("ListOwnCompany", mock.Anything, caller).Return([]models.UserInfo{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		req = req.WithContext(middlewarectx.WithCaller(req.Context(), caller))
		w := httptest.NewRecorder()

		New(logger, svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"OK","data":[]}`, w.Body.String())
	})

	t.Run("caller record missing", func(t *testing.T) {
		svc := new(MockService)
		svc.On("ListOwnCompany", mock.Anything, caller).Return(nil, apperr.Unauthorized("user not found"))

		req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		req = req.WithContext(middlewarectx.WithCaller(req.Context(), caller))
		w := httptest.NewRecorder()

		New(logger, svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), `"error":"user not found"`)
	})
}
