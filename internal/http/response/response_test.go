package response

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/company-users/internal/lib/apperr"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "bad request",
			err:        apperr.BadRequest("field username is a required field"),
			wantStatus: http.StatusBadRequest,
			wantMsg:    "field username is a required field",
		},
		{
			name:       "unauthorized",
			err:        apperr.Unauthorized("invalid username or password"),
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "invalid username or password",
		},
		{
			name:       "not found",
			err:        apperr.NotFound("user not found"),
			wantStatus: http.StatusNotFound,
			wantMsg:    "user not found",
		},
		{
			name:       "conflict",
			err:        apperr.Conflict("user with the same username already exists in this company"),
			wantStatus: http.StatusConflict,
			wantMsg:    "user with the same username already exists in this company",
		},
		{
			name:       "internal hides details",
			err:        apperr.Internal(errors.New("pq: duplicate key value violates users_pkey")),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    apperr.InternalMessage,
		},
		{
			name:       "untyped error is internal",
			err:        errors.New("SELECT * FROM users failed"),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    apperr.InternalMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logBuf bytes.Buffer
			log := slog.New(slog.NewTextHandler(&logBuf, nil))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()

			FromError(rec, req, log, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, StatusError, body.Status)
			assert.Equal(t, tt.wantMsg, body.Error)

			assert.Contains(t, logBuf.String(), tt.err.Error(), "full cause must be logged")
		})
	}
}
