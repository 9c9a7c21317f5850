package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/company-users/internal/lib/apperr"
	"github.com/magabrotheeeer/company-users/internal/models"
)

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name     string
		claim    models.Role
		required models.Role
		wantErr  bool
	}{
		{name: "admin for admin", claim: models.RoleAdmin, required: models.RoleAdmin},
		{name: "user for user", claim: models.RoleUser, required: models.RoleUser},
		{name: "user for admin", claim: models.RoleUser, required: models.RoleAdmin, wantErr: true},
		{name: "admin does not imply user", claim: models.RoleAdmin, required: models.RoleUser, wantErr: true},
		{name: "empty claim", claim: "", required: models.RoleUser, wantErr: true},
		{name: "unknown claim", claim: "admin", required: models.RoleAdmin, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireRole(tt.claim, tt.required)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	assert.NoError(t, RequireAdmin(models.Caller{UserID: 1, Role: models.RoleAdmin}))
	assert.ErrorIs(t, RequireAdmin(models.Caller{UserID: 2, Role: models.RoleUser}), ErrAdminRequired)

	err := RequireAdmin(models.Caller{UserID: 3, Role: "root"})
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	assert.Equal(t, "invalid role", apperr.MessageOf(err))
}
