package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in     string
		want   Role
		wantOK bool
	}{
		{in: "Admin", want: RoleAdmin, wantOK: true},
		{in: "User", want: RoleUser, wantOK: true},
		{in: "admin", want: Role("admin"), wantOK: false},
		{in: "", want: Role(""), wantOK: false},
		{in: "Owner", want: Role("Owner"), wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseRole(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestUser_InfoOmitsPasswordHash(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	u := &User{
		ID:           7,
		Username:     "alice",
		PasswordHash: "$2a$10$secret",
		Role:         RoleUser,
		CompanyID:    5,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	info := u.Info()

	assert.Equal(t, UserInfo{
		ID:        7,
		Username:  "alice",
		Role:      RoleUser,
		CompanyID: 5,
		CreatedAt: now,
		UpdatedAt: now,
	}, info)
}

func TestCaller_IsAdmin(t *testing.T) {
	assert.True(t, Caller{UserID: 1, Role: RoleAdmin}.IsAdmin())
	assert.False(t, Caller{UserID: 2, Role: RoleUser}.IsAdmin())
	assert.False(t, Caller{UserID: 3}.IsAdmin())
}
