// Package access проверяет роль вызывающего перед защищёнными операциями.
// Иерархии ролей нет: Admin не удовлетворяет требованию роли User и наоборот.
package access

import (
	"github.com/magabrotheeeer/company-users/internal/lib/apperr"
	"github.com/magabrotheeeer/company-users/internal/models"
)

// ErrAdminRequired возвращается, когда операция доступна только администратору.
var ErrAdminRequired = apperr.Unauthorized("only admins can perform this action")

// RequireRole пропускает вызов, только если claim в точности равна required.
func RequireRole(claim, required models.Role) error {
	if !claim.IsValid() {
		return apperr.Unauthorized("invalid role")
	}
	if claim != required {
		if required == models.RoleAdmin {
			return ErrAdminRequired
		}
		return apperr.Unauthorized("insufficient role")
	}
	return nil
}

// RequireAdmin пропускает только администратора.
func RequireAdmin(caller models.Caller) error {
	if caller.IsAdmin() {
		return nil
	}
	return RequireRole(caller.Role, models.RoleAdmin)
}
