// Package models содержит доменную модель пользователя системы,
// роли и представления, которые безопасно отдавать клиенту.
package models

import "time"

// Role роль пользователя внутри компании.
type Role string

const (
	// RoleAdmin администратор, может управлять пользователями.
	RoleAdmin Role = "Admin"
	// RoleUser обычный пользователь.
	RoleUser Role = "User"
)

// IsValid сообщает, является ли роль одной из допустимых.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleUser:
		return true
	default:
		return false
	}
}

// String возвращает строковое значение роли.
func (r Role) String() string {
	return string(r)
}

// ParseRole разбирает строку в Role. Второе значение false, если роль неизвестна.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.IsValid()
}

// User представляет учётную запись пользователя компании.
type User struct {
	ID           int64     // Идентификатор, назначается хранилищем
	Username     string    // Имя пользователя, уникально в пределах компании
	PasswordHash string    // bcrypt-хэш пароля, наружу не отдаётся
	Role         Role      // Admin или User
	CompanyID    int64     // Компания, к которой относится пользователь
	CreatedAt    time.Time // Время создания записи
	UpdatedAt    time.Time // Время последнего изменения
}

// UserInfo представление пользователя для ответа клиенту, без пароля и хэша.
type UserInfo struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	CompanyID int64     `json:"company_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Info возвращает безопасное представление пользователя.
func (u *User) Info() UserInfo {
	return UserInfo{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		CompanyID: u.CompanyID,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// Caller личность вызывающего, извлечённая из проверенного токена.
type Caller struct {
	UserID int64
	Role   Role
}

// IsAdmin сообщает, имеет ли вызывающий роль администратора.
func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// NewUser данные для создания пользователя. Пароль передаётся в открытом виде
// и хэшируется до сохранения.
type NewUser struct {
	Username  string
	Password  string
	CompanyID int64
	Role      Role
}

// UserPatch частичное обновление пользователя. nil означает «не менять».
type UserPatch struct {
	Username  *string
	Password  *string
	CompanyID *int64
	Role      *Role
}
