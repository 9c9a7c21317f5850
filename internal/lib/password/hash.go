// Package password реализует функции для безопасного хеширования и проверки паролей.
//
// GetHash создает bcrypt-хеш пароля для безопасного хранения, соль случайна для каждого вызова.
// Verify и CompareHash сравнивают сохранённый bcrypt-хеш с введённым паролем.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxLength максимальная длина пароля в байтах, которую принимает bcrypt.
const MaxLength = 72

var (
	// ErrEmptyPassword пустой пароль не хэшируется.
	ErrEmptyPassword = errors.New("password is empty")
	// ErrPasswordTooLong пароль длиннее MaxLength байт.
	ErrPasswordTooLong = errors.New("password is longer than 72 bytes")
	// ErrMismatch пароль не соответствует хэшу.
	ErrMismatch = errors.New("password does not match hash")
)

// GetHash принимает пароль пользователя и возвращает его bcrypt‑хэш.
//
// Используется для безопасного хранения паролей в базе данных.
func GetHash(password string) (string, error) {
	const op = "password.GetHash"
	if password == "" {
		return "", fmt.Errorf("%s: %w", op, ErrEmptyPassword)
	}
	if len(password) > MaxLength {
		return "", fmt.Errorf("%s: %w", op, ErrPasswordTooLong)
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashedPassword), nil
}

// CompareHash сравнивает bcrypt‑хэш с введённым паролем.
//
// Возвращает nil, если пароль соответствует хэшу, иначе ошибку.
func CompareHash(originalHash, externalPassword string) error {
	const op = "password.CompareHash"
	err := bcrypt.CompareHashAndPassword([]byte(originalHash), []byte(externalPassword))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return fmt.Errorf("%s: %w", op, ErrMismatch)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Verify возвращает true, если пароль соответствует хэшу.
// Испорченный или пустой хэш даёт false.
func Verify(plain, hash string) bool {
	return CompareHash(hash, plain) == nil
}
