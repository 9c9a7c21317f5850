package jwt

import (
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/company-users/internal/models"
)

// GenerateToken создает JWT токен для пользователя userID с ролью role,
// подписывая его секретным ключом по HS256.
//
// Длина ключа проверяется при каждом выпуске: слабый ключ даёт ErrWeakSecret,
// а не токен, который можно подделать.
func (j *MakerImpl) GenerateToken(userID int64, role models.Role) (string, error) {
	const op = "jwt.GenerateToken"
	if len(j.secretKey) < MinSecretLength {
		return "", fmt.Errorf("%s: %w", op, ErrWeakSecret)
	}

	now := j.now()
	claims := CustomClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return signed, nil
}

// ParseToken парсит JWT токен, проверяет его подпись и срок действия,
// возвращает CustomClaims, если токен корректен.
func (j *MakerImpl) ParseToken(tokenStr string) (*CustomClaims, error) {
	const op = "jwt.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(j.secretKey), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}
	return claims, nil
}

// Validate проверяет токен и возвращает идентификатор пользователя и роль.
// Токен с нечисловым subject или неизвестной ролью считается невалидным.
func (j *MakerImpl) Validate(tokenStr string) (int64, models.Role, error) {
	const op = "jwt.Validate"
	claims, err := j.ParseToken(tokenStr)
	if err != nil {
		return 0, "", err
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, "", fmt.Errorf("%s: %w: bad subject %q", op, ErrInvalidToken, claims.Subject)
	}
	if !claims.Role.IsValid() {
		return 0, "", fmt.Errorf("%s: %w: bad role %q", op, ErrInvalidToken, claims.Role)
	}
	return userID, claims.Role, nil
}
