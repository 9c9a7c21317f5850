// Package jwt реализует генерацию и парсинг JWT токенов с пользовательскими claim полями.
//
// Maker определяет интерфейс для создания и проверки JWT токенов с идентификатором
// пользователя и ролью. MakerImpl: конкретная реализация с использованием
// секретного ключа и срока жизни токена.
package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/magabrotheeeer/company-users/internal/models"
)

// MinSecretLength минимальная длина секретного ключа в байтах (256 бит).
const MinSecretLength = 32

// DefaultTTL время жизни токена по умолчанию.
const DefaultTTL = time.Hour

var (
	// ErrWeakSecret секретный ключ не задан или короче MinSecretLength.
	ErrWeakSecret = errors.New("jwt secret key must be at least 256 bits long")
	// ErrInvalidToken токен повреждён, подписан другим ключом или истёк.
	ErrInvalidToken = errors.New("invalid token")
)

// Maker описывает интерфейс для генерации и проверки JWT токенов.
type Maker interface {
	// GenerateToken выпускает токен для пользователя с указанной ролью.
	GenerateToken(userID int64, role models.Role) (string, error)
	// Validate проверяет подпись и срок действия, возвращает идентификатор и роль.
	Validate(tokenStr string) (int64, models.Role, error)
}

// CustomClaims описывает данные, хранящиеся в JWT.
// Идентификатор пользователя лежит в стандартном поле sub.
type CustomClaims struct {
	Role models.Role `json:"role"` // Роль пользователя
	jwt.RegisteredClaims
}

// MakerImpl реализует интерфейс Maker с использованием секретного ключа
// и времени жизни токена (TTL).
type MakerImpl struct {
	secretKey string           // Секретный ключ для подписи токенов.
	tokenTTL  time.Duration    // Время жизни токена.
	now       func() time.Time // Источник текущего времени.
}

// NewJWTMaker создаёт новый экземпляр MakerImpl на основе секретного ключа и TTL.
// Нулевой или отрицательный ttl заменяется на DefaultTTL.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
		now:       time.Now,
	}
}

// WithClock подменяет источник времени. Используется в тестах.
func (j *MakerImpl) WithClock(now func() time.Time) *MakerImpl {
	j.now = now
	return j
}
