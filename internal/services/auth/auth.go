// Package auth проверяет учётные данные пользователей, выпускает и проверяет JWT.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/company-users/internal/lib/apperr"
	"github.com/magabrotheeeer/company-users/internal/lib/jwt"
	"github.com/magabrotheeeer/company-users/internal/lib/metrics"
	"github.com/magabrotheeeer/company-users/internal/lib/password"
	"github.com/magabrotheeeer/company-users/internal/lib/sl"
	"github.com/magabrotheeeer/company-users/internal/models"
	"github.com/magabrotheeeer/company-users/internal/storage/repository"
)

// ErrInvalidCredentials единственная ошибка, которую получает клиент при неудачном входе,
// независимо от того, существует ли пользователь.
var ErrInvalidCredentials = apperr.Unauthorized("invalid username or password")

// UserRepository описывает контракт поиска пользователей для аутентификации.
type UserRepository interface {
	// FindByUsername возвращает всех пользователей с данным именем во всех компаниях.
	FindByUsername(ctx context.Context, username string) ([]*models.User, error)
	// FindByUsernameAndCompany возвращает пользователя по имени в пределах компании.
	FindByUsernameAndCompany(ctx context.Context, username string, companyID int64) (*models.User, error)
}

// AuthService отвечает за аутентификацию и валидацию JWT.
type AuthService struct {
	log      *slog.Logger
	users    UserRepository
	jwtMaker jwt.Maker
	metrics  *metrics.Metrics
	// dummyHash сверяется с паролем, когда пользователь не найден,
	// чтобы время ответа не выдавало существование имени.
	dummyHash string
}

// NewAuthService создаёт новый экземпляр AuthService.
func NewAuthService(log *slog.Logger, users UserRepository, jwtMaker jwt.Maker, m *metrics.Metrics) *AuthService {
	dummy, err := password.GetHash("company-users-dummy-password")
	if err != nil {
		log.Warn("failed to prepare dummy hash", sl.Err(err))
	}
	return &AuthService{
		log:       log,
		users:     users,
		jwtMaker:  jwtMaker,
		metrics:   m,
		dummyHash: dummy,
	}
}

// Authenticate проверяет имя и пароль и возвращает найденного пользователя.
//
// Без companyID поиск идёт по всем компаниям и успешен только при единственном
// совпадении. С companyID поиск ограничен компанией. Отсутствие пользователя и
// неверный пароль дают одну и ту же ошибку ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, username, rawPassword string, companyID *int64) (*models.User, error) {
	const op = "auth.Authenticate"

	user, err := s.lookup(ctx, username, companyID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			password.Verify(rawPassword, s.dummyHash)
			s.metrics.AuthAttempt(metrics.AuthInvalidCredentials)
			return nil, ErrInvalidCredentials
		}
		s.metrics.AuthAttempt(metrics.AuthError)
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	if !password.Verify(rawPassword, user.PasswordHash) {
		s.metrics.AuthAttempt(metrics.AuthInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	s.metrics.AuthAttempt(metrics.AuthSuccess)
	return user, nil
}

func (s *AuthService) lookup(ctx context.Context, username string, companyID *int64) (*models.User, error) {
	if companyID != nil {
		return s.users.FindByUsernameAndCompany(ctx, username, *companyID)
	}

	found, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if len(found) != 1 {
		if len(found) > 1 {
			s.log.Info("ambiguous login, company_id required",
				slog.String("username", username), slog.Int("matches", len(found)))
		}
		return nil, repository.ErrUserNotFound
	}
	return found[0], nil
}

// Login аутентифицирует пользователя и выпускает для него токен.
func (s *AuthService) Login(ctx context.Context, username, rawPassword string, companyID *int64) (string, *models.User, error) {
	const op = "auth.Login"

	user, err := s.Authenticate(ctx, username, rawPassword, companyID)
	if err != nil {
		return "", nil, err
	}

	token, err := s.jwtMaker.GenerateToken(user.ID, user.Role)
	if err != nil {
		s.log.Error("failed to issue token", sl.Op(op), sl.Err(err))
		return "", nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	return token, user, nil
}

// ValidateToken проверяет JWT и возвращает личность вызывающего.
func (s *AuthService) ValidateToken(_ context.Context, token string) (models.Caller, error) {
	userID, role, err := s.jwtMaker.Validate(token)
	if err != nil {
		return models.Caller{}, apperr.Unauthorized("invalid or expired token").Wrap(err)
	}
	return models.Caller{UserID: userID, Role: role}, nil
}
