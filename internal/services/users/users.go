// Package users реализует правила администрирования пользователей компании:
// регистрацию, изменение, удаление и выборки с учётом роли вызывающего.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/company-users/internal/lib/apperr"
	"github.com/magabrotheeeer/company-users/internal/lib/password"
	"github.com/magabrotheeeer/company-users/internal/lib/validate"
	"github.com/magabrotheeeer/company-users/internal/models"
	"github.com/magabrotheeeer/company-users/internal/services/access"
	"github.com/magabrotheeeer/company-users/internal/storage/repository"
)

var (
	// ErrUserNotFound целевой пользователь отсутствует.
	ErrUserNotFound = apperr.NotFound("user not found")
	// ErrUserExists имя уже занято в компании.
	ErrUserExists = apperr.Conflict("user with the same username already exists in this company")
	// ErrCallerNotFound вызывающий из токена больше не существует.
	ErrCallerNotFound = apperr.Unauthorized("user not found")
)

// UserRepository описывает контракт хранилища пользователей.
type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByUsernameAndCompany(ctx context.Context, username string, companyID int64) (*models.User, error)
	ListByCompany(ctx context.Context, companyID int64) ([]*models.User, error)
	ListAll(ctx context.Context) ([]*models.User, error)
	Insert(ctx context.Context, user *models.User) (int64, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id int64) error
}

// UserService реализует бизнес-логику управления пользователями.
type UserService struct {
	log      *slog.Logger
	users    UserRepository
	validate *validator.Validate
}

// NewUserService создаёт новый экземпляр UserService.
func NewUserService(log *slog.Logger, users UserRepository) *UserService {
	return &UserService{
		log:      log,
		users:    users,
		validate: validate.New(),
	}
}

type newUserInput struct {
	Username  string `json:"username" validate:"required,min=3,max=100"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	CompanyID int64  `json:"company_id" validate:"gt=0"`
	Role      string `json:"role" validate:"required,oneof=Admin User"`
}

type patchInput struct {
	Username  *string `json:"username" validate:"omitempty,min=3,max=100"`
	Password  *string `json:"password" validate:"omitempty,min=8,max=72"`
	CompanyID *int64  `json:"company_id" validate:"omitempty,gt=0"`
	Role      *string `json:"role" validate:"omitempty,oneof=Admin User"`
}

func requireAdmin(caller models.Caller, msg string) error {
	if err := access.RequireAdmin(caller); err != nil {
		return apperr.Unauthorized(msg).Wrap(err)
	}
	return nil
}

func (s *UserService) check(in any) error {
	if err := s.validate.Struct(in); err != nil {
		if msg := validate.ErrorMessage(err); msg != "" {
			return apperr.BadRequest(msg)
		}
		return apperr.BadRequest("invalid user data").Wrap(err)
	}
	return nil
}

func hash(op, plain string) (string, error) {
	h, err := password.GetHash(plain)
	if err != nil {
		if errors.Is(err, password.ErrEmptyPassword) || errors.Is(err, password.ErrPasswordTooLong) {
			return "", apperr.BadRequest("invalid password").Wrap(err)
		}
		return "", apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	return h, nil
}

// Register создаёт пользователя. Доступно только администратору.
// Пароль хэшируется до сохранения, открытый текст нигде не хранится.
func (s *UserService) Register(ctx context.Context, caller models.Caller, in models.NewUser) (int64, error) {
	const op = "users.Register"

	if err := requireAdmin(caller, "only admin users can register new users"); err != nil {
		return 0, err
	}
	return s.create(ctx, op, in)
}

func (s *UserService) create(ctx context.Context, op string, in models.NewUser) (int64, error) {
	if err := s.check(newUserInput{
		Username:  in.Username,
		Password:  in.Password,
		CompanyID: in.CompanyID,
		Role:      string(in.Role),
	}); err != nil {
		return 0, err
	}

	hashed, err := hash(op, in.Password)
	if err != nil {
		return 0, err
	}

	id, err := s.users.Insert(ctx, &models.User{
		Username:     in.Username,
		PasswordHash: hashed,
		Role:         in.Role,
		CompanyID:    in.CompanyID,
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return 0, ErrUserExists.Wrap(err)
		}
		return 0, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	return id, nil
}

// Update частично изменяет пользователя id: меняются только переданные поля.
// Пустые строки считаются непереданными. Новый пароль хэшируется заново.
func (s *UserService) Update(ctx context.Context, caller models.Caller, id int64, patch models.UserPatch) error {
	const op = "users.Update"

	if err := requireAdmin(caller, "only admin users can update users"); err != nil {
		return err
	}
	if id <= 0 {
		return apperr.BadRequest("user id must be a positive number")
	}

	patch = normalize(patch)
	in := patchInput{
		Username:  patch.Username,
		Password:  patch.Password,
		CompanyID: patch.CompanyID,
	}
	if patch.Role != nil {
		r := string(*patch.Role)
		in.Role = &r
	}
	if err := s.check(in); err != nil {
		return err
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound.Wrap(err)
		}
		return apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	if patch.Username != nil {
		user.Username = *patch.Username
	}
	if patch.Password != nil {
		hashed, err := hash(op, *patch.Password)
		if err != nil {
			return err
		}
		user.PasswordHash = hashed
	}
	if patch.CompanyID != nil {
		user.CompanyID = *patch.CompanyID
	}
	if patch.Role != nil {
		user.Role = *patch.Role
	}

	if err := s.users.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			return ErrUserNotFound.Wrap(err)
		case errors.Is(err, repository.ErrUserExists):
			return ErrUserExists.Wrap(err)
		default:
			return apperr.Internal(fmt.Errorf("%s: %w", op, err))
		}
	}
	return nil
}

func normalize(p models.UserPatch) models.UserPatch {
	if p.Username != nil && *p.Username == "" {
		p.Username = nil
	}
	if p.Password != nil && *p.Password == "" {
		p.Password = nil
	}
	if p.Role != nil && *p.Role == "" {
		p.Role = nil
	}
	return p
}

// Delete удаляет пользователя id. Доступно только администратору.
func (s *UserService) Delete(ctx context.Context, caller models.Caller, id int64) error {
	const op = "users.Delete"

	if err := requireAdmin(caller, "only admin users can delete users"); err != nil {
		return err
	}
	if id <= 0 {
		return apperr.BadRequest("user id must be a positive number")
	}

	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound.Wrap(err)
		}
		return apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	return nil
}

// ListOwnCompany возвращает пользователей компании вызывающего.
// Компания берётся из записи вызывающего, а не из токена. Не-администратору
// администраторы в выборке не показываются.
func (s *UserService) ListOwnCompany(ctx context.Context, caller models.Caller) ([]models.UserInfo, error) {
	const op = "users.ListOwnCompany"

	current, err := s.users.FindByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrCallerNotFound.Wrap(err)
		}
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	list, err := s.users.ListByCompany(ctx, current.CompanyID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	hideAdmins := current.Role != models.RoleAdmin
	result := make([]models.UserInfo, 0, len(list))
	for _, u := range list {
		if hideAdmins && u.Role == models.RoleAdmin {
			continue
		}
		result = append(result, u.Info())
	}
	return result, nil
}

// ListAll возвращает пользователей всех компаний. Доступно только администратору.
func (s *UserService) ListAll(ctx context.Context, caller models.Caller) ([]models.UserInfo, error) {
	const op = "users.ListAll"

	if err := requireAdmin(caller, "you do not have the required permissions to access this resource"); err != nil {
		return nil, err
	}

	list, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	result := make([]models.UserInfo, 0, len(list))
	for _, u := range list {
		result = append(result, u.Info())
	}
	return result, nil
}

// EnsureAdmin создаёт первого администратора при старте, если такого имени
// в компании ещё нет. Возвращает true, если пользователь был создан.
func (s *UserService) EnsureAdmin(ctx context.Context, in models.NewUser) (bool, error) {
	const op = "users.EnsureAdmin"

	in.Role = models.RoleAdmin
	_, err := s.users.FindByUsernameAndCompany(ctx, in.Username, in.CompanyID)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, repository.ErrUserNotFound):
		return false, fmt.Errorf("%s: %w", op, err)
	}

	id, err := s.create(ctx, op, in)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("bootstrap admin created",
		slog.String("op", op),
		slog.Int64("id", id),
		slog.String("username", in.Username),
		slog.Int64("company_id", in.CompanyID),
	)
	return true, nil
}
