package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/company-users/internal/models"
)

const userColumns = `id, username, password_hash, role, company_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	var role string
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &role,
		&u.CompanyID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	return u, nil
}

func queryUsers(ctx context.Context, db DBTX, query string, args ...any) ([]*models.User, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// FindByID возвращает пользователя по его идентификатору.
func (s *Storage) FindByID(ctx context.Context, id int64) (*models.User, error) {
	const op = "storage.FindByID"

	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE id = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// FindByUsername возвращает всех пользователей с указанным именем во всех компаниях.
// Пустой результат не считается ошибкой.
func (s *Storage) FindByUsername(ctx context.Context, username string) ([]*models.User, error) {
	const op = "storage.FindByUsername"

	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE username = $1
			  ORDER BY id`
	users, err := queryUsers(ctx, s.DB, query, username)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

// FindByUsernameAndCompany возвращает пользователя по имени в пределах компании.
func (s *Storage) FindByUsernameAndCompany(ctx context.Context, username string, companyID int64) (*models.User, error) {
	const op = "storage.FindByUsernameAndCompany"

	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE username = $1 AND company_id = $2`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, username, companyID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// ListByCompany возвращает всех пользователей компании.
func (s *Storage) ListByCompany(ctx context.Context, companyID int64) ([]*models.User, error) {
	const op = "storage.ListByCompany"

	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE company_id = $1
			  ORDER BY id`
	users, err := queryUsers(ctx, s.DB, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

// ListAll возвращает пользователей всех компаний.
func (s *Storage) ListAll(ctx context.Context) ([]*models.User, error) {
	const op = "storage.ListAll"

	query := `SELECT ` + userColumns + `
			  FROM users
			  ORDER BY company_id, id`
	users, err := queryUsers(ctx, s.DB, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

// Insert сохраняет нового пользователя и возвращает назначенный идентификатор.
//
// Проверка существования и вставка выполняются в одной транзакции, а уникальный
// индекс (username, company_id) закрывает гонку между параллельными вставками.
// Поля ID, CreatedAt и UpdatedAt у user заполняются значениями из базы.
func (s *Storage) Insert(ctx context.Context, user *models.User) (int64, error) {
	const op = "storage.Insert"

	err := s.withTx(ctx, nil, func(ctx context.Context, tx DBTX) error {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 AND company_id = $2)`,
			user.Username, user.CompanyID).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return ErrUserExists
		}

		query := `INSERT INTO users (username, password_hash, role, company_id)
				  VALUES ($1, $2, $3, $4)
				  RETURNING id, created_at, updated_at`
		return tx.QueryRowContext(ctx, query,
			user.Username, user.PasswordHash, string(user.Role), user.CompanyID,
		).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	})
	if err != nil {
		if isUniqueViolation(err) {
			err = ErrUserExists
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return user.ID, nil
}

// Update перезаписывает имя, хэш пароля, роль и компанию пользователя user.ID.
func (s *Storage) Update(ctx context.Context, user *models.User) error {
	const op = "storage.Update"

	query := `UPDATE users
			  SET username = $1,
			      password_hash = $2,
			      role = $3,
			      company_id = $4,
			      updated_at = NOW()
			  WHERE id = $5
			  RETURNING updated_at`
	err := s.DB.QueryRowContext(ctx, query,
		user.Username, user.PasswordHash, string(user.Role), user.CompanyID, user.ID,
	).Scan(&user.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("%s: %w", op, ErrUserNotFound)
		case isUniqueViolation(err):
			return fmt.Errorf("%s: %w", op, ErrUserExists)
		default:
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}

// Delete удаляет пользователя. Если запись не найдена, возвращает ErrUserNotFound.
func (s *Storage) Delete(ctx context.Context, id int64) error {
	const op = "storage.Delete"

	res, err := s.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}

