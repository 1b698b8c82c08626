package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/flashboard/internal/common"
	"github.com/dmitrijs2005/flashboard/internal/dbx"
	"github.com/dmitrijs2005/flashboard/internal/server/models"
)

const userColumns = `id, name, email, password, private_salt, actived, authenticated,
		 last_login_at, last_login_ip, current_login_at, current_login_ip,
		 login_count, signup_at, confirmed_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (name, email, password, private_salt, actived, signup_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.Name, user.Email, user.Password, user.PrivateSalt, user.Active, user.SignupAt).Scan(&user.ID)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE id = $1
		 `
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE email = $1
		 `
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) ExistsByNameOrEmail(ctx context.Context, name, email string) (bool, error) {
	query :=
		`SELECT EXISTS (SELECT 1 FROM users WHERE name = $1 OR email = $2)
		 `

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, name, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) Update(ctx context.Context, user *models.User) error {
	query :=
		`UPDATE users SET name = $2, email = $3, password = $4, private_salt = $5,
		 actived = $6, authenticated = $7,
		 last_login_at = $8, last_login_ip = $9, current_login_at = $10, current_login_ip = $11,
		 login_count = $12, confirmed_at = $13
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, user.ID,
		user.Name, user.Email, user.Password, user.PrivateSalt,
		user.Active, user.Authenticated,
		user.LastLoginAt, user.LastLoginIP, user.CurrentLoginAt, user.CurrentLoginIP,
		user.LoginCount, user.ConfirmedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) RecordLogin(ctx context.Context, id int64, at time.Time, ip string) (*models.User, error) {
	query :=
		`UPDATE users SET authenticated = TRUE,
		 last_login_at = current_login_at, last_login_ip = current_login_ip,
		 current_login_at = $2, current_login_ip = $3,
		 login_count = login_count + 1
		 WHERE id = $1
		 RETURNING ` + userColumns + `
		 `
	return scanUser(r.db.QueryRowContext(ctx, query, id, at, ip))
}

func scanUser(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.PrivateSalt, &u.Active, &u.Authenticated,
		&u.LastLoginAt, &u.LastLoginIP, &u.CurrentLoginAt, &u.CurrentLoginIP,
		&u.LoginCount, &u.SignupAt, &u.ConfirmedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}
