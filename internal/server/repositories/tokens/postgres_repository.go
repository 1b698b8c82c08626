package tokens

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

// PostgresRepository implements the token store over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, t *models.Token) (*models.Token, error) {
	query := `
		INSERT INTO tokens (category, owner_id, token, create_on, expiry_on, access_count, random_seed)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		int16(t.Category), nullOwner(t.OwnerID), t.Token, t.CreateOn, t.ExpiryOn, t.AccessCount, t.RandomSeed,
	).Scan(&t.ID)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) GetLastOne(ctx context.Context, category models.TokenCategory, ownerID int64, now time.Time) (*models.Token, error) {
	query := `
		SELECT id, category, owner_id, token, create_on, expiry_on,
		       first_access_on, last_access_on, access_count, random_seed
		FROM tokens
		WHERE category = $1 AND owner_id = $2 AND create_on <= $3 AND expiry_on > $3
		ORDER BY create_on DESC, id DESC
		LIMIT 1
	`
	var (
		t     models.Token
		cat   int16
		owner sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, query, int16(category), ownerID, now).Scan(
		&t.ID, &cat, &owner, &t.Token, &t.CreateOn, &t.ExpiryOn,
		&t.FirstAccessOn, &t.LastAccessOn, &t.AccessCount, &t.RandomSeed,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	t.Category = models.TokenCategory(cat)
	t.OwnerID = owner.Int64
	return &t, nil
}

func (r *PostgresRepository) Touch(ctx context.Context, t *models.Token, now time.Time) error {
	query := `
		UPDATE tokens
		SET first_access_on = COALESCE(first_access_on, $2),
		    last_access_on = $2,
		    access_count = access_count + 1
		WHERE id = $1
		RETURNING first_access_on, last_access_on, access_count
	`
	err := r.db.QueryRowContext(ctx, query, t.ID, now).Scan(&t.FirstAccessOn, &t.LastAccessOn, &t.AccessCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, category models.TokenCategory, ownerID int64, token string) (int64, error) {
	query := `
		DELETE FROM tokens
		WHERE category = $1 AND owner_id = $2 AND token = $3
	`
	return r.exec(ctx, query, int16(category), ownerID, token)
}

func (r *PostgresRepository) DeleteBySeed(ctx context.Context, category models.TokenCategory, ownerID int64, seed int) (int64, error) {
	query := `
		DELETE FROM tokens
		WHERE category = $1 AND owner_id = $2 AND random_seed = $3
	`
	return r.exec(ctx, query, int16(category), ownerID, seed)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func nullOwner(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id > 0}
}
