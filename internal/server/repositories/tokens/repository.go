// Package tokens is the token store: activation, access and refresh tokens
// with their lifetimes, access counters and pairing seeds.
package tokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/flashboard/internal/server/models"
)

type Repository interface {
	// Create inserts the token and sets its ID.
	Create(ctx context.Context, token *models.Token) (*models.Token, error)
	// GetLastOne returns the newest token of the category owned by ownerID
	// that is live at now, or common.ErrorNotFound.
	GetLastOne(ctx context.Context, category models.TokenCategory, ownerID int64, now time.Time) (*models.Token, error)
	// Touch records one successful verification at now and refreshes the
	// access fields of token from the stored row.
	Touch(ctx context.Context, token *models.Token, now time.Time) error
	// Delete removes the exact (category, owner, value) row and returns the
	// number of rows removed.
	Delete(ctx context.Context, category models.TokenCategory, ownerID int64, token string) (int64, error)
	// DeleteBySeed removes rows of the category owned by ownerID that carry
	// the pairing seed.
	DeleteBySeed(ctx context.Context, category models.TokenCategory, ownerID int64, seed int) (int64, error)
}
