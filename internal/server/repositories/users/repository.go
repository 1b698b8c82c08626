// Package users is the credential store: user identity, password hash,
// activation state and login telemetry.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/flashboard/internal/server/models"
)

type Repository interface {
	// Create inserts the user and sets its ID. Duplicate name or email
	// yields common.ErrAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByNameOrEmail(ctx context.Context, name, email string) (bool, error)
	// Update persists every mutable column of the user.
	Update(ctx context.Context, user *models.User) error
	// RecordLogin marks the user authenticated, shifts the current login
	// into the last login and increments login_count in one statement. It
	// returns the updated row.
	RecordLogin(ctx context.Context, id int64, at time.Time, ip string) (*models.User, error)
}
