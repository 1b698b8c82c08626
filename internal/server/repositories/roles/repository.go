// Package roles stores the role catalogue and the user-role relation.
package roles

import (
	"context"

	"github.com/dmitrijs2005/flashboard/internal/server/models"
)

type Repository interface {
	// Upsert creates the role or refreshes its description.
	Upsert(ctx context.Context, role *models.Role) (*models.Role, error)
	GetByName(ctx context.Context, name string) (*models.Role, error)
	GetByID(ctx context.Context, id int64) (*models.Role, error)

	// Grant links user and role; granting twice is not an error.
	Grant(ctx context.Context, userID, roleID int64) error
	// Revoke reports whether a link was removed.
	Revoke(ctx context.Context, userID, roleID int64) (bool, error)
	HasRole(ctx context.Context, userID, roleID int64) (bool, error)
	ListNamesByUser(ctx context.Context, userID int64) ([]string, error)
}
